package models

import "testing"

func TestIsValidCampaignTransition(t *testing.T) {
	tests := []struct {
		from     string
		to       string
		expected bool
	}{
		// Forward path
		{CampaignStatusDiscovery, CampaignStatusStrategy, true},
		{CampaignStatusStrategy, CampaignStatusGenerating, true},
		{CampaignStatusGenerating, CampaignStatusApproval, true},
		{CampaignStatusStrategy, CampaignStatusApproval, true},
		{CampaignStatusApproval, CampaignStatusActive, true},
		{CampaignStatusActive, CampaignStatusCompleted, true},

		// Strategy re-assertion and calendar regeneration
		{CampaignStatusStrategy, CampaignStatusStrategy, true},
		{CampaignStatusApproval, CampaignStatusGenerating, true},

		// Invalid transitions
		{CampaignStatusDiscovery, CampaignStatusActive, false},
		{CampaignStatusDiscovery, CampaignStatusApproval, false},
		{CampaignStatusStrategy, CampaignStatusActive, false},
		{CampaignStatusGenerating, CampaignStatusActive, false},
		{CampaignStatusActive, CampaignStatusApproval, false},
		{CampaignStatusCompleted, CampaignStatusActive, false},
		{CampaignStatusDiscovery, CampaignStatusDiscovery, false},
		{"nonexistent", CampaignStatusStrategy, false},
		{CampaignStatusDiscovery, "nonexistent", false},
	}

	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			result := IsValidCampaignTransition(tt.from, tt.to)
			if result != tt.expected {
				t.Errorf("IsValidCampaignTransition(%q, %q) = %v, want %v", tt.from, tt.to, result, tt.expected)
			}
		})
	}
}

func TestAllCampaignStatusesHaveTransitionEntry(t *testing.T) {
	allStatuses := []string{
		CampaignStatusDiscovery, CampaignStatusStrategy, CampaignStatusGenerating,
		CampaignStatusApproval, CampaignStatusActive, CampaignStatusCompleted,
	}

	for _, status := range allStatuses {
		if _, ok := ValidCampaignTransitions[status]; !ok {
			t.Errorf("status %q missing from ValidCampaignTransitions map", status)
		}
	}
}

func TestCompletedCampaignIsTerminal(t *testing.T) {
	if transitions := ValidCampaignTransitions[CampaignStatusCompleted]; len(transitions) != 0 {
		t.Errorf("completed should have no transitions, got %v", transitions)
	}
}
