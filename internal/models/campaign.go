package models

import (
	"time"

	"github.com/google/uuid"
)

// Campaign statuses, in forward order.
const (
	CampaignStatusDiscovery  = "discovery"
	CampaignStatusStrategy   = "strategy"
	CampaignStatusGenerating = "generating"
	CampaignStatusApproval   = "approval"
	CampaignStatusActive     = "active"
	CampaignStatusCompleted  = "completed"
)

// ValidCampaignTransitions maps from -> []to. strategy -> strategy is the
// re-assertion performed when a strategy document is saved.
var ValidCampaignTransitions = map[string][]string{
	CampaignStatusDiscovery:  {CampaignStatusStrategy},
	CampaignStatusStrategy:   {CampaignStatusStrategy, CampaignStatusGenerating, CampaignStatusApproval},
	CampaignStatusGenerating: {CampaignStatusApproval},
	CampaignStatusApproval:   {CampaignStatusGenerating, CampaignStatusActive},
	CampaignStatusActive:     {CampaignStatusCompleted},
	CampaignStatusCompleted:  {},
}

func IsValidCampaignTransition(from, to string) bool {
	return containsStatus(ValidCampaignTransitions, from, to)
}

// Image generation backends selectable per campaign.
const (
	ImageModelOpenAI = "openai"
	ImageModelGemini = "gemini"
)

func IsValidImageModel(m string) bool {
	return m == ImageModelOpenAI || m == ImageModelGemini
}

type Campaign struct {
	ID             uuid.UUID  `json:"id"`
	ClientID       uuid.UUID  `json:"client_id"`
	Name           string     `json:"name"`
	Status         string     `json:"status"`
	BrandVoice     *string    `json:"brand_voice,omitempty"`
	TargetAudience *string    `json:"target_audience,omitempty"`
	ContentThemes  []string   `json:"content_themes"`
	PostsPerWeek   *int       `json:"posts_per_week,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
	Strategy       *string    `json:"strategy,omitempty"`
	ImageModel     string     `json:"image_model"`
	ImageStyle     *string    `json:"image_style,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// CampaignWithPosts is what the admin UI reads for one campaign.
type CampaignWithPosts struct {
	Campaign
	ClientName string `json:"client_name"`
	Posts      []Post `json:"posts"`
}

// BrandInfo is the discovery output stored by the campaign agent.
type BrandInfo struct {
	BrandVoice     *string
	TargetAudience *string
	ContentThemes  []string
	PostsPerWeek   *int
	StartDate      *time.Time
	EndDate        *time.Time
	ImageStyle     *string
}
