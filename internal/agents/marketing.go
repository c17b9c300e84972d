package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/google/uuid"
)

func (s *Service) buildMarketing(ctx context.Context, p Persona) (*relay.Prompt, *relay.Registry, error) {
	leads, err := s.deps.Leads.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list leads: %w", err)
	}
	clients, err := s.deps.Clients.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list clients: %w", err)
	}

	prompt := relay.NewPrompt(p.Persona).
		State("Today", s.now().Format("Monday, 2006-01-02")).
		Facts("Active leads", "No active leads.", leadLines(leads)...).
		Facts("Current clients", "No clients yet.", clientLines(clients)...).
		Instructions(p.Instructions...)

	tools := relay.NewRegistry(
		createLeadTool(s.deps.Leads),
		s.updateLeadStatusTool(),
		sendNotificationTool(s.deps.Notifier),
	)
	return prompt, tools, nil
}

type updateLeadStatusArgs struct {
	LeadID string `json:"lead_id"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

func (s *Service) updateLeadStatusTool() relay.Tool {
	return relay.NewTool("update_lead_status", "Move a lead through the pipeline.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"lead_id": {Type: relay.TypeString},
				"status":  {Type: relay.TypeString, Enum: models.AllLeadStatuses},
				"notes":   {Type: relay.TypeString, Description: "Appended to the lead notes"},
			},
			Required: []string{"lead_id", "status"},
		},
		func(ctx context.Context, a updateLeadStatusArgs) (string, error) {
			id, err := uuid.Parse(strings.TrimSpace(a.LeadID))
			if err != nil {
				return "", fmt.Errorf("invalid lead id %q", a.LeadID)
			}
			if err := s.deps.Leads.UpdateStatus(ctx, id, a.Status, optional(a.Notes)); err != nil {
				return "", fmt.Errorf("update lead %s: %w", id, err)
			}
			return fmt.Sprintf("Lead %s is now %s.", id, a.Status), nil
		})
}
