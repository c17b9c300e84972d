package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
)

type createLeadArgs struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Email   string `json:"email"`
	Source  string `json:"source"`
	Notes   string `json:"notes"`
}

func createLeadTool(leads Leads) relay.Tool {
	return relay.NewTool("create_lead", "Record a new sales lead.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"name":    {Type: relay.TypeString, Description: "Contact person name"},
				"company": {Type: relay.TypeString},
				"email":   {Type: relay.TypeString},
				"source":  {Type: relay.TypeString, Description: "Where the lead came from, e.g. referral, instagram"},
				"notes":   {Type: relay.TypeString},
			},
			Required: []string{"name"},
		},
		func(ctx context.Context, a createLeadArgs) (string, error) {
			name := strings.TrimSpace(a.Name)
			if name == "" {
				return "", fmt.Errorf("lead name is empty")
			}
			l := &models.Lead{
				Name:    name,
				Company: optional(a.Company),
				Email:   optional(a.Email),
				Source:  optional(a.Source),
				Notes:   optional(a.Notes),
			}
			if err := leads.Create(ctx, l); err != nil {
				return "", err
			}
			return fmt.Sprintf("Lead %q created (id %s).", l.Name, l.ID), nil
		})
}

type notificationArgs struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Level string `json:"level"`
}

func sendNotificationTool(n Notifier) relay.Tool {
	return relay.NewTool("send_notification", "Send a notification to the team channel.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"title": {Type: relay.TypeString},
				"body":  {Type: relay.TypeString},
				"level": {Type: relay.TypeString, Enum: []string{"info", "warning", "urgent"}},
			},
			Required: []string{"title"},
		},
		func(ctx context.Context, a notificationArgs) (string, error) {
			if err := n.Notify(ctx, a.Level, a.Title, a.Body); err != nil {
				return "", err
			}
			return "Notification sent.", nil
		})
}
