package agents

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/google/uuid"
)

func (s *Service) buildFinance(ctx context.Context, p Persona) (*relay.Prompt, *relay.Registry, error) {
	clients, err := s.deps.Clients.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list clients: %w", err)
	}
	invoices, err := s.deps.Invoices.ListOutstanding(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list invoices: %w", err)
	}

	now := s.now()
	lines := make([]string, 0, len(invoices))
	var totalCents int64
	for _, inv := range invoices {
		totalCents += inv.AmountCents
		late := ""
		if inv.DueDate != nil && inv.DueDate.Before(now) {
			late = fmt.Sprintf(", %d days late", int(now.Sub(*inv.DueDate).Hours()/24))
		}
		lines = append(lines, fmt.Sprintf("%s [%s] %s %s for %s, due %s%s (id %s)",
			inv.Number, inv.Status, formatCents(inv.AmountCents), inv.Currency,
			deref(inv.ClientName, "no client"), formatDate(inv.DueDate), late, inv.ID))
	}

	prompt := relay.NewPrompt(p.Persona).
		State("Today", now.Format("Monday, 2006-01-02")).
		State("Outstanding total", fmt.Sprintf("%s across %d invoices", formatCents(totalCents), len(invoices))).
		Facts("Outstanding invoices", "No outstanding invoices.", lines...).
		Facts("Clients", "No clients yet.", clientLines(clients)...).
		Instructions(p.Instructions...)

	tools := relay.NewRegistry(
		s.createInvoiceTool(clients),
		s.updateInvoiceStatusTool(invoices),
		s.paymentReminderTool(invoices),
	)
	return prompt, tools, nil
}

type createInvoiceArgs struct {
	Client      string  `json:"client"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	DueDate     string  `json:"due_date"`
}

func (s *Service) createInvoiceTool(clients []models.Client) relay.Tool {
	return relay.NewTool("create_invoice", "Create a draft invoice.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"client":      {Type: relay.TypeString, Description: "Client slug"},
				"description": {Type: relay.TypeString},
				"amount":      {Type: relay.TypeNumber, Description: "Amount in major units, e.g. 1250.50"},
				"currency":    {Type: relay.TypeString, Description: "ISO 4217 code, default USD"},
				"due_date":    {Type: relay.TypeString, Description: "YYYY-MM-DD"},
			},
			Required: []string{"description", "amount"},
		},
		func(ctx context.Context, a createInvoiceArgs) (string, error) {
			if a.Amount <= 0 {
				return "", fmt.Errorf("amount must be positive")
			}
			due, err := parseDate(a.DueDate)
			if err != nil {
				return "", err
			}
			client := resolveClient(clients, a.Client)
			inv := &models.Invoice{
				ClientID:    clientIDOf(client),
				Description: strings.TrimSpace(a.Description),
				AmountCents: int64(math.Round(a.Amount * 100)),
				Currency:    strings.ToUpper(strings.TrimSpace(a.Currency)),
				DueDate:     due,
			}
			if err := s.deps.Invoices.Create(ctx, inv); err != nil {
				return "", err
			}
			return fmt.Sprintf("Invoice %s created for %s: %s %s (id %s).",
				inv.Number, clientName(client), formatCents(inv.AmountCents), inv.Currency, inv.ID), nil
		})
}

type updateInvoiceStatusArgs struct {
	Invoice string `json:"invoice"`
	Status  string `json:"status"`
}

func (s *Service) updateInvoiceStatusTool(outstanding []models.Invoice) relay.Tool {
	return relay.NewTool("update_invoice_status", "Change the status of an invoice.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"invoice": {Type: relay.TypeString, Description: "Invoice id or number"},
				"status":  {Type: relay.TypeString, Enum: models.AllInvoiceStatuses},
			},
			Required: []string{"invoice", "status"},
		},
		func(ctx context.Context, a updateInvoiceStatusArgs) (string, error) {
			inv, err := s.findInvoice(ctx, outstanding, a.Invoice)
			if err != nil {
				return "", err
			}
			if err := s.deps.Invoices.UpdateStatus(ctx, inv.ID, a.Status); err != nil {
				return "", fmt.Errorf("update invoice %s: %w", inv.Number, err)
			}
			return fmt.Sprintf("Invoice %s is now %s.", inv.Number, a.Status), nil
		})
}

type paymentReminderArgs struct {
	Invoice string `json:"invoice"`
	Message string `json:"message"`
}

func (s *Service) paymentReminderTool(outstanding []models.Invoice) relay.Tool {
	return relay.NewTool("send_payment_reminder", "Notify the team to chase an unpaid invoice.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"invoice": {Type: relay.TypeString, Description: "Invoice id or number"},
				"message": {Type: relay.TypeString},
			},
			Required: []string{"invoice"},
		},
		func(ctx context.Context, a paymentReminderArgs) (string, error) {
			inv, err := s.findInvoice(ctx, outstanding, a.Invoice)
			if err != nil {
				return "", err
			}
			if !inv.IsOutstanding() {
				return "", fmt.Errorf("invoice %s is %s, reminders are only sent for sent or overdue invoices", inv.Number, inv.Status)
			}
			body := fmt.Sprintf("%s owes %s %s, due %s.",
				deref(inv.ClientName, "Client"), formatCents(inv.AmountCents), inv.Currency, formatDate(inv.DueDate))
			if msg := strings.TrimSpace(a.Message); msg != "" {
				body += "\n" + msg
			}
			level := "info"
			if inv.Status == models.InvoiceStatusOverdue {
				level = "warning"
			}
			if err := s.deps.Notifier.Notify(ctx, level, "Payment reminder: "+inv.Number, body); err != nil {
				return "", err
			}
			return fmt.Sprintf("Reminder for %s sent.", inv.Number), nil
		})
}

// findInvoice resolves ref as an id, or as a number among the outstanding
// invoices shown in the prompt.
func (s *Service) findInvoice(ctx context.Context, outstanding []models.Invoice, ref string) (*models.Invoice, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		inv, err := s.deps.Invoices.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("invoice %s: %w", ref, err)
		}
		return inv, nil
	}
	for i := range outstanding {
		if strings.EqualFold(outstanding[i].Number, ref) {
			return &outstanding[i], nil
		}
	}
	return nil, fmt.Errorf("invoice %q not found", ref)
}

func formatCents(c int64) string {
	sign := ""
	if c < 0 {
		sign, c = "-", -c
	}
	return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

func clientName(c *models.Client) string {
	if c == nil {
		return "no client"
	}
	return c.Name
}
