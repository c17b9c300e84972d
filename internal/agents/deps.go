package agents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/siteparser"
	"github.com/google/uuid"
)

type Clients interface {
	List(ctx context.Context) ([]models.Client, error)
}

type Tasks interface {
	Create(ctx context.Context, t *models.Task) error
	ListOpen(ctx context.Context) ([]models.Task, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Leads interface {
	Create(ctx context.Context, l *models.Lead) error
	ListActive(ctx context.Context) ([]models.Lead, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes *string) error
}

type Invoices interface {
	Create(ctx context.Context, inv *models.Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListOutstanding(ctx context.Context) ([]models.Invoice, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type Notifier interface {
	Notify(ctx context.Context, level, title, body string) error
}

// Campaigns is the part of the campaign service the campaign agent drives.
type Campaigns interface {
	Get(ctx context.Context, id uuid.UUID) (*models.CampaignWithPosts, error)
	SaveBrandInfo(ctx context.Context, actor models.Actor, id uuid.UUID, info models.BrandInfo) error
	SaveStrategy(ctx context.Context, actor models.Actor, id uuid.UUID, strategy string) error
	GenerateCalendar(ctx context.Context, actor models.Actor, id uuid.UUID, posts []models.Post) (int, error)
	EditPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, e models.PostEdit) error
	RegenerateImage(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, prompt *string) (string, error)
}

type SiteAnalyzer interface {
	FetchAndParse(ctx context.Context, rawURL string) (*siteparser.SiteSummary, error)
}

// Deps are the domain collaborators the agent tools act on.
type Deps struct {
	Clients   Clients
	Tasks     Tasks
	Leads     Leads
	Invoices  Invoices
	Notifier  Notifier
	Campaigns Campaigns
	Sites     SiteAnalyzer
}

// resolveClient matches ref against client slugs and names, ignoring case.
// An unknown or empty ref resolves to nil.
func resolveClient(clients []models.Client, ref string) *models.Client {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	for i := range clients {
		if strings.EqualFold(clients[i].Slug, ref) {
			return &clients[i]
		}
	}
	for i := range clients {
		if strings.EqualFold(clients[i].Name, ref) {
			return &clients[i]
		}
	}
	return nil
}

func clientLines(clients []models.Client) []string {
	lines := make([]string, 0, len(clients))
	for _, c := range clients {
		lines = append(lines, fmt.Sprintf("%s: %s", c.Slug, c.Name))
	}
	return lines
}

func clientIDOf(c *models.Client) *uuid.UUID {
	if c == nil {
		return nil
	}
	id := c.ID
	return &id
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input is nil.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD", s)
	}
	return &t, nil
}

// parseTimestamp accepts RFC 3339, or a local-less "YYYY-MM-DDTHH:MM" read as
// UTC.
func parseTimestamp(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q, use RFC 3339", s)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "no date"
	}
	return t.Format(time.DateOnly)
}

func shorten(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
