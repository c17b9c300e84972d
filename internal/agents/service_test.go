package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/agency-hub/backend/internal/gateway"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/agency-hub/backend/internal/siteparser"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type scriptedGateway struct {
	responses []gateway.Message
	repeat    bool
	calls     [][]gateway.Message
	tools     [][]gateway.Tool
}

func (g *scriptedGateway) Complete(_ context.Context, _ string, msgs []gateway.Message, tools []gateway.Tool) (*gateway.Message, error) {
	g.calls = append(g.calls, msgs)
	g.tools = append(g.tools, tools)
	i := len(g.calls) - 1
	if i >= len(g.responses) {
		if !g.repeat {
			return nil, fmt.Errorf("unexpected call %d", i)
		}
		i = len(g.responses) - 1
	}
	resp := g.responses[i]
	return &resp, nil
}

func (g *scriptedGateway) system() string {
	if len(g.calls) == 0 {
		return ""
	}
	return g.calls[0][0].Content
}

type memHistory struct {
	rows map[string][]models.ConversationMessage
}

func keyOf(k models.ConversationKey) string {
	if k.IsCampaign() {
		return "c:" + k.CampaignID.String()
	}
	return "u:" + k.UserID.String() + ":" + k.AgentSlug
}

func (h *memHistory) History(_ context.Context, k models.ConversationKey) ([]models.ConversationMessage, error) {
	return h.rows[keyOf(k)], nil
}

func (h *memHistory) Append(_ context.Context, k models.ConversationKey, msgs []models.ConversationMessage) error {
	h.rows[keyOf(k)] = append(h.rows[keyOf(k)], msgs...)
	return nil
}

type fakeClients struct{ list []models.Client }

func (f *fakeClients) List(context.Context) ([]models.Client, error) { return f.list, nil }

type fakeTasks struct {
	created []models.Task
	open    []models.Task
	updated map[uuid.UUID]string
}

func (f *fakeTasks) Create(_ context.Context, t *models.Task) error {
	t.ID = uuid.New()
	f.created = append(f.created, *t)
	return nil
}

func (f *fakeTasks) ListOpen(context.Context) ([]models.Task, error) { return f.open, nil }

func (f *fakeTasks) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	for _, t := range f.open {
		if t.ID == id {
			f.updated[id] = status
			return nil
		}
	}
	return repositories.ErrNotFound
}

type fakeLeads struct {
	created []models.Lead
	notes   map[uuid.UUID]*string
}

func (f *fakeLeads) Create(_ context.Context, l *models.Lead) error {
	l.ID = uuid.New()
	f.created = append(f.created, *l)
	return nil
}

func (f *fakeLeads) ListActive(context.Context) ([]models.Lead, error) { return nil, nil }

func (f *fakeLeads) UpdateStatus(_ context.Context, id uuid.UUID, _ string, notes *string) error {
	f.notes[id] = notes
	return nil
}

type fakeInvoices struct {
	outstanding []models.Invoice
	created     []models.Invoice
	updated     map[uuid.UUID]string
}

func (f *fakeInvoices) Create(_ context.Context, inv *models.Invoice) error {
	inv.ID = uuid.New()
	inv.Number = fmt.Sprintf("INV-%04d", len(f.created)+1)
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	f.created = append(f.created, *inv)
	return nil
}

func (f *fakeInvoices) GetByID(_ context.Context, id uuid.UUID) (*models.Invoice, error) {
	for i := range f.outstanding {
		if f.outstanding[i].ID == id {
			return &f.outstanding[i], nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeInvoices) ListOutstanding(context.Context) ([]models.Invoice, error) {
	return f.outstanding, nil
}

func (f *fakeInvoices) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	if _, err := f.GetByID(context.Background(), id); err != nil {
		return err
	}
	f.updated[id] = status
	return nil
}

type sentNotification struct{ level, title, body string }

type fakeNotifier struct{ sent []sentNotification }

func (f *fakeNotifier) Notify(_ context.Context, level, title, body string) error {
	f.sent = append(f.sent, sentNotification{level, title, body})
	return nil
}

type fakeCampaigns struct {
	campaign  *models.CampaignWithPosts
	brand     *models.BrandInfo
	strategy  string
	calendar  []models.Post
	edits     map[uuid.UUID]models.PostEdit
	images    []uuid.UUID
	actors    []models.Actor
	saveBrand error
}

func (f *fakeCampaigns) Get(_ context.Context, id uuid.UUID) (*models.CampaignWithPosts, error) {
	if f.campaign == nil || f.campaign.ID != id {
		return nil, repositories.ErrNotFound
	}
	return f.campaign, nil
}

func (f *fakeCampaigns) SaveBrandInfo(_ context.Context, a models.Actor, _ uuid.UUID, info models.BrandInfo) error {
	if f.saveBrand != nil {
		return f.saveBrand
	}
	f.actors = append(f.actors, a)
	f.brand = &info
	return nil
}

func (f *fakeCampaigns) SaveStrategy(_ context.Context, a models.Actor, _ uuid.UUID, s string) error {
	f.actors = append(f.actors, a)
	f.strategy = s
	return nil
}

func (f *fakeCampaigns) GenerateCalendar(_ context.Context, a models.Actor, _ uuid.UUID, posts []models.Post) (int, error) {
	f.actors = append(f.actors, a)
	f.calendar = posts
	if f.campaign != nil {
		c := *f.campaign
		c.Posts = nil
		for _, p := range posts {
			p.ID, p.CampaignID, p.Status = uuid.New(), c.ID, models.PostStatusDraft
			c.Posts = append(c.Posts, p)
		}
		f.campaign = &c
	}
	return len(posts), nil
}

func (f *fakeCampaigns) EditPost(_ context.Context, a models.Actor, _, postID uuid.UUID, e models.PostEdit) error {
	f.actors = append(f.actors, a)
	f.edits[postID] = e
	return nil
}

func (f *fakeCampaigns) RegenerateImage(_ context.Context, a models.Actor, _, postID uuid.UUID, _ *string) (string, error) {
	f.actors = append(f.actors, a)
	f.images = append(f.images, postID)
	return "https://cdn/new.png", nil
}

type fakeSites struct{ fetched []string }

func (f *fakeSites) FetchAndParse(_ context.Context, url string) (*siteparser.SiteSummary, error) {
	f.fetched = append(f.fetched, url)
	return &siteparser.SiteSummary{URL: url, Title: "Bean There Coffee", Description: "Small batch roastery"}, nil
}

type harness struct {
	svc       *Service
	gw        *scriptedGateway
	history   *memHistory
	clients   *fakeClients
	tasks     *fakeTasks
	leads     *fakeLeads
	invoices  *fakeInvoices
	notifier  *fakeNotifier
	campaigns *fakeCampaigns
	sites     *fakeSites
}

func newHarness(responses ...gateway.Message) *harness {
	website := "https://beanthere.example"
	h := &harness{
		gw:      &scriptedGateway{responses: responses},
		history: &memHistory{rows: map[string][]models.ConversationMessage{}},
		clients: &fakeClients{list: []models.Client{
			{ID: uuid.New(), Slug: "acme", Name: "Acme Inc"},
			{ID: uuid.New(), Slug: "bean-there", Name: "Bean There", Website: &website},
		}},
		tasks:     &fakeTasks{updated: map[uuid.UUID]string{}},
		leads:     &fakeLeads{notes: map[uuid.UUID]*string{}},
		invoices:  &fakeInvoices{updated: map[uuid.UUID]string{}},
		notifier:  &fakeNotifier{},
		campaigns: &fakeCampaigns{edits: map[uuid.UUID]models.PostEdit{}},
		sites:     &fakeSites{},
	}
	r := relay.New(h.gw, h.history, zap.NewNop())
	h.svc = NewService(r, h.history, Deps{
		Clients:   h.clients,
		Tasks:     h.tasks,
		Leads:     h.leads,
		Invoices:  h.invoices,
		Notifier:  h.notifier,
		Campaigns: h.campaigns,
		Sites:     h.sites,
	}, nil, zap.NewNop())
	h.svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	return h
}

func call(id, name, args string) gateway.Message {
	return gateway.Message{Role: "assistant", ToolCalls: []gateway.ToolCall{
		{ID: id, Type: "function", Function: gateway.FunctionCall{Name: name, Arguments: args}},
	}}
}

func reply(text string) gateway.Message {
	return gateway.Message{Role: "assistant", Content: text}
}

func toolRows(rows []models.ConversationMessage) []string {
	var out []string
	for _, r := range rows {
		if r.Role == models.RoleTool {
			out = append(out, r.Content)
		}
	}
	return out
}

func TestDefaultPersonas(t *testing.T) {
	p := DefaultPersonas()
	tests := []struct {
		slug   string
		rounds int
	}{
		{SlugHenry, 5},
		{SlugFinance, 5},
		{SlugMarketing, 5},
		{SlugCampaign, 8},
	}
	for _, tt := range tests {
		t.Run(tt.slug, func(t *testing.T) {
			got, ok := p[tt.slug]
			if !ok {
				t.Fatalf("persona %s missing", tt.slug)
			}
			if got.MaxRounds != tt.rounds {
				t.Errorf("MaxRounds = %d, want %d", got.MaxRounds, tt.rounds)
			}
			if got.Slug != tt.slug || got.AgentID == "" {
				t.Errorf("unexpected persona %+v", got)
			}
		})
	}
	for _, status := range []string{
		models.CampaignStatusDiscovery, models.CampaignStatusStrategy, models.CampaignStatusGenerating,
		models.CampaignStatusApproval, models.CampaignStatusActive, models.CampaignStatusCompleted,
	} {
		if len(p[SlugCampaign].Phases[status]) == 0 {
			t.Errorf("campaign persona has no instructions for %s", status)
		}
	}
}

func TestParsePersonasRejectsIncomplete(t *testing.T) {
	if _, err := ParsePersonas([]byte("henry:\n  persona: hi\n")); err == nil {
		t.Error("expected error for missing agents")
	}
	if _, err := ParsePersonas([]byte("henry: [")); err == nil {
		t.Error("expected decode error")
	}
}

func TestResolveClient(t *testing.T) {
	clients := []models.Client{
		{Slug: "acme", Name: "Acme Inc"},
		{Slug: "bean-there", Name: "Bean There"},
	}
	tests := []struct {
		ref  string
		want string
	}{
		{"acme", "acme"},
		{"ACME", "acme"},
		{" bean-there ", "bean-there"},
		{"Bean There", "bean-there"},
		{"unknown", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got := resolveClient(clients, tt.ref)
			if tt.want == "" {
				if got != nil {
					t.Errorf("resolveClient(%q) = %s, want nil", tt.ref, got.Slug)
				}
				return
			}
			if got == nil || got.Slug != tt.want {
				t.Errorf("resolveClient(%q) = %v, want %s", tt.ref, got, tt.want)
			}
		})
	}
}

func TestChatRejectsBadInput(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	if _, err := h.svc.Chat(ctx, uuid.New(), "campaign", "hi"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("campaign via Chat: expected ErrUnknownAgent, got %v", err)
	}
	if _, err := h.svc.Chat(ctx, uuid.New(), "nobody", "hi"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
	if _, err := h.svc.Chat(ctx, uuid.New(), SlugHenry, "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
	if _, err := h.svc.ChatCampaign(ctx, uuid.New(), uuid.New(), "hi"); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if len(h.gw.calls) != 0 {
		t.Errorf("gateway called %d times", len(h.gw.calls))
	}
}

func TestHenryCreatesTaskWithSoftClient(t *testing.T) {
	due := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	h := newHarness(
		gateway.Message{Role: "assistant", ToolCalls: []gateway.ToolCall{
			{ID: "c1", Function: gateway.FunctionCall{Name: "create_task", Arguments: `{"title":"Send moodboard","client":"ACME","due_date":"2026-03-04"}`}},
			{ID: "c2", Function: gateway.FunctionCall{Name: "create_task", Arguments: `{"title":"Call printer","client":"Globex"}`}},
		}},
		reply("Both tasks are on the list."),
	)
	h.tasks.open = []models.Task{{ID: uuid.New(), Title: "Invoice review", Status: models.TaskStatusOpen, DueDate: &due}}
	user := uuid.New()

	res, err := h.svc.Chat(context.Background(), user, SlugHenry, "Remind me to send Acme the moodboard and to call the printer")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Reply != "Both tasks are on the list." || res.ToolCalls != 2 {
		t.Errorf("unexpected result %+v", res)
	}

	if len(h.tasks.created) != 2 {
		t.Fatalf("created %d tasks", len(h.tasks.created))
	}
	if id := h.tasks.created[0].ClientID; id == nil || *id != h.clients.list[0].ID {
		t.Errorf("first task client = %v, want acme", id)
	}
	if h.tasks.created[0].DueDate == nil || h.tasks.created[0].DueDate.Day() != 4 {
		t.Errorf("due date = %v", h.tasks.created[0].DueDate)
	}
	if h.tasks.created[1].ClientID != nil {
		t.Error("unknown client should leave the task unassigned")
	}

	system := h.gw.system()
	for _, want := range []string{"You are Henry", "acme: Acme Inc", "Invoice review", "2026-03-05", "Monday, 2026-03-02"} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt lacks %q:\n%s", want, system)
		}
	}

	rows := h.history.rows[keyOf(models.IdentityConversation(user, SlugHenry))]
	if len(rows) != 4 || rows[0].Role != models.RoleUser || rows[3].Role != models.RoleAssistant {
		t.Errorf("stored %d rows: %+v", len(rows), rows)
	}
}

func TestFinanceUnknownInvoiceDoesNotAbort(t *testing.T) {
	h := newHarness(
		call("c1", "update_invoice_status", `{"invoice":"`+uuid.NewString()+`","status":"paid"}`),
		reply("I could not find that invoice."),
	)

	res, err := h.svc.Chat(context.Background(), uuid.New(), SlugFinance, "Mark the invoice paid")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if res.Reply != "I could not find that invoice." {
		t.Errorf("reply = %q", res.Reply)
	}
	var results []string
	for _, rows := range h.history.rows {
		results = append(results, toolRows(rows)...)
	}
	if len(results) != 1 || !strings.HasPrefix(results[0], "Error: ") {
		t.Errorf("tool results = %v", results)
	}
}

func TestFinanceTools(t *testing.T) {
	clientID := uuid.New()
	clientName := "Acme Inc"
	past := time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC)
	overdue := models.Invoice{
		ID: uuid.New(), ClientID: &clientID, ClientName: &clientName, Number: "INV-0007",
		AmountCents: 250000, Currency: "EUR", Status: models.InvoiceStatusOverdue, DueDate: &past,
	}

	h := newHarness(
		gateway.Message{Role: "assistant", ToolCalls: []gateway.ToolCall{
			{ID: "a", Function: gateway.FunctionCall{Name: "create_invoice", Arguments: `{"client":"acme","description":"March retainer","amount":1250.5,"currency":"usd"}`}},
			{ID: "b", Function: gateway.FunctionCall{Name: "send_payment_reminder", Arguments: `{"invoice":"inv-0007"}`}},
			{ID: "c", Function: gateway.FunctionCall{Name: "create_invoice", Arguments: `{"description":"Bad","amount":-3}`}},
		}},
		reply("Done and reminded."),
	)
	h.invoices.outstanding = []models.Invoice{overdue}

	if _, err := h.svc.Chat(context.Background(), uuid.New(), SlugFinance, "Bill Acme 1250.50 and chase INV-0007"); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	if len(h.invoices.created) != 1 {
		t.Fatalf("created %d invoices", len(h.invoices.created))
	}
	inv := h.invoices.created[0]
	if inv.AmountCents != 125050 || inv.Currency != "USD" || inv.ClientID == nil {
		t.Errorf("unexpected invoice %+v", inv)
	}

	if len(h.notifier.sent) != 1 {
		t.Fatalf("sent %d notifications", len(h.notifier.sent))
	}
	n := h.notifier.sent[0]
	if n.level != "warning" || n.title != "Payment reminder: INV-0007" || !strings.Contains(n.body, "2500.00 EUR") {
		t.Errorf("unexpected reminder %+v", n)
	}

	system := h.gw.system()
	if !strings.Contains(system, "INV-0007 [overdue] 2500.00 EUR for Acme Inc, due 2026-02-20, 10 days late") {
		t.Errorf("system prompt lacks overdue invoice:\n%s", system)
	}
}

func TestMarketingUpdatesLead(t *testing.T) {
	lead := uuid.New()
	h := newHarness(
		call("c1", "update_lead_status", `{"lead_id":"`+lead.String()+`","status":"qualified","notes":"Budget confirmed"}`),
		call("c2", "update_lead_status", `{"lead_id":"`+lead.String()+`","status":"married"}`),
		reply("Updated."),
	)

	if _, err := h.svc.Chat(context.Background(), uuid.New(), SlugMarketing, "Acme confirmed budget"); err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if n := h.leads.notes[lead]; n == nil || *n != "Budget confirmed" {
		t.Errorf("notes = %v", n)
	}
	if len(h.gw.calls) != 3 {
		t.Errorf("gateway calls = %d, want 3", len(h.gw.calls))
	}
	last := h.gw.calls[2]
	if got := last[len(last)-1]; got.Role != models.RoleTool || !strings.Contains(got.Content, "must be one of") {
		t.Errorf("enum violation not reported: %+v", got)
	}
}

func newCampaign(status string) *models.CampaignWithPosts {
	voice := "Warm and nerdy"
	c := &models.CampaignWithPosts{
		Campaign: models.Campaign{
			ID: uuid.New(), ClientID: uuid.New(), Name: "Spring Launch",
			Status: status, ImageModel: models.ImageModelGemini, BrandVoice: &voice,
		},
		ClientName: "Bean There",
	}
	for i := 0; i < 3; i++ {
		c.Posts = append(c.Posts, models.Post{ID: uuid.New(), CampaignID: c.ID, Caption: fmt.Sprintf("Post %d", i+1), Status: models.PostStatusDraft})
	}
	return c
}

func TestCampaignAgentCalendar(t *testing.T) {
	h := newHarness(
		call("c1", "generate_content_calendar", `{"posts":[
			{"scheduled_at":"2026-03-10T09:00:00+01:00","caption":"Meet our beans","hashtags":"#coffee","image_prompt":"beans on a table","theme":"product"},
			{"scheduled_at":"2026-03-12T18:30","caption":"Behind the roaster"}
		]}`),
		reply("Your calendar is ready for review."),
	)
	c := newCampaign(models.CampaignStatusStrategy)
	h.campaigns.campaign = c
	h.clients.list[1].ID = c.ClientID
	user := uuid.New()

	res, err := h.svc.ChatCampaign(context.Background(), user, c.ID, "Looks good, build the calendar")
	if err != nil {
		t.Fatalf("ChatCampaign: %v", err)
	}
	if res.Reply != "Your calendar is ready for review." {
		t.Errorf("reply = %q", res.Reply)
	}

	if len(h.campaigns.calendar) != 2 {
		t.Fatalf("calendar has %d posts", len(h.campaigns.calendar))
	}
	first := h.campaigns.calendar[0]
	if first.ScheduledAt == nil || !first.ScheduledAt.Equal(time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)) {
		t.Errorf("scheduled_at = %v", first.ScheduledAt)
	}
	if first.ImagePrompt == nil || first.Theme == nil || first.Hashtags != "#coffee" {
		t.Errorf("unexpected first post %+v", first)
	}
	if h.campaigns.calendar[1].ImagePrompt != nil {
		t.Error("empty image prompt should be nil")
	}
	if a := h.campaigns.actors[0]; a.Type != models.ActorAgent || a.UserID == nil || *a.UserID != user {
		t.Errorf("actor = %+v", a)
	}

	if rows := h.history.rows[keyOf(models.CampaignConversation(c.ID))]; len(rows) != 3 {
		t.Errorf("campaign conversation has %d rows, want 3", len(rows))
	}

	system := h.gw.system()
	for _, want := range []string{
		"Status: strategy",
		"Client website: https://beanthere.example",
		"Brand voice: Warm and nerdy",
		"No strategy saved yet.",
		"#2 [draft] unscheduled, no image, theme none: Post 2",
		"Save the agreed strategy with save_strategy.",
	} {
		if !strings.Contains(system, want) {
			t.Errorf("system prompt lacks %q:\n%s", want, system)
		}
	}
	if strings.Contains(system, "call analyze_website first") {
		t.Error("discovery instructions leaked into strategy phase")
	}

	var names []string
	for _, tool := range h.gw.tools[0] {
		names = append(names, tool.Function.Name)
	}
	want := "analyze_website,save_brand_info,save_strategy,generate_content_calendar,update_post,regenerate_image"
	if strings.Join(names, ",") != want {
		t.Errorf("tools = %v", names)
	}
}

func TestCampaignAgentPostReferences(t *testing.T) {
	c := newCampaign(models.CampaignStatusApproval)
	h := newHarness(
		gateway.Message{Role: "assistant", ToolCalls: []gateway.ToolCall{
			{ID: "a", Function: gateway.FunctionCall{Name: "update_post", Arguments: `{"post_id":"#2","caption":"Fresh caption"}`}},
			{ID: "b", Function: gateway.FunctionCall{Name: "regenerate_image", Arguments: `{"post_id":"` + c.Posts[0].ID.String() + `"}`}},
			{ID: "c", Function: gateway.FunctionCall{Name: "update_post", Arguments: `{"post_id":"9","caption":"x"}`}},
			{ID: "d", Function: gateway.FunctionCall{Name: "update_post", Arguments: `{"post_id":"1"}`}},
		}},
		reply("Updated."),
	)
	h.campaigns.campaign = c

	if _, err := h.svc.ChatCampaign(context.Background(), uuid.New(), c.ID, "Change post 2 and redraw post 1"); err != nil {
		t.Fatalf("ChatCampaign: %v", err)
	}

	e, ok := h.campaigns.edits[c.Posts[1].ID]
	if !ok || e.Caption == nil || *e.Caption != "Fresh caption" {
		t.Errorf("post 2 edit = %+v", e)
	}
	if len(h.campaigns.edits) != 1 {
		t.Errorf("edits = %d, want 1", len(h.campaigns.edits))
	}
	if len(h.campaigns.images) != 1 || h.campaigns.images[0] != c.Posts[0].ID {
		t.Errorf("images = %v", h.campaigns.images)
	}

	results := toolRows(h.history.rows[keyOf(models.CampaignConversation(c.ID))])
	if len(results) != 4 {
		t.Fatalf("tool results = %v", results)
	}
	if !strings.Contains(results[2], "not found") || !strings.Contains(results[3], "nothing to update") {
		t.Errorf("unexpected error results %v", results[2:])
	}
}

func TestCampaignAgentReferencesAfterCalendar(t *testing.T) {
	c := newCampaign(models.CampaignStatusApproval)
	old := c.Posts[0].ID
	h := newHarness(
		call("a", "generate_content_calendar", `{"posts":[
			{"scheduled_at":"2026-03-10T09:00:00Z","caption":"Meet our beans"},
			{"scheduled_at":"2026-03-12T09:00:00Z","caption":"Behind the roaster"}
		]}`),
		call("b", "update_post", `{"post_id":"#1","caption":"Meet our new beans"}`),
		reply("Done."),
	)
	h.campaigns.campaign = c

	if _, err := h.svc.ChatCampaign(context.Background(), uuid.New(), c.ID, "Redo the calendar and tweak the first post"); err != nil {
		t.Fatalf("ChatCampaign: %v", err)
	}

	first := h.campaigns.campaign.Posts[0].ID
	if _, ok := h.campaigns.edits[old]; ok {
		t.Error("edit went to a post removed by the new calendar")
	}
	if e, ok := h.campaigns.edits[first]; !ok || e.Caption == nil || *e.Caption != "Meet our new beans" {
		t.Errorf("edits = %+v, want one for %s", h.campaigns.edits, first)
	}

	results := toolRows(h.history.rows[keyOf(models.CampaignConversation(c.ID))])
	if len(results) != 2 || !strings.Contains(results[0], "#1 id "+first.String()) {
		t.Errorf("calendar result does not list new ids: %v", results)
	}
}

func TestCampaignAgentAnalyzeWebsiteAndBrandInfo(t *testing.T) {
	c := newCampaign(models.CampaignStatusDiscovery)
	c.Posts = nil
	h := newHarness(
		call("a", "analyze_website", `{}`),
		call("b", "save_brand_info", `{"brand_voice":"Playful","target_audience":"Students","content_themes":["coffee","study"],"posts_per_week":3,"start_date":"2026-04-01","end_date":"2026-04-30"}`),
		reply("Saved."),
	)
	h.campaigns.campaign = c
	h.clients.list[1].ID = c.ClientID

	if _, err := h.svc.ChatCampaign(context.Background(), uuid.New(), c.ID, "Start with our website"); err != nil {
		t.Fatalf("ChatCampaign: %v", err)
	}
	if len(h.sites.fetched) != 1 || h.sites.fetched[0] != "https://beanthere.example" {
		t.Errorf("fetched = %v", h.sites.fetched)
	}
	b := h.campaigns.brand
	if b == nil || *b.BrandVoice != "Playful" || *b.PostsPerWeek != 3 || len(b.ContentThemes) != 2 || b.EndDate.Day() != 30 {
		t.Errorf("brand info = %+v", b)
	}
	if !strings.Contains(h.gw.system(), "No posts yet.") {
		t.Error("empty calendar not described")
	}
}

func TestCampaignAgentRoundBound(t *testing.T) {
	c := newCampaign(models.CampaignStatusStrategy)
	h := newHarness(call("x", "save_strategy", `{"strategy":"Again"}`))
	h.gw.repeat = true
	h.campaigns.campaign = c

	res, err := h.svc.ChatCampaign(context.Background(), uuid.New(), c.ID, "loop")
	if err != nil {
		t.Fatalf("ChatCampaign: %v", err)
	}
	if len(h.gw.calls) != 8 {
		t.Errorf("gateway calls = %d, want 8", len(h.gw.calls))
	}
	if res.Reply != relay.FallbackReply {
		t.Errorf("reply = %q", res.Reply)
	}
}

func TestHistory(t *testing.T) {
	h := newHarness(reply("Hello!"))
	user := uuid.New()
	if _, err := h.svc.Chat(context.Background(), user, SlugMarketing, "Hi"); err != nil {
		t.Fatal(err)
	}
	rows, err := h.svc.History(context.Background(), user, SlugMarketing)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].Content != "Hi" || rows[1].Content != "Hello!" {
		t.Errorf("history = %+v", rows)
	}
	if rows, _ := h.svc.History(context.Background(), user, SlugHenry); len(rows) != 0 {
		t.Errorf("henry history should be separate, got %d rows", len(rows))
	}
	if _, err := h.svc.History(context.Background(), user, "campaign"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}
