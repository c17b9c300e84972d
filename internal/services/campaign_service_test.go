package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeCampaigns struct {
	byID map[uuid.UUID]*models.Campaign
}

func (f *fakeCampaigns) Create(_ context.Context, c *models.Campaign) error {
	c.ID = uuid.New()
	cp := *c
	f.byID[c.ID] = &cp
	return nil
}

func (f *fakeCampaigns) GetByID(_ context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCampaigns) GetWithClient(ctx context.Context, id uuid.UUID) (*models.CampaignWithPosts, error) {
	c, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &models.CampaignWithPosts{Campaign: *c}, nil
}

func (f *fakeCampaigns) List(context.Context, repositories.CampaignFilter) ([]models.Campaign, error) {
	return nil, nil
}

func (f *fakeCampaigns) UpdateBrandInfo(_ context.Context, id uuid.UUID, b models.BrandInfo, status string) error {
	c := f.byID[id]
	c.BrandVoice, c.TargetAudience, c.Status = b.BrandVoice, b.TargetAudience, status
	return nil
}

func (f *fakeCampaigns) UpdateStrategy(_ context.Context, id uuid.UUID, strategy, status string) error {
	c := f.byID[id]
	c.Strategy, c.Status = &strategy, status
	return nil
}

func (f *fakeCampaigns) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	f.byID[id].Status = status
	return nil
}

func (f *fakeCampaigns) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

type fakePosts struct {
	byID      map[uuid.UUID]*models.Post
	campaigns *fakeCampaigns
	failNext  error
}

func (f *fakePosts) GetByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	p, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePosts) ReplaceCalendar(_ context.Context, campaignID uuid.UUID, posts []models.Post, status string) error {
	if f.failNext != nil {
		return f.failNext
	}
	for id, p := range f.byID {
		if p.CampaignID == campaignID && p.Status != models.PostStatusPosted {
			delete(f.byID, id)
		}
	}
	for i := range posts {
		p := posts[i]
		p.ID = uuid.New()
		p.CampaignID = campaignID
		f.byID[p.ID] = &p
	}
	f.campaigns.byID[campaignID].Status = status
	return nil
}

func (f *fakePosts) UpdateStatus(_ context.Context, id uuid.UUID, from, to string) error {
	p, ok := f.byID[id]
	if !ok || p.Status != from {
		return repositories.ErrNotFound
	}
	p.Status = to
	return nil
}

func (f *fakePosts) ApproveDrafts(_ context.Context, campaignID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, p := range f.byID {
		if p.CampaignID == campaignID && p.Status == models.PostStatusDraft {
			p.Status = models.PostStatusApproved
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (f *fakePosts) ResetFailed(_ context.Context, id uuid.UUID) error {
	p := f.byID[id]
	p.Status, p.Notes = models.PostStatusApproved, nil
	return nil
}

func (f *fakePosts) UpdateImage(_ context.Context, id uuid.UUID, url string, prompt *string) error {
	p := f.byID[id]
	p.ImageURL = &url
	if prompt != nil {
		p.ImagePrompt = prompt
	}
	return nil
}

func (f *fakePosts) Edit(_ context.Context, id uuid.UUID, e models.PostEdit) error {
	p := f.byID[id]
	if e.Caption != nil {
		p.Caption = *e.Caption
	}
	if e.ScheduledAt != nil {
		p.ScheduledAt = e.ScheduledAt
	}
	return nil
}

func (f *fakePosts) CountBlocking(_ context.Context, campaignID uuid.UUID) (int, error) {
	n := 0
	for _, p := range f.byID {
		if p.CampaignID == campaignID && (p.Status == models.PostStatusDraft || p.Status == models.PostStatusRejected) {
			n++
		}
	}
	return n, nil
}

type fakeAudit struct{ entries []models.AuditLog }

func (f *fakeAudit) Log(_ context.Context, e models.AuditLog) error {
	f.entries = append(f.entries, e)
	return nil
}

type fakePublisher struct{ events []events.Event }

func (f *fakePublisher) Publish(_ context.Context, _ string, e events.Event) error {
	f.events = append(f.events, e)
	return nil
}

type fakeImages struct {
	calls []string
	err   error
}

func (f *fakeImages) Generate(_ context.Context, model, prompt string, _ *string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, model+":"+prompt)
	return "https://cdn.example/img.png", nil
}

type serviceFixture struct {
	svc       *CampaignService
	campaigns *fakeCampaigns
	posts     *fakePosts
	audit     *fakeAudit
	pub       *fakePublisher
	images    *fakeImages
}

func newFixture() *serviceFixture {
	campaigns := &fakeCampaigns{byID: map[uuid.UUID]*models.Campaign{}}
	f := &serviceFixture{
		campaigns: campaigns,
		posts:     &fakePosts{byID: map[uuid.UUID]*models.Post{}, campaigns: campaigns},
		audit:     &fakeAudit{},
		pub:       &fakePublisher{},
		images:    &fakeImages{},
	}
	f.svc = NewCampaignService(f.campaigns, f.posts, f.audit, f.images, f.pub, zap.NewNop())
	return f
}

func (f *serviceFixture) campaign(status string) uuid.UUID {
	id := uuid.New()
	f.campaigns.byID[id] = &models.Campaign{ID: id, ClientID: uuid.New(), Name: "Spring", Status: status, ImageModel: models.ImageModelOpenAI}
	return id
}

func (f *serviceFixture) post(campaignID uuid.UUID, status string) uuid.UUID {
	id := uuid.New()
	prompt := "a cup of coffee"
	f.posts.byID[id] = &models.Post{ID: id, CampaignID: campaignID, Caption: "c", Status: status, ImagePrompt: &prompt}
	return id
}

var actor = models.AgentActor(uuid.New())

func TestCampaignLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	c, err := f.svc.Create(ctx, actor, uuid.New(), "  Spring launch ", "", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.Status != models.CampaignStatusDiscovery || c.ImageModel != models.ImageModelOpenAI || c.Name != "Spring launch" {
		t.Fatalf("unexpected campaign %+v", c)
	}

	voice := "warm"
	if err := f.svc.SaveBrandInfo(ctx, actor, c.ID, models.BrandInfo{BrandVoice: &voice}); err != nil {
		t.Fatalf("SaveBrandInfo: %v", err)
	}
	if err := f.svc.SaveStrategy(ctx, actor, c.ID, "Three pillars."); err != nil {
		t.Fatalf("SaveStrategy: %v", err)
	}
	if got := f.campaigns.byID[c.ID].Status; got != models.CampaignStatusStrategy {
		t.Fatalf("status after strategy = %s", got)
	}

	n, err := f.svc.GenerateCalendar(ctx, actor, c.ID, []models.Post{{Caption: "one"}, {Caption: "two", Status: models.PostStatusApproved}})
	if err != nil || n != 2 {
		t.Fatalf("GenerateCalendar = %d, %v", n, err)
	}
	if got := f.campaigns.byID[c.ID].Status; got != models.CampaignStatusApproval {
		t.Fatalf("status after calendar = %s", got)
	}
	for _, p := range f.posts.byID {
		if p.Status != models.PostStatusDraft {
			t.Errorf("generated post has status %s, want draft", p.Status)
		}
	}

	approved, err := f.svc.BulkApprove(ctx, actor, c.ID)
	if err != nil || approved != 2 {
		t.Fatalf("BulkApprove = %d, %v", approved, err)
	}
	if err := f.svc.Activate(ctx, actor, c.ID); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if err := f.svc.Complete(ctx, actor, c.ID); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	// discovery->strategy, strategy->generating, generating->approval,
	// approval->active, active->completed, plus two post approvals.
	var campaignEvents, postEvents int
	for _, e := range f.pub.events {
		switch e.Type {
		case events.EventCampaignStatusChanged:
			campaignEvents++
		case events.EventPostStatusChanged:
			postEvents++
		}
	}
	if campaignEvents != 5 || postEvents != 2 {
		t.Errorf("events: campaign=%d post=%d, want 5 and 2", campaignEvents, postEvents)
	}
	for _, e := range f.audit.entries {
		if e.ActorType != models.ActorAgent {
			t.Errorf("audit actor = %s", e.ActorType)
		}
	}
}

func TestCampaignInvalidTransitions(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name   string
		status string
		run    func(*CampaignService, uuid.UUID) error
	}{
		{"brand info after approval", models.CampaignStatusApproval, func(s *CampaignService, id uuid.UUID) error {
			return s.SaveBrandInfo(ctx, actor, id, models.BrandInfo{})
		}},
		{"strategy when active", models.CampaignStatusActive, func(s *CampaignService, id uuid.UUID) error {
			return s.SaveStrategy(ctx, actor, id, "x")
		}},
		{"calendar in discovery", models.CampaignStatusDiscovery, func(s *CampaignService, id uuid.UUID) error {
			_, err := s.GenerateCalendar(ctx, actor, id, []models.Post{{Caption: "x"}})
			return err
		}},
		{"activate from strategy", models.CampaignStatusStrategy, func(s *CampaignService, id uuid.UUID) error {
			return s.Activate(ctx, actor, id)
		}},
		{"complete from approval", models.CampaignStatusApproval, func(s *CampaignService, id uuid.UUID) error {
			return s.Complete(ctx, actor, id)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			id := f.campaign(tt.status)
			err := tt.run(f.svc, id)
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("expected ErrInvalidTransition, got %v", err)
			}
			if f.campaigns.byID[id].Status != tt.status {
				t.Errorf("status changed to %s", f.campaigns.byID[id].Status)
			}
		})
	}
}

func TestActivateWithUnapprovedPostsIsAllowedButAudited(t *testing.T) {
	f := newFixture()
	id := f.campaign(models.CampaignStatusApproval)
	f.post(id, models.PostStatusApproved)
	f.post(id, models.PostStatusDraft)

	if err := f.svc.Activate(context.Background(), models.UserActor(uuid.New()), id); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	if f.campaigns.byID[id].Status != models.CampaignStatusActive {
		t.Error("campaign not active")
	}

	found := false
	for _, e := range f.audit.entries {
		if e.Action == "campaign_activated_with_unapproved_posts" {
			found = true
		}
	}
	if !found {
		t.Error("missing audit entry for unapproved posts")
	}
}

func TestGenerateCalendarRetryFromGenerating(t *testing.T) {
	f := newFixture()
	id := f.campaign(models.CampaignStatusStrategy)
	f.posts.failNext = errors.New("tx aborted")

	if _, err := f.svc.GenerateCalendar(context.Background(), actor, id, []models.Post{{Caption: "x"}}); err == nil {
		t.Fatal("expected error")
	}
	if f.campaigns.byID[id].Status != models.CampaignStatusGenerating {
		t.Fatalf("status = %s, want generating", f.campaigns.byID[id].Status)
	}

	f.posts.failNext = nil
	if _, err := f.svc.GenerateCalendar(context.Background(), actor, id, []models.Post{{Caption: "x"}}); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if f.campaigns.byID[id].Status != models.CampaignStatusApproval {
		t.Errorf("status = %s, want approval", f.campaigns.byID[id].Status)
	}
}

func TestGenerateCalendarKeepsPostedPosts(t *testing.T) {
	f := newFixture()
	id := f.campaign(models.CampaignStatusApproval)
	posted := f.post(id, models.PostStatusPosted)
	f.post(id, models.PostStatusDraft)

	if _, err := f.svc.GenerateCalendar(context.Background(), actor, id, []models.Post{{Caption: "new"}}); err != nil {
		t.Fatalf("GenerateCalendar: %v", err)
	}
	if _, ok := f.posts.byID[posted]; !ok {
		t.Error("posted post was deleted")
	}
	if len(f.posts.byID) != 2 {
		t.Errorf("posts = %d, want 2", len(f.posts.byID))
	}
}

func TestGenerateCalendarValidation(t *testing.T) {
	f := newFixture()
	id := f.campaign(models.CampaignStatusStrategy)

	for _, posts := range [][]models.Post{nil, {{Caption: "ok"}, {Caption: "  "}}} {
		if _, err := f.svc.GenerateCalendar(context.Background(), actor, id, posts); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	}
	if f.campaigns.byID[id].Status != models.CampaignStatusStrategy {
		t.Error("status changed on invalid input")
	}
}

func TestPostActions(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cid := f.campaign(models.CampaignStatusApproval)
	other := f.campaign(models.CampaignStatusApproval)

	draft := f.post(cid, models.PostStatusDraft)
	if err := f.svc.RejectPost(ctx, actor, cid, draft); err != nil {
		t.Fatalf("RejectPost: %v", err)
	}
	if err := f.svc.ApprovePost(ctx, actor, cid, draft); err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if f.posts.byID[draft].Status != models.PostStatusApproved {
		t.Errorf("status = %s", f.posts.byID[draft].Status)
	}

	if err := f.svc.ApprovePost(ctx, actor, other, draft); !errors.Is(err, ErrNotFound) {
		t.Errorf("post of another campaign: expected ErrNotFound, got %v", err)
	}

	posted := f.post(cid, models.PostStatusPosted)
	if err := f.svc.RejectPost(ctx, actor, cid, posted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reject posted: expected ErrInvalidTransition, got %v", err)
	}
	caption := "new"
	if err := f.svc.EditPost(ctx, actor, cid, posted, models.PostEdit{Caption: &caption}); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("edit posted: expected ErrInvalidTransition, got %v", err)
	}
	if err := f.svc.ResetFailedPost(ctx, actor, cid, posted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("reset posted: expected ErrInvalidTransition, got %v", err)
	}

	failed := f.post(cid, models.PostStatusFailed)
	if err := f.svc.ResetFailedPost(ctx, actor, cid, failed); err != nil {
		t.Fatalf("ResetFailedPost: %v", err)
	}
	if f.posts.byID[failed].Status != models.PostStatusApproved {
		t.Errorf("reset status = %s", f.posts.byID[failed].Status)
	}

	at := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	if err := f.svc.EditPost(ctx, actor, cid, draft, models.PostEdit{Caption: &caption, ScheduledAt: &at}); err != nil {
		t.Fatalf("EditPost: %v", err)
	}
	if f.posts.byID[draft].Caption != "new" || !f.posts.byID[draft].ScheduledAt.Equal(at) {
		t.Errorf("edit not applied: %+v", f.posts.byID[draft])
	}
	empty := " "
	if err := f.svc.EditPost(ctx, actor, cid, draft, models.PostEdit{Caption: &empty}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty caption: expected ErrInvalidInput, got %v", err)
	}
}

func TestRegenerateImage(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cid := f.campaign(models.CampaignStatusApproval)
	pid := f.post(cid, models.PostStatusDraft)

	url, err := f.svc.RegenerateImage(ctx, actor, cid, pid, nil)
	if err != nil {
		t.Fatalf("RegenerateImage: %v", err)
	}
	if url == "" || *f.posts.byID[pid].ImageURL != url {
		t.Errorf("image url not stored")
	}
	if f.images.calls[0] != "openai:a cup of coffee" {
		t.Errorf("generator called with %q", f.images.calls[0])
	}

	override := "a latte"
	if _, err := f.svc.RegenerateImage(ctx, actor, cid, pid, &override); err != nil {
		t.Fatalf("RegenerateImage override: %v", err)
	}
	if *f.posts.byID[pid].ImagePrompt != "a latte" {
		t.Errorf("override prompt not stored")
	}

	f.images.err = errors.New("quota")
	if _, err := f.svc.RegenerateImage(ctx, actor, cid, pid, nil); err == nil {
		t.Error("expected generator error")
	}
}
