package publishing

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/agency-hub/backend/internal/services"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNotesLength = 1000

type PostStore interface {
	ListDue(ctx context.Context, now time.Time) ([]models.Post, error)
	MarkPosted(ctx context.Context, id uuid.UUID, externalPostID string) error
	MarkFailed(ctx context.Context, id uuid.UUID, notes string) error
}

type CampaignStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
}

type Credentials interface {
	Get(ctx context.Context, clientID uuid.UUID) (*models.PlatformCredential, error)
}

// Platform is the two-phase publish API.
type Platform interface {
	Publish(ctx context.Context, cred models.PlatformCredential, imageURL, caption string) (string, error)
}

type Notifier interface {
	PostPublished(ctx context.Context, campaignName, externalID string) error
	PostFailed(ctx context.Context, campaignName, reason string) error
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// Outcome of one post in a tick.
type Outcome int

const (
	OutcomeSkipped Outcome = iota
	OutcomePosted
	OutcomeFailed
)

type TickReport struct {
	Due     int
	Posted  int
	Failed  int
	Skipped int
}

// Scheduler publishes due posts. Posts are handled one after another and a
// failure of one post never stops the tick.
type Scheduler struct {
	posts     PostStore
	campaigns CampaignStore
	creds     Credentials
	platform  Platform
	notifier  Notifier
	audit     AuditStore
	publisher events.Publisher
	interval  time.Duration
	now       func() time.Time
	log       *zap.Logger

	running atomic.Bool
}

func NewScheduler(
	posts PostStore,
	campaigns CampaignStore,
	creds Credentials,
	platform Platform,
	notifier Notifier,
	audit AuditStore,
	publisher events.Publisher,
	interval time.Duration,
	log *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		posts:     posts,
		campaigns: campaigns,
		creds:     creds,
		platform:  platform,
		notifier:  notifier,
		audit:     audit,
		publisher: publisher,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		log:       log,
	}
}

// Run ticks once immediately and then every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("publishing scheduler started", zap.Duration("interval", s.interval))
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.log.Info("publishing scheduler stopped")
			return
		}
	}
}

// RunOnce runs one tick. It returns false without doing anything when
// another tick is still in progress.
func (s *Scheduler) RunOnce(ctx context.Context) (report TickReport, ran bool) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("previous publish tick still running, skipping")
		return TickReport{}, false
	}
	defer s.running.Store(false)

	defer func() {
		if p := recover(); p != nil {
			s.log.Error("publish tick panicked", zap.Any("panic", p))
		}
	}()

	start := time.Now()
	due, err := s.posts.ListDue(ctx, s.now())
	if err != nil {
		s.log.Error("failed to list due posts", zap.Error(err))
		return report, true
	}
	report.Due = len(due)

	for _, p := range due {
		if ctx.Err() != nil {
			break
		}
		switch s.publishOne(ctx, p) {
		case OutcomePosted:
			report.Posted++
		case OutcomeFailed:
			report.Failed++
		default:
			report.Skipped++
		}
	}

	if report.Due > 0 {
		s.log.Info("publish tick finished",
			zap.Int("due", report.Due),
			zap.Int("posted", report.Posted),
			zap.Int("failed", report.Failed),
			zap.Int("skipped", report.Skipped),
			zap.Duration("took", time.Since(start)),
		)
	}
	return report, true
}

func (s *Scheduler) publishOne(ctx context.Context, p models.Post) (outcome Outcome) {
	var campaign *models.Campaign

	defer func() {
		if r := recover(); r != nil {
			s.fail(ctx, p, campaign, fmt.Errorf("panic while publishing: %v", r))
			outcome = OutcomeFailed
		}
	}()

	campaign, err := s.campaigns.GetByID(ctx, p.CampaignID)
	if errors.Is(err, repositories.ErrNotFound) {
		s.log.Warn("skipping post of missing campaign",
			zap.String("post_id", p.ID.String()),
			zap.String("campaign_id", p.CampaignID.String()),
		)
		return OutcomeSkipped
	}
	if err != nil {
		s.fail(ctx, p, nil, fmt.Errorf("load campaign: %w", err))
		return OutcomeFailed
	}

	if campaign.Status != models.CampaignStatusActive {
		return OutcomeSkipped
	}

	cred, err := s.creds.Get(ctx, campaign.ClientID)
	if errors.Is(err, services.ErrNoCredentials) || errors.Is(err, services.ErrPublishNotConfigured) {
		s.log.Warn("skipping post without platform credentials",
			zap.String("post_id", p.ID.String()),
			zap.String("client_id", campaign.ClientID.String()),
			zap.Error(err),
		)
		return OutcomeSkipped
	}
	if err != nil {
		s.fail(ctx, p, campaign, fmt.Errorf("load credentials: %w", err))
		return OutcomeFailed
	}

	if p.ImageURL == nil || *p.ImageURL == "" {
		s.log.Warn("skipping post without image", zap.String("post_id", p.ID.String()))
		return OutcomeSkipped
	}

	externalID, err := s.platform.Publish(ctx, *cred, *p.ImageURL, p.PublishCaption())
	if errors.Is(err, services.ErrPublishNotConfigured) {
		s.log.Warn("skipping post, publish API not configured", zap.String("post_id", p.ID.String()))
		return OutcomeSkipped
	}
	if err != nil {
		s.fail(ctx, p, campaign, err)
		return OutcomeFailed
	}

	if err := s.posts.MarkPosted(ctx, p.ID, externalID); err != nil {
		s.unrecorded(ctx, p, campaign, externalID, err)
		return OutcomePosted
	}

	s.log.Info("post published",
		zap.String("post_id", p.ID.String()),
		zap.String("campaign_id", campaign.ID.String()),
		zap.String("external_post_id", externalID),
	)
	s.recordTransition(ctx, p, models.PostStatusPosted, map[string]any{"external_post_id": externalID})
	if err := s.notifier.PostPublished(ctx, campaign.Name, externalID); err != nil {
		s.log.Warn("failed to notify about published post", zap.Error(err))
	}
	return OutcomePosted
}

// fail records the post as failed. Errors while recording are logged and
// dropped so the tick can go on.
func (s *Scheduler) fail(ctx context.Context, p models.Post, campaign *models.Campaign, cause error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic while recording publish failure", zap.String("post_id", p.ID.String()), zap.Any("panic", r))
		}
	}()

	notes := cause.Error()
	if len(notes) > maxNotesLength {
		notes = notes[:maxNotesLength]
	}
	s.log.Error("failed to publish post", zap.String("post_id", p.ID.String()), zap.Error(cause))

	if err := s.posts.MarkFailed(ctx, p.ID, notes); err != nil {
		s.log.Error("failed to record publish failure", zap.String("post_id", p.ID.String()), zap.Error(err))
		return
	}
	s.recordTransition(ctx, p, models.PostStatusFailed, map[string]any{"error": notes})

	name := "Unknown campaign"
	if campaign != nil {
		name = campaign.Name
	}
	if err := s.notifier.PostFailed(ctx, name, notes); err != nil {
		s.log.Warn("failed to notify about failed post", zap.Error(err))
	}
}

// unrecorded handles a post the platform accepted but whose posted status
// could not be saved. The row is moved to failed so no later tick selects
// it again; the notes carry the external id for reconciliation.
func (s *Scheduler) unrecorded(ctx context.Context, p models.Post, campaign *models.Campaign, externalID string, cause error) {
	s.log.Error("post published but status not recorded",
		zap.String("post_id", p.ID.String()),
		zap.String("external_post_id", externalID),
		zap.Error(cause),
	)

	notes := fmt.Sprintf("published as %s but not recorded: %v", externalID, cause)
	if len(notes) > maxNotesLength {
		notes = notes[:maxNotesLength]
	}
	if err := s.posts.MarkFailed(ctx, p.ID, notes); err != nil {
		s.log.Error("failed to take unrecorded post out of the queue",
			zap.String("post_id", p.ID.String()),
			zap.String("external_post_id", externalID),
			zap.Error(err),
		)
		return
	}
	s.recordTransition(ctx, p, models.PostStatusFailed, map[string]any{"external_post_id": externalID, "error": notes})
	if err := s.notifier.PostFailed(ctx, campaign.Name, notes); err != nil {
		s.log.Warn("failed to notify about unrecorded post", zap.Error(err))
	}
}

func (s *Scheduler) recordTransition(ctx context.Context, p models.Post, to string, meta map[string]any) {
	meta["campaign_id"] = p.CampaignID.String()
	meta["old_status"] = p.Status
	meta["new_status"] = to
	id := p.ID
	if err := s.audit.Log(ctx, models.AuditLog{
		ActorType:  models.ActorSystem,
		Action:     fmt.Sprintf("post_status_%s_to_%s", p.Status, to),
		EntityType: "post",
		EntityID:   &id,
		Meta:       meta,
	}); err != nil {
		s.log.Warn("failed to write audit log", zap.String("post_id", p.ID.String()), zap.Error(err))
	}
	if err := s.publisher.Publish(ctx, events.ChannelCampaign,
		events.PostStatusChanged(p.CampaignID, p.ID, p.Status, to, models.ActorSystem)); err != nil {
		s.log.Warn("failed to publish post event", zap.Error(err))
	}
}
