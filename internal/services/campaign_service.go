package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agency-hub/backend/internal/events"
	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/repositories"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error)
	GetWithClient(ctx context.Context, id uuid.UUID) (*models.CampaignWithPosts, error)
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error)
	UpdateBrandInfo(ctx context.Context, id uuid.UUID, b models.BrandInfo, status string) error
	UpdateStrategy(ctx context.Context, id uuid.UUID, strategy string, status string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type PostStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	ReplaceCalendar(ctx context.Context, campaignID uuid.UUID, posts []models.Post, campaignStatus string) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error
	ApproveDrafts(ctx context.Context, campaignID uuid.UUID) ([]uuid.UUID, error)
	ResetFailed(ctx context.Context, id uuid.UUID) error
	UpdateImage(ctx context.Context, id uuid.UUID, imageURL string, imagePrompt *string) error
	Edit(ctx context.Context, id uuid.UUID, e models.PostEdit) error
	CountBlocking(ctx context.Context, campaignID uuid.UUID) (int, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
}

// ImageGenerator produces a public image URL for a prompt.
type ImageGenerator interface {
	Generate(ctx context.Context, model, prompt string, style *string) (string, error)
}

// CampaignService owns every campaign and post transition, whether it comes
// from an admin action or from a campaign agent tool.
type CampaignService struct {
	campaigns CampaignStore
	posts     PostStore
	audit     AuditStore
	images    ImageGenerator
	publisher events.Publisher
	log       *zap.Logger
}

func NewCampaignService(
	campaigns CampaignStore,
	posts PostStore,
	audit AuditStore,
	images ImageGenerator,
	publisher events.Publisher,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaigns: campaigns,
		posts:     posts,
		audit:     audit,
		images:    images,
		publisher: publisher,
		log:       log,
	}
}

func (s *CampaignService) record(ctx context.Context, actor models.Actor, action, entityType string, id uuid.UUID, meta map[string]any) {
	if err := s.audit.Log(ctx, models.AuditLog{
		ActorUserID: actor.UserID,
		ActorType:   actor.Type,
		Action:      action,
		EntityType:  entityType,
		EntityID:    &id,
		Meta:        meta,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// campaignMoved writes the audit row and event for a campaign status change
// that has already been stored.
func (s *CampaignService) campaignMoved(ctx context.Context, actor models.Actor, c *models.Campaign, to string) {
	from := c.Status
	c.Status = to
	if from == to {
		return
	}
	s.record(ctx, actor, fmt.Sprintf("campaign_status_%s_to_%s", from, to), "campaign", c.ID,
		map[string]any{"old_status": from, "new_status": to})
	_ = s.publisher.Publish(ctx, events.ChannelCampaign, events.CampaignStatusChanged(c.ID, from, to, actor.Type))
	s.log.Info("campaign status changed",
		zap.String("campaign_id", c.ID.String()),
		zap.String("from", from),
		zap.String("to", to),
		zap.String("actor", actor.Type),
	)
}

func (s *CampaignService) checkCampaignTransition(c *models.Campaign, to string) error {
	if !models.IsValidCampaignTransition(c.Status, to) {
		return fmt.Errorf("%w: campaign %s -> %s", ErrInvalidTransition, c.Status, to)
	}
	return nil
}

func (s *CampaignService) Create(ctx context.Context, actor models.Actor, clientID uuid.UUID, name, imageModel string, imageStyle *string) (*models.Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if imageModel == "" {
		imageModel = models.ImageModelOpenAI
	}
	if !models.IsValidImageModel(imageModel) {
		return nil, fmt.Errorf("%w: image model must be openai or gemini", ErrInvalidInput)
	}

	c := &models.Campaign{
		ClientID:   clientID,
		Name:       name,
		Status:     models.CampaignStatusDiscovery,
		ImageModel: imageModel,
		ImageStyle: imageStyle,
	}
	if err := s.campaigns.Create(ctx, c); err != nil {
		return nil, err
	}

	s.record(ctx, actor, "campaign_created", "campaign", c.ID, map[string]any{"client_id": clientID.String(), "name": name})
	return c, nil
}

func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.CampaignWithPosts, error) {
	return s.campaigns.GetWithClient(ctx, id)
}

func (s *CampaignService) List(ctx context.Context, f repositories.CampaignFilter) ([]models.Campaign, error) {
	return s.campaigns.List(ctx, f)
}

// Delete removes the campaign with its posts and conversation.
func (s *CampaignService) Delete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.campaigns.Delete(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, "campaign_deleted", "campaign", id, map[string]any{"name": c.Name, "status": c.Status})
	return nil
}

// SaveBrandInfo stores discovery output and moves the campaign to strategy.
// Completeness is left to the agent.
func (s *CampaignService) SaveBrandInfo(ctx context.Context, actor models.Actor, id uuid.UUID, info models.BrandInfo) error {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkCampaignTransition(c, models.CampaignStatusStrategy); err != nil {
		return err
	}
	if info.StartDate != nil && info.EndDate != nil && info.EndDate.Before(*info.StartDate) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	}
	if err := s.campaigns.UpdateBrandInfo(ctx, id, info, models.CampaignStatusStrategy); err != nil {
		return err
	}
	s.campaignMoved(ctx, actor, c, models.CampaignStatusStrategy)
	return nil
}

// SaveStrategy stores the strategy document. The status is re-asserted as
// strategy, not advanced.
func (s *CampaignService) SaveStrategy(ctx context.Context, actor models.Actor, id uuid.UUID, strategy string) error {
	strategy = strings.TrimSpace(strategy)
	if strategy == "" {
		return fmt.Errorf("%w: strategy is empty", ErrInvalidInput)
	}
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkCampaignTransition(c, models.CampaignStatusStrategy); err != nil {
		return err
	}
	if err := s.campaigns.UpdateStrategy(ctx, id, strategy, models.CampaignStatusStrategy); err != nil {
		return err
	}
	s.record(ctx, actor, "campaign_strategy_saved", "campaign", id, map[string]any{"length": len(strategy)})
	s.campaignMoved(ctx, actor, c, models.CampaignStatusStrategy)
	return nil
}

// GenerateCalendar replaces the unpublished posts of a campaign with posts
// and moves it through generating to approval. New posts start as drafts.
func (s *CampaignService) GenerateCalendar(ctx context.Context, actor models.Actor, id uuid.UUID, posts []models.Post) (int, error) {
	if len(posts) == 0 {
		return 0, fmt.Errorf("%w: calendar has no posts", ErrInvalidInput)
	}
	for i := range posts {
		if strings.TrimSpace(posts[i].Caption) == "" {
			return 0, fmt.Errorf("%w: post %d has no caption", ErrInvalidInput, i+1)
		}
		posts[i].Status = models.PostStatusDraft
		posts[i].SortOrder = i
	}

	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if c.Status != models.CampaignStatusGenerating {
		if err := s.checkCampaignTransition(c, models.CampaignStatusGenerating); err != nil {
			return 0, err
		}
		if err := s.campaigns.UpdateStatus(ctx, id, models.CampaignStatusGenerating); err != nil {
			return 0, err
		}
		s.campaignMoved(ctx, actor, c, models.CampaignStatusGenerating)
	}

	if err := s.posts.ReplaceCalendar(ctx, id, posts, models.CampaignStatusApproval); err != nil {
		return 0, fmt.Errorf("replace calendar: %w", err)
	}
	s.record(ctx, actor, "calendar_generated", "campaign", id, map[string]any{"posts": len(posts)})
	s.campaignMoved(ctx, actor, c, models.CampaignStatusApproval)
	return len(posts), nil
}

// Activate moves approval -> active. Remaining draft or rejected posts are
// reported but do not block the transition.
func (s *CampaignService) Activate(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkCampaignTransition(c, models.CampaignStatusActive); err != nil {
		return err
	}

	blocking, err := s.posts.CountBlocking(ctx, id)
	if err != nil {
		return err
	}
	if blocking > 0 {
		s.log.Warn("activating campaign with unapproved posts",
			zap.String("campaign_id", id.String()),
			zap.Int("draft_or_rejected", blocking),
		)
		s.record(ctx, actor, "campaign_activated_with_unapproved_posts", "campaign", id, map[string]any{"count": blocking})
	}

	if err := s.campaigns.UpdateStatus(ctx, id, models.CampaignStatusActive); err != nil {
		return err
	}
	s.campaignMoved(ctx, actor, c, models.CampaignStatusActive)
	return nil
}

func (s *CampaignService) Complete(ctx context.Context, actor models.Actor, id uuid.UUID) error {
	c, err := s.campaigns.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkCampaignTransition(c, models.CampaignStatusCompleted); err != nil {
		return err
	}
	if err := s.campaigns.UpdateStatus(ctx, id, models.CampaignStatusCompleted); err != nil {
		return err
	}
	s.campaignMoved(ctx, actor, c, models.CampaignStatusCompleted)
	return nil
}

// postOf loads a post and checks it belongs to campaignID.
func (s *CampaignService) postOf(ctx context.Context, campaignID, postID uuid.UUID) (*models.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.CampaignID != campaignID {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *CampaignService) transitionPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, to string) error {
	p, err := s.postOf(ctx, campaignID, postID)
	if err != nil {
		return err
	}
	if !models.IsValidPostTransition(p.Status, to) {
		return fmt.Errorf("%w: post %s -> %s", ErrInvalidTransition, p.Status, to)
	}

	var updateErr error
	if p.Status == models.PostStatusFailed && to == models.PostStatusApproved {
		updateErr = s.posts.ResetFailed(ctx, postID)
	} else {
		updateErr = s.posts.UpdateStatus(ctx, postID, p.Status, to)
	}
	if updateErr != nil {
		return updateErr
	}

	s.postMoved(ctx, actor, p, to)
	return nil
}

func (s *CampaignService) postMoved(ctx context.Context, actor models.Actor, p *models.Post, to string) {
	s.record(ctx, actor, fmt.Sprintf("post_status_%s_to_%s", p.Status, to), "post", p.ID,
		map[string]any{"campaign_id": p.CampaignID.String(), "old_status": p.Status, "new_status": to})
	_ = s.publisher.Publish(ctx, events.ChannelCampaign, events.PostStatusChanged(p.CampaignID, p.ID, p.Status, to, actor.Type))
}

func (s *CampaignService) ApprovePost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID) error {
	return s.transitionPost(ctx, actor, campaignID, postID, models.PostStatusApproved)
}

func (s *CampaignService) RejectPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID) error {
	return s.transitionPost(ctx, actor, campaignID, postID, models.PostStatusRejected)
}

// ResetFailedPost puts a failed post back in the publishing queue.
func (s *CampaignService) ResetFailedPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID) error {
	p, err := s.postOf(ctx, campaignID, postID)
	if err != nil {
		return err
	}
	if p.Status != models.PostStatusFailed {
		return fmt.Errorf("%w: only failed posts can be reset, post is %s", ErrInvalidTransition, p.Status)
	}
	return s.transitionPost(ctx, actor, campaignID, postID, models.PostStatusApproved)
}

// BulkApprove approves every draft post of the campaign.
func (s *CampaignService) BulkApprove(ctx context.Context, actor models.Actor, campaignID uuid.UUID) (int, error) {
	if _, err := s.campaigns.GetByID(ctx, campaignID); err != nil {
		return 0, err
	}
	ids, err := s.posts.ApproveDrafts(ctx, campaignID)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		s.postMoved(ctx, actor, &models.Post{ID: id, CampaignID: campaignID, Status: models.PostStatusDraft}, models.PostStatusApproved)
	}
	return len(ids), nil
}

// EditPost changes content fields of a post that has not been published.
func (s *CampaignService) EditPost(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, e models.PostEdit) error {
	p, err := s.postOf(ctx, campaignID, postID)
	if err != nil {
		return err
	}
	if p.Status == models.PostStatusPosted {
		return fmt.Errorf("%w: posted posts cannot be edited", ErrInvalidTransition)
	}
	if e.Caption != nil && strings.TrimSpace(*e.Caption) == "" {
		return fmt.Errorf("%w: caption cannot be empty", ErrInvalidInput)
	}
	if err := s.posts.Edit(ctx, postID, e); err != nil {
		return err
	}

	changed := []string{}
	if e.Caption != nil {
		changed = append(changed, "caption")
	}
	if e.Hashtags != nil {
		changed = append(changed, "hashtags")
	}
	if e.ImagePrompt != nil {
		changed = append(changed, "image_prompt")
	}
	if e.ScheduledAt != nil {
		changed = append(changed, "scheduled_at")
	}
	if e.Theme != nil {
		changed = append(changed, "theme")
	}
	s.record(ctx, actor, "post_edited", "post", postID, map[string]any{"fields": changed})
	return nil
}

// RegenerateImage generates a new image for the post with the campaign's
// image model and stores its URL. prompt overrides the stored prompt.
func (s *CampaignService) RegenerateImage(ctx context.Context, actor models.Actor, campaignID, postID uuid.UUID, prompt *string) (string, error) {
	c, err := s.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return "", err
	}
	p, err := s.postOf(ctx, campaignID, postID)
	if err != nil {
		return "", err
	}
	if p.Status == models.PostStatusPosted {
		return "", fmt.Errorf("%w: posted posts cannot change image", ErrInvalidTransition)
	}

	var usePrompt string
	switch {
	case prompt != nil && strings.TrimSpace(*prompt) != "":
		usePrompt = strings.TrimSpace(*prompt)
		prompt = &usePrompt
	case p.ImagePrompt != nil && strings.TrimSpace(*p.ImagePrompt) != "":
		usePrompt = *p.ImagePrompt
		prompt = nil
	default:
		return "", fmt.Errorf("%w: post has no image prompt", ErrInvalidInput)
	}

	start := time.Now()
	url, err := s.images.Generate(ctx, c.ImageModel, usePrompt, c.ImageStyle)
	if err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if err := s.posts.UpdateImage(ctx, postID, url, prompt); err != nil {
		return "", err
	}

	s.record(ctx, actor, "post_image_generated", "post", postID, map[string]any{"model": c.ImageModel})
	s.log.Info("post image generated",
		zap.String("post_id", postID.String()),
		zap.String("model", c.ImageModel),
		zap.Duration("took", time.Since(start)),
	)
	return url, nil
}
