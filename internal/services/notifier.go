package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/agency-hub/backend/internal/events"
	"go.uber.org/zap"
)

// Notification levels
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelUrgent  = "urgent"
)

var NotificationLevels = []string{LevelInfo, LevelWarning, LevelUrgent}

// Notifier publishes human-facing notifications on the notify channel. The
// notify bridge forwards them to the team webhook.
type Notifier struct {
	publisher events.Publisher
	log       *zap.Logger
}

func NewNotifier(publisher events.Publisher, log *zap.Logger) *Notifier {
	return &Notifier{publisher: publisher, log: log}
}

func (n *Notifier) Notify(ctx context.Context, level, title, body string) error {
	return n.send(ctx, events.EventNotification, level, title, body)
}

// PostPublished and PostFailed are emitted by the publishing scheduler.
func (n *Notifier) PostPublished(ctx context.Context, campaignName, externalID string) error {
	return n.send(ctx, events.EventPostPublished, LevelInfo,
		"Post published", fmt.Sprintf("%s: post %s is live.", campaignName, externalID))
}

func (n *Notifier) PostFailed(ctx context.Context, campaignName, reason string) error {
	return n.send(ctx, events.EventPostFailed, LevelUrgent,
		"Post failed to publish", fmt.Sprintf("%s: %s", campaignName, reason))
}

func (n *Notifier) send(ctx context.Context, eventType, level, title, body string) error {
	title, body = strings.TrimSpace(title), strings.TrimSpace(body)
	if title == "" && body == "" {
		return fmt.Errorf("%w: notification is empty", ErrInvalidInput)
	}
	if level == "" {
		level = LevelInfo
	}
	if err := n.publisher.Publish(ctx, events.ChannelNotify, events.Notification(eventType, level, title, body)); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	n.log.Info("notification queued", zap.String("type", eventType), zap.String("level", level), zap.String("title", title))
	return nil
}
