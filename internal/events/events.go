package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Redis channels
const (
	ChannelCampaign = "events:campaign"
	ChannelNotify   = "events:notify"
)

// Event types
const (
	EventCampaignStatusChanged = "campaign_status_changed"
	EventPostStatusChanged     = "post_status_changed"
	EventPostPublished         = "post_published"
	EventPostFailed            = "post_failed"
	EventNotification          = "notification"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
	At      time.Time      `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, channel string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, handler func(channel string, event Event), channels ...string) error
}

func CampaignStatusChanged(campaignID uuid.UUID, from, to, actor string) Event {
	return Event{
		Type: EventCampaignStatusChanged,
		Payload: map[string]any{
			"campaign_id": campaignID.String(),
			"from":        from,
			"to":          to,
			"actor":       actor,
		},
		At: time.Now().UTC(),
	}
}

func PostStatusChanged(campaignID, postID uuid.UUID, from, to, actor string) Event {
	return Event{
		Type: EventPostStatusChanged,
		Payload: map[string]any{
			"campaign_id": campaignID.String(),
			"post_id":     postID.String(),
			"from":        from,
			"to":          to,
			"actor":       actor,
		},
		At: time.Now().UTC(),
	}
}

// Notification is a free-text message for humans, routed by the notify
// bridge. Level is one of info, warning, urgent.
func Notification(eventType, level, title, body string) Event {
	return Event{
		Type: eventType,
		Payload: map[string]any{
			"level": level,
			"title": title,
			"body":  body,
		},
		At: time.Now().UTC(),
	}
}
