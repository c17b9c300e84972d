package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Post statuses
const (
	PostStatusDraft     = "draft"
	PostStatusApproved  = "approved"
	PostStatusRejected  = "rejected"
	PostStatusScheduled = "scheduled"
	PostStatusPosted    = "posted"
	PostStatusFailed    = "failed"
)

// ValidPostTransitions maps from -> []to. posted has no way out; failed only
// leaves through an explicit reset back to approved.
var ValidPostTransitions = map[string][]string{
	PostStatusDraft:     {PostStatusApproved, PostStatusRejected},
	PostStatusApproved:  {PostStatusScheduled, PostStatusPosted, PostStatusFailed, PostStatusRejected},
	PostStatusRejected:  {PostStatusApproved},
	PostStatusScheduled: {PostStatusPosted, PostStatusFailed},
	PostStatusPosted:    {},
	PostStatusFailed:    {PostStatusApproved},
}

func IsValidPostTransition(from, to string) bool {
	return containsStatus(ValidPostTransitions, from, to)
}

// PublishableStatuses are the statuses the scheduler query selects.
var PublishableStatuses = []string{PostStatusApproved, PostStatusScheduled}

// IsDue reports whether p matches the scheduler's selection filter at now.
// It does not look at the image or the campaign; those are checked per post
// after selection.
func (p *Post) IsDue(now time.Time) bool {
	if p.ScheduledAt == nil || p.ScheduledAt.After(now) {
		return false
	}
	for _, s := range PublishableStatuses {
		if p.Status == s {
			return true
		}
	}
	return false
}

// PublishCaption joins caption and hashtags with a blank line.
func (p *Post) PublishCaption() string {
	caption := strings.TrimSpace(p.Caption)
	tags := strings.TrimSpace(p.Hashtags)
	switch {
	case tags == "":
		return caption
	case caption == "":
		return tags
	}
	return caption + "\n\n" + tags
}

type Post struct {
	ID             uuid.UUID  `json:"id"`
	CampaignID     uuid.UUID  `json:"campaign_id"`
	ScheduledAt    *time.Time `json:"scheduled_at,omitempty"`
	Caption        string     `json:"caption"`
	Hashtags       string     `json:"hashtags"`
	ImagePrompt    *string    `json:"image_prompt,omitempty"`
	ImageURL       *string    `json:"image_url,omitempty"`
	Status         string     `json:"status"`
	Theme          *string    `json:"theme,omitempty"`
	ExternalPostID *string    `json:"external_post_id,omitempty"`
	Notes          *string    `json:"notes,omitempty"`
	SortOrder      int        `json:"sort_order"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// PostEdit carries the fields an admin or the campaign agent may change on
// an unpublished post. Nil fields are left untouched.
type PostEdit struct {
	Caption     *string
	Hashtags    *string
	ImagePrompt *string
	ScheduledAt *time.Time
	Theme       *string
}
