package models

import (
	"time"

	"github.com/google/uuid"
)

// Message roles stored in the conversation store. The system message is
// rebuilt on every call and never stored.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ConversationKey partitions conversation history. Exactly one of the two
// forms is used: (UserID, AgentSlug) for identity-scoped agents, or
// CampaignID for the campaign agent.
type ConversationKey struct {
	UserID     *uuid.UUID
	AgentSlug  string
	CampaignID *uuid.UUID
}

func IdentityConversation(userID uuid.UUID, agentSlug string) ConversationKey {
	return ConversationKey{UserID: &userID, AgentSlug: agentSlug}
}

func CampaignConversation(campaignID uuid.UUID) ConversationKey {
	return ConversationKey{CampaignID: &campaignID}
}

func (k ConversationKey) IsCampaign() bool {
	return k.CampaignID != nil
}

type ConversationMessage struct {
	ID         int64      `json:"id"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	AgentSlug  *string    `json:"agent_slug,omitempty"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCallID *string    `json:"tool_call_id,omitempty"`
	ToolName   *string    `json:"tool_name,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
