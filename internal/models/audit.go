package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit actor types
const (
	ActorUser   = "user"
	ActorAgent  = "agent"
	ActorSystem = "system"
)

type AuditLog struct {
	ID          uuid.UUID  `json:"id"`
	ActorUserID *uuid.UUID `json:"actor_user_id,omitempty"`
	ActorType   string     `json:"actor_type"` // user/agent/system
	Action      string     `json:"action"`
	EntityType  string     `json:"entity_type"`
	EntityID    *uuid.UUID `json:"entity_id,omitempty"`
	Meta        any        `json:"meta,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Actor identifies who caused a change, for audit rows and events.
type Actor struct {
	Type   string
	UserID *uuid.UUID
}

func UserActor(id uuid.UUID) Actor { return Actor{Type: ActorUser, UserID: &id} }

// AgentActor is a change made by an agent tool on behalf of a user.
func AgentActor(onBehalfOf uuid.UUID) Actor { return Actor{Type: ActorAgent, UserID: &onBehalfOf} }

var SystemActor = Actor{Type: ActorSystem}
