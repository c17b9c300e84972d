package agents

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnknownAgent = errors.New("unknown agent")
	ErrInvalidMessage = errors.New("invalid message")
)

const maxMessageLength = 8000

// Runner runs one relay request.
type Runner interface {
	Run(ctx context.Context, req relay.Request) (*relay.Result, error)
}

type HistoryStore interface {
	History(ctx context.Context, key models.ConversationKey) ([]models.ConversationMessage, error)
}

// Service routes user messages to the agents. Every call builds the system
// prompt and the tool set from live data, so neither is ever stale.
type Service struct {
	relay    Runner
	history  HistoryStore
	deps     Deps
	personas map[string]Persona
	now      func() time.Time
	log      *zap.Logger
}

func NewService(r Runner, history HistoryStore, deps Deps, personas map[string]Persona, log *zap.Logger) *Service {
	if personas == nil {
		personas = DefaultPersonas()
	}
	return &Service{
		relay:    r,
		history:  history,
		deps:     deps,
		personas: personas,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log,
	}
}

// IsIdentityAgent reports whether slug is an agent addressed per user
// rather than per campaign.
func IsIdentityAgent(slug string) bool {
	switch slug {
	case SlugHenry, SlugFinance, SlugMarketing:
		return true
	}
	return false
}

// Chat sends message to one of the identity-scoped agents.
func (s *Service) Chat(ctx context.Context, userID uuid.UUID, slug, message string) (*relay.Result, error) {
	if !IsIdentityAgent(slug) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, slug)
	}
	message, err := cleanMessage(message)
	if err != nil {
		return nil, err
	}
	p := s.personas[slug]

	var (
		prompt *relay.Prompt
		tools  *relay.Registry
	)
	switch slug {
	case SlugHenry:
		prompt, tools, err = s.buildHenry(ctx, p)
	case SlugFinance:
		prompt, tools, err = s.buildFinance(ctx, p)
	case SlugMarketing:
		prompt, tools, err = s.buildMarketing(ctx, p)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s context: %w", slug, err)
	}

	return s.run(ctx, p, models.IdentityConversation(userID, slug), prompt, tools, message)
}

// ChatCampaign sends message to the campaign agent of one campaign. The
// conversation belongs to the campaign, not to the user.
func (s *Service) ChatCampaign(ctx context.Context, userID, campaignID uuid.UUID, message string) (*relay.Result, error) {
	message, err := cleanMessage(message)
	if err != nil {
		return nil, err
	}
	c, err := s.deps.Campaigns.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	p := s.personas[SlugCampaign]

	prompt, tools, err := s.buildCampaign(ctx, p, userID, c)
	if err != nil {
		return nil, fmt.Errorf("build campaign context: %w", err)
	}
	return s.run(ctx, p, models.CampaignConversation(campaignID), prompt, tools, message)
}

func (s *Service) run(ctx context.Context, p Persona, key models.ConversationKey, prompt *relay.Prompt, tools *relay.Registry, message string) (*relay.Result, error) {
	start := time.Now()
	res, err := s.relay.Run(ctx, relay.Request{
		AgentID:   p.AgentID,
		MaxRounds: p.MaxRounds,
		Key:       key,
		Prompt:    prompt,
		Tools:     tools,
		Message:   message,
	})
	if err != nil {
		s.log.Error("agent call failed", zap.String("agent", p.Slug), zap.Error(err))
		return nil, err
	}
	s.log.Info("agent replied",
		zap.String("agent", p.Slug),
		zap.Int("rounds", res.Rounds),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Duration("took", time.Since(start)),
	)
	return res, nil
}

func (s *Service) History(ctx context.Context, userID uuid.UUID, slug string) ([]models.ConversationMessage, error) {
	if !IsIdentityAgent(slug) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, slug)
	}
	return s.history.History(ctx, models.IdentityConversation(userID, slug))
}

func (s *Service) CampaignHistory(ctx context.Context, campaignID uuid.UUID) ([]models.ConversationMessage, error) {
	return s.history.History(ctx, models.CampaignConversation(campaignID))
}

func cleanMessage(m string) (string, error) {
	m = strings.TrimSpace(m)
	if m == "" {
		return "", fmt.Errorf("%w: message is empty", ErrInvalidMessage)
	}
	if len(m) > maxMessageLength {
		return "", fmt.Errorf("%w: message is longer than %d bytes", ErrInvalidMessage, maxMessageLength)
	}
	return m, nil
}
