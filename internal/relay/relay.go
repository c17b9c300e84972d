package relay

import (
	"context"
	"fmt"

	"github.com/agency-hub/backend/internal/gateway"
	"github.com/agency-hub/backend/internal/models"
	"go.uber.org/zap"
)

// Completer is the chat-completion gateway as seen by the relay.
type Completer interface {
	Complete(ctx context.Context, agentID string, messages []gateway.Message, tools []gateway.Tool) (*gateway.Message, error)
}

// Store is the conversation store.
type Store interface {
	History(ctx context.Context, key models.ConversationKey) ([]models.ConversationMessage, error)
	Append(ctx context.Context, key models.ConversationKey, msgs []models.ConversationMessage) error
}

// Request is one user message addressed to one agent.
type Request struct {
	AgentID   string
	MaxRounds int
	Key       models.ConversationKey
	Prompt    *Prompt
	Tools     *Registry
	Message   string
}

type Result struct {
	Reply     string
	Rounds    int
	ToolCalls int
}

type Relay struct {
	gateway Completer
	store   Store
	log     *zap.Logger
}

func New(gw Completer, store Store, log *zap.Logger) *Relay {
	return &Relay{gateway: gw, store: store, log: log}
}

// Run drives the completion and tool loop for req and persists the new turns.
// A gateway error aborts the call before anything is stored. Tool errors are
// fed back to the model as the tool result.
func (r *Relay) Run(ctx context.Context, req Request) (*Result, error) {
	if req.MaxRounds <= 0 {
		req.MaxRounds = 5
	}
	tools := req.Tools
	if tools == nil {
		tools = NewRegistry()
	}
	prompt := req.Prompt
	if prompt == nil {
		prompt = NewPrompt("")
	}

	rows, err := r.store.History(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}

	conv := Start(prompt.Render(), Replay(rows), req.Message)
	defs := tools.Definitions()
	toolCalls := 0

	for conv.Rounds < req.MaxRounds && !conv.Done {
		resp, err := r.gateway.Complete(ctx, req.AgentID, conv.Messages(), defs)
		if err != nil {
			return nil, err
		}

		var effects []Effect
		conv, effects = Reduce(conv, *resp)
		for _, e := range effects {
			call, ok := e.(CallTool)
			if !ok {
				continue
			}
			toolCalls++
			conv = conv.WithToolResult(call.Call, r.execute(ctx, req.AgentID, tools, call.Call))
		}
	}

	if !conv.Done {
		r.log.Info("agent round budget exhausted",
			zap.String("agent", req.AgentID),
			zap.Int("rounds", conv.Rounds),
		)
		conv = conv.Exhaust()
	}

	// Tool side effects already happened, so a store failure is logged and
	// the reply is still returned.
	if err := r.store.Append(ctx, req.Key, conv.NewTurns()); err != nil {
		r.log.Error("failed to persist conversation turn",
			zap.String("agent", req.AgentID),
			zap.Error(err),
		)
	}

	return &Result{Reply: conv.Reply, Rounds: conv.Rounds, ToolCalls: toolCalls}, nil
}

func (r *Relay) execute(ctx context.Context, agentID string, tools *Registry, call gateway.ToolCall) string {
	result, err := tools.Execute(ctx, call.Function.Name, call.Function.Arguments)
	if err != nil {
		r.log.Warn("tool failed",
			zap.String("agent", agentID),
			zap.String("tool", call.Function.Name),
			zap.Error(err),
		)
		return "Error: " + err.Error()
	}
	r.log.Info("tool executed",
		zap.String("agent", agentID),
		zap.String("tool", call.Function.Name),
	)
	return result
}
