package relay

import (
	"fmt"
	"strings"

	"github.com/agency-hub/backend/internal/gateway"
	"github.com/agency-hub/backend/internal/models"
)

// FallbackReply is returned when the round budget runs out while the model
// still asks for tools.
const FallbackReply = "Done."

// Conversation is the state carried through one relay call. The zero value
// is not usable; start with Start.
//
// replay is context only. turn holds what this call added, in gateway
// order, and is the sole source of NewTurns.
type Conversation struct {
	system gateway.Message
	replay []gateway.Message
	turn   []gateway.Message

	Rounds int
	Reply  string
	Done   bool
}

// Effect is an action the caller must perform after a reduction.
type Effect interface{ effect() }

// CallTool asks the caller to run a tool and feed the result back with
// WithToolResult.
type CallTool struct {
	Call gateway.ToolCall
}

// Finish carries the final reply.
type Finish struct {
	Reply string
}

func (CallTool) effect() {}
func (Finish) effect()   {}

func Start(system string, history []gateway.Message, userMessage string) Conversation {
	return Conversation{
		system: gateway.Message{Role: "system", Content: system},
		replay: history,
		turn:   []gateway.Message{{Role: models.RoleUser, Content: userMessage}},
	}
}

// Messages is the full context for the next gateway call.
func (c Conversation) Messages() []gateway.Message {
	out := make([]gateway.Message, 0, 1+len(c.replay)+len(c.turn))
	out = append(out, c.system)
	out = append(out, c.replay...)
	return append(out, c.turn...)
}

// Reduce folds one assistant response into the conversation. A response
// without tool calls finishes it; otherwise the assistant message is kept
// and one CallTool effect is produced per call, in the order returned.
func Reduce(c Conversation, resp gateway.Message) (Conversation, []Effect) {
	if c.Done {
		return c, nil
	}
	c.Rounds++

	if len(resp.ToolCalls) == 0 {
		reply := strings.TrimSpace(resp.Content)
		if reply == "" {
			reply = FallbackReply
		}
		c.turn = appendMessage(c.turn, gateway.Message{Role: models.RoleAssistant, Content: reply})
		c.Reply = reply
		c.Done = true
		return c, []Effect{Finish{Reply: reply}}
	}

	calls := make([]gateway.ToolCall, len(resp.ToolCalls))
	copy(calls, resp.ToolCalls)
	for i := range calls {
		if calls[i].ID == "" {
			calls[i].ID = fmt.Sprintf("call_%d_%d", c.Rounds, i)
		}
		if calls[i].Type == "" {
			calls[i].Type = "function"
		}
	}
	c.turn = appendMessage(c.turn, gateway.Message{
		Role:      models.RoleAssistant,
		Content:   resp.Content,
		ToolCalls: calls,
	})

	effects := make([]Effect, 0, len(calls))
	for _, call := range calls {
		effects = append(effects, CallTool{Call: call})
	}
	return c, effects
}

// WithToolResult appends the tool-role message answering call.
func (c Conversation) WithToolResult(call gateway.ToolCall, result string) Conversation {
	c.turn = appendMessage(c.turn, gateway.Message{
		Role:       models.RoleTool,
		Content:    result,
		ToolCallID: call.ID,
		Name:       call.Function.Name,
	})
	return c
}

// Exhaust ends a conversation whose round budget ran out.
func (c Conversation) Exhaust() Conversation {
	if c.Done {
		return c
	}
	c.turn = appendMessage(c.turn, gateway.Message{Role: models.RoleAssistant, Content: FallbackReply})
	c.Reply = FallbackReply
	c.Done = true
	return c
}

// NewTurns returns the rows to persist: the user message, every tool result
// and the final assistant reply. Assistant tool-call messages are not stored;
// Replay rebuilds them.
func (c Conversation) NewTurns() []models.ConversationMessage {
	if !c.Done {
		return nil
	}
	out := make([]models.ConversationMessage, 0, len(c.turn))
	for _, m := range c.turn {
		if m.Role == models.RoleAssistant && len(m.ToolCalls) > 0 {
			continue
		}
		row := models.ConversationMessage{Role: m.Role, Content: m.Content}
		if m.Role == models.RoleTool {
			id, name := m.ToolCallID, m.Name
			row.ToolCallID = &id
			row.ToolName = &name
		}
		out = append(out, row)
	}
	return out
}

// Replay turns stored rows back into gateway messages. Each run of tool rows
// is preceded by a synthesized assistant message declaring those calls, since
// the gateway rejects tool messages that answer no call.
func Replay(rows []models.ConversationMessage) []gateway.Message {
	out := make([]gateway.Message, 0, len(rows))
	for i := 0; i < len(rows); {
		r := rows[i]
		if r.Role != models.RoleTool {
			out = append(out, gateway.Message{Role: r.Role, Content: r.Content})
			i++
			continue
		}

		j := i
		var calls []gateway.ToolCall
		var results []gateway.Message
		for ; j < len(rows) && rows[j].Role == models.RoleTool; j++ {
			id := deref(rows[j].ToolCallID)
			if id == "" {
				id = fmt.Sprintf("call_h%d", rows[j].ID)
			}
			name := deref(rows[j].ToolName)
			calls = append(calls, gateway.ToolCall{
				ID:       id,
				Type:     "function",
				Function: gateway.FunctionCall{Name: name, Arguments: "{}"},
			})
			results = append(results, gateway.Message{
				Role: models.RoleTool, Content: rows[j].Content, ToolCallID: id, Name: name,
			})
		}
		out = append(out, gateway.Message{Role: models.RoleAssistant, ToolCalls: calls})
		out = append(out, results...)
		i = j
	}
	return out
}

func appendMessage(list []gateway.Message, m gateway.Message) []gateway.Message {
	out := make([]gateway.Message, len(list), len(list)+1)
	copy(out, list)
	return append(out, m)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
