package repositories

import (
	"context"
	"fmt"

	"github.com/agency-hub/backend/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MessageRepo is the conversation store. Rows are append-only and read back
// ordered by (created_at, id).
type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) History(ctx context.Context, key models.ConversationKey) ([]models.ConversationMessage, error) {
	var (
		rows pgx.Rows
		err  error
	)
	const cols = `id, user_id, agent_slug, campaign_id, role, content, tool_call_id, tool_name, created_at`
	if key.IsCampaign() {
		rows, err = r.pool.Query(ctx, `
			SELECT `+cols+` FROM conversation_messages
			WHERE campaign_id = $1
			ORDER BY created_at, id
		`, *key.CampaignID)
	} else {
		if key.UserID == nil || key.AgentSlug == "" {
			return nil, fmt.Errorf("conversation key needs a user and an agent slug")
		}
		rows, err = r.pool.Query(ctx, `
			SELECT `+cols+` FROM conversation_messages
			WHERE user_id = $1 AND agent_slug = $2 AND campaign_id IS NULL
			ORDER BY created_at, id
		`, *key.UserID, key.AgentSlug)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []models.ConversationMessage
	for rows.Next() {
		var m models.ConversationMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.AgentSlug, &m.CampaignID, &m.Role, &m.Content,
			&m.ToolCallID, &m.ToolName, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Append writes msgs in order inside one transaction. Each row takes
// clock_timestamp() so rows of one batch still sort after each other.
func (r *MessageRepo) Append(ctx context.Context, key models.ConversationKey, msgs []models.ConversationMessage) error {
	if len(msgs) == 0 {
		return nil
	}

	var agentSlug *string
	if !key.IsCampaign() {
		agentSlug = &key.AgentSlug
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, m := range msgs {
			batch.Queue(`
				INSERT INTO conversation_messages (user_id, agent_slug, campaign_id, role, content, tool_call_id, tool_name)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, key.UserID, agentSlug, key.CampaignID, m.Role, m.Content, m.ToolCallID, m.ToolName)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}
