package repositories

import (
	"context"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	if t.Status == "" {
		t.Status = models.TaskStatusOpen
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO tasks (client_id, title, description, status, due_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, t.ClientID, t.Title, t.Description, t.Status, t.DueDate).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

// ListOpen returns tasks that are not done, nearest due date first.
func (r *TaskRepo) ListOpen(ctx context.Context) ([]models.Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT t.id, t.client_id, c.name, t.title, t.description, t.status, t.due_date, t.created_at, t.updated_at
		FROM tasks t LEFT JOIN clients c ON c.id = t.client_id
		WHERE t.status <> 'done'
		ORDER BY t.due_date NULLS LAST, t.created_at
		LIMIT 100
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		if err := rows.Scan(&t.ID, &t.ClientID, &t.ClientName, &t.Title, &t.Description, &t.Status,
			&t.DueDate, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
