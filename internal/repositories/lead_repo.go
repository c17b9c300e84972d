package repositories

import (
	"context"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type LeadRepo struct {
	pool *pgxpool.Pool
}

func NewLeadRepo(pool *pgxpool.Pool) *LeadRepo {
	return &LeadRepo{pool: pool}
}

func (r *LeadRepo) Create(ctx context.Context, l *models.Lead) error {
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO leads (name, company, email, source, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, l.Name, l.Company, l.Email, l.Source, l.Status, l.Notes).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// ListActive returns leads that are neither won nor lost, newest first.
func (r *LeadRepo) ListActive(ctx context.Context) ([]models.Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, company, email, source, status, notes, created_at, updated_at
		FROM leads WHERE status NOT IN ('won', 'lost')
		ORDER BY created_at DESC
		LIMIT 100
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []models.Lead
	for rows.Next() {
		var l models.Lead
		if err := rows.Scan(&l.ID, &l.Name, &l.Company, &l.Email, &l.Source, &l.Status, &l.Notes,
			&l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// UpdateStatus changes the status and, when notes is non-nil, appends it to
// the existing notes.
func (r *LeadRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string, notes *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE leads SET status = $1,
		       notes = CASE WHEN $2::text IS NULL THEN notes
		                    WHEN notes IS NULL OR notes = '' THEN $2
		                    ELSE notes || E'\n' || $2 END,
		       updated_at = now()
		WHERE id = $3
	`, status, notes, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
