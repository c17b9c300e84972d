package repositories

import (
	"context"
	"fmt"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

const campaignColumns = `id, client_id, name, status, brand_voice, target_audience, content_themes,
	posts_per_week, start_date, end_date, strategy, image_model, image_style, created_at, updated_at`

func scanCampaign(row pgx.Row, c *models.Campaign) error {
	return row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Status, &c.BrandVoice, &c.TargetAudience,
		&c.ContentThemes, &c.PostsPerWeek, &c.StartDate, &c.EndDate, &c.Strategy,
		&c.ImageModel, &c.ImageStyle, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (client_id, name, status, image_model, image_style)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.ClientID, c.Name, c.Status, c.ImageModel, c.ImageStyle,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	var c models.Campaign
	err := scanCampaign(r.pool.QueryRow(ctx, `SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id), &c)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// GetWithClient loads the campaign together with its client name and posts.
func (r *CampaignRepo) GetWithClient(ctx context.Context, id uuid.UUID) (*models.CampaignWithPosts, error) {
	c, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &models.CampaignWithPosts{Campaign: *c}
	if err := r.pool.QueryRow(ctx, `SELECT name FROM clients WHERE id = $1`, c.ClientID).Scan(&out.ClientName); err != nil {
		return nil, notFound(err)
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts WHERE campaign_id = $1
		ORDER BY sort_order, scheduled_at NULLS LAST
	`, id)
	if err != nil {
		return nil, err
	}
	if out.Posts, err = collectPosts(rows); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateBrandInfo overwrites only the brand fields that are set and moves
// the campaign to status in the same statement.
func (r *CampaignRepo) UpdateBrandInfo(ctx context.Context, id uuid.UUID, b models.BrandInfo, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET
			brand_voice = COALESCE($1, brand_voice),
			target_audience = COALESCE($2, target_audience),
			content_themes = COALESCE($3, content_themes),
			posts_per_week = COALESCE($4, posts_per_week),
			start_date = COALESCE($5, start_date),
			end_date = COALESCE($6, end_date),
			image_style = COALESCE($7, image_style),
			status = $8,
			updated_at = now()
		WHERE id = $9
	`, b.BrandVoice, b.TargetAudience, nilIfEmpty(b.ContentThemes), b.PostsPerWeek, b.StartDate, b.EndDate,
		b.ImageStyle, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) UpdateStrategy(ctx context.Context, id uuid.UUID, strategy string, status string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaigns SET strategy = $1, status = $2, updated_at = now() WHERE id = $3
	`, strategy, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE campaigns SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the campaign; posts and conversation messages go with it
// through ON DELETE CASCADE.
func (r *CampaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type CampaignFilter struct {
	ClientID *uuid.UUID
	Status   *string
	Limit    int
	Offset   int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns`
	args := []any{}
	argIdx := 1
	where := []string{}

	if f.ClientID != nil {
		where = append(where, fmt.Sprintf("client_id = $%d", argIdx))
		args = append(args, *f.ClientID)
		argIdx++
	}
	if f.Status != nil {
		where = append(where, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *f.Status)
		argIdx++
	}

	if len(where) > 0 {
		query += " WHERE "
		for i, w := range where {
			if i > 0 {
				query += " AND "
			}
			query += w
		}
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []models.Campaign
	for rows.Next() {
		var c models.Campaign
		if err := scanCampaign(rows, &c); err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
