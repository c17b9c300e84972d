package repositories

import (
	"context"
	"time"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostRepo struct {
	pool *pgxpool.Pool
}

func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

const postColumns = `id, campaign_id, scheduled_at, caption, hashtags, image_prompt, image_url, status,
	theme, external_post_id, notes, sort_order, created_at, updated_at`

func scanPost(row pgx.Row, p *models.Post) error {
	return row.Scan(&p.ID, &p.CampaignID, &p.ScheduledAt, &p.Caption, &p.Hashtags, &p.ImagePrompt,
		&p.ImageURL, &p.Status, &p.Theme, &p.ExternalPostID, &p.Notes, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt)
}

func collectPosts(rows pgx.Rows) ([]models.Post, error) {
	defer rows.Close()
	var posts []models.Post
	for rows.Next() {
		var p models.Post
		if err := scanPost(rows, &p); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *PostRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	var p models.Post
	if err := scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id), &p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// ListDue returns posts the scheduler should consider at now: approved or
// scheduled, with a non-null scheduled_at not after now.
func (r *PostRepo) ListDue(ctx context.Context, now time.Time) ([]models.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+postColumns+` FROM posts
		WHERE status = ANY($1) AND scheduled_at IS NOT NULL AND scheduled_at <= $2
		ORDER BY scheduled_at, sort_order
	`, models.PublishableStatuses, now)
	if err != nil {
		return nil, err
	}
	return collectPosts(rows)
}

// ReplaceCalendar deletes every unpublished post of the campaign, inserts
// posts in order and sets the campaign status, all in one transaction.
func (r *PostRepo) ReplaceCalendar(ctx context.Context, campaignID uuid.UUID, posts []models.Post, campaignStatus string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			DELETE FROM posts WHERE campaign_id = $1 AND status NOT IN ('posted')
		`, campaignID); err != nil {
			return err
		}

		for i := range posts {
			p := &posts[i]
			p.CampaignID = campaignID
			if p.Status == "" {
				p.Status = models.PostStatusDraft
			}
			err := tx.QueryRow(ctx, `
				INSERT INTO posts (campaign_id, scheduled_at, caption, hashtags, image_prompt, status, theme, sort_order)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING id, created_at, updated_at
			`, campaignID, p.ScheduledAt, p.Caption, p.Hashtags, p.ImagePrompt, p.Status, p.Theme, p.SortOrder,
			).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
			if err != nil {
				return err
			}
		}

		tag, err := tx.Exec(ctx, `UPDATE campaigns SET status = $1, updated_at = now() WHERE id = $2`, campaignStatus, campaignID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateStatus moves a post from one status to another. The from status is
// part of the WHERE clause so a concurrent change makes this a no-op that
// returns ErrNotFound.
func (r *PostRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET status = $1, updated_at = now() WHERE id = $2 AND status = $3
	`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ApproveDrafts approves every draft post of a campaign and returns the ids
// that changed.
func (r *PostRepo) ApproveDrafts(ctx context.Context, campaignID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE posts SET status = 'approved', updated_at = now()
		WHERE campaign_id = $1 AND status = 'draft'
		RETURNING id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

// MarkPosted records a successful publish. Only approved or scheduled posts
// can be marked, so a post is never posted twice.
func (r *PostRepo) MarkPosted(ctx context.Context, id uuid.UUID, externalPostID string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET status = 'posted', external_post_id = $1, notes = NULL, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, externalPostID, id, models.PublishableStatuses)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed records a terminal publish failure with notes.
func (r *PostRepo) MarkFailed(ctx context.Context, id uuid.UUID, notes string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET status = 'failed', notes = $1, updated_at = now()
		WHERE id = $2 AND status = ANY($3)
	`, notes, id, models.PublishableStatuses)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetFailed puts a failed post back to approved and clears its notes.
func (r *PostRepo) ResetFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET status = 'approved', notes = NULL, updated_at = now()
		WHERE id = $1 AND status = 'failed'
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostRepo) UpdateImage(ctx context.Context, id uuid.UUID, imageURL string, imagePrompt *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET image_url = $1, image_prompt = COALESCE($2, image_prompt), updated_at = now()
		WHERE id = $3
	`, imageURL, imagePrompt, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Edit applies the non-nil fields of e to a post that has not been posted.
func (r *PostRepo) Edit(ctx context.Context, id uuid.UUID, e models.PostEdit) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE posts SET
			caption = COALESCE($1, caption),
			hashtags = COALESCE($2, hashtags),
			image_prompt = COALESCE($3, image_prompt),
			scheduled_at = COALESCE($4, scheduled_at),
			theme = COALESCE($5, theme),
			updated_at = now()
		WHERE id = $6 AND status <> 'posted'
	`, e.Caption, e.Hashtags, e.ImagePrompt, e.ScheduledAt, e.Theme, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// CountBlocking counts posts of a campaign that are still draft or rejected.
func (r *PostRepo) CountBlocking(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM posts WHERE campaign_id = $1 AND status IN ('draft', 'rejected')
	`, campaignID).Scan(&n)
	return n, err
}
