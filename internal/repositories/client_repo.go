package repositories

import (
	"context"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ClientRepo struct {
	pool *pgxpool.Pool
}

func NewClientRepo(pool *pgxpool.Pool) *ClientRepo {
	return &ClientRepo{pool: pool}
}

func (r *ClientRepo) List(ctx context.Context) ([]models.Client, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, slug, name, email, website, created_at
		FROM clients ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []models.Client
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Slug, &c.Name, &c.Email, &c.Website, &c.CreatedAt); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *ClientRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	var c models.Client
	err := r.pool.QueryRow(ctx, `
		SELECT id, slug, name, email, website, created_at
		FROM clients WHERE id = $1
	`, id).Scan(&c.ID, &c.Slug, &c.Name, &c.Email, &c.Website, &c.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

// ---- Platform credentials ----

// UpsertCredential stores the publishing account of a client. The token is
// expected to be encrypted already.
func (r *ClientRepo) UpsertCredential(ctx context.Context, clientID uuid.UUID, accountID string, accessTokenEnc []byte) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO platform_credentials (client_id, account_id, access_token_enc)
		VALUES ($1, $2, $3)
		ON CONFLICT (client_id) DO UPDATE SET
			account_id = EXCLUDED.account_id,
			access_token_enc = EXCLUDED.access_token_enc,
			updated_at = now()
	`, clientID, accountID, accessTokenEnc)
	return err
}

func (r *ClientRepo) GetCredential(ctx context.Context, clientID uuid.UUID) (accountID string, accessTokenEnc []byte, err error) {
	err = r.pool.QueryRow(ctx, `
		SELECT account_id, access_token_enc FROM platform_credentials WHERE client_id = $1
	`, clientID).Scan(&accountID, &accessTokenEnc)
	if err != nil {
		return "", nil, notFound(err)
	}
	return accountID, accessTokenEnc, nil
}
