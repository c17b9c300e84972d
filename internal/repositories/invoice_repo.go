package repositories

import (
	"context"
	"fmt"

	"github.com/agency-hub/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *InvoiceRepo {
	return &InvoiceRepo{pool: pool}
}

// Create assigns the next sequential invoice number (INV-0001, ...) when
// Number is empty.
func (r *InvoiceRepo) Create(ctx context.Context, inv *models.Invoice) error {
	if inv.Number == "" {
		var count int
		if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM invoices`).Scan(&count); err != nil {
			return err
		}
		inv.Number = fmt.Sprintf("INV-%04d", count+1)
	}
	if inv.Status == "" {
		inv.Status = models.InvoiceStatusDraft
	}
	if inv.Currency == "" {
		inv.Currency = "USD"
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO invoices (client_id, number, description, amount_cents, currency, status, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, inv.ClientID, inv.Number, inv.Description, inv.AmountCents, inv.Currency, inv.Status, inv.DueDate,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var inv models.Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT i.id, i.client_id, c.name, i.number, i.description, i.amount_cents, i.currency,
		       i.status, i.due_date, i.created_at, i.updated_at
		FROM invoices i LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.id = $1
	`, id).Scan(&inv.ID, &inv.ClientID, &inv.ClientName, &inv.Number, &inv.Description, &inv.AmountCents,
		&inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &inv, nil
}

// ListOutstanding returns sent and overdue invoices, oldest due first.
func (r *InvoiceRepo) ListOutstanding(ctx context.Context) ([]models.Invoice, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.client_id, c.name, i.number, i.description, i.amount_cents, i.currency,
		       i.status, i.due_date, i.created_at, i.updated_at
		FROM invoices i LEFT JOIN clients c ON c.id = i.client_id
		WHERE i.status IN ('sent', 'overdue')
		ORDER BY i.due_date NULLS LAST, i.created_at
		LIMIT 100
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.ClientID, &inv.ClientName, &inv.Number, &inv.Description, &inv.AmountCents,
			&inv.Currency, &inv.Status, &inv.DueDate, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE invoices SET status = $1, updated_at = now() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
