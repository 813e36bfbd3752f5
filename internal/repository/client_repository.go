package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/segyhp/loan-settlement/internal/domain"
)

const uniqueViolation = "23505"

const clientColumns = `id, name, tax_id, phone, email, rg, address, reference_contact, doc_url, reputation, owner_id, created_at, updated_at`

type clientRepository struct {
	db sqlx.ExtContext
}

func NewClientRepository(db sqlx.ExtContext) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *domain.Client) error {
	query := `
		INSERT INTO clients (` + clientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		client.ID,
		client.Name,
		client.TaxID,
		client.Phone,
		client.Email,
		client.RG,
		client.Address,
		client.ReferenceContact,
		client.DocURL,
		client.Reputation,
		client.OwnerID,
		client.CreatedAt,
		client.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateKey, pqErr.Constraint)
	}

	return err
}

func (r *clientRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	var client domain.Client
	if err := sqlx.GetContext(ctx, r.db, &client, query, id); err != nil {
		return nil, err
	}

	return &client, nil
}

func (r *clientRepository) List(ctx context.Context, ownerID string) ([]*domain.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients`
	args := []interface{}{}
	if ownerID != "" {
		query += ` WHERE owner_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY name`

	clients := []*domain.Client{}
	if err := sqlx.SelectContext(ctx, r.db, &clients, query, args...); err != nil {
		return nil, err
	}

	return clients, nil
}

func (r *clientRepository) UpdateReputation(ctx context.Context, id uuid.UUID, reputation domain.Reputation) error {
	query := `UPDATE clients SET reputation = $2, updated_at = $3 WHERE id = $1`

	return expectOneRow(r.db.ExecContext(ctx, query, id, reputation, time.Now()))
}

func (r *clientRepository) UpdateDocument(ctx context.Context, id uuid.UUID, docURL string) error {
	query := `UPDATE clients SET doc_url = $2, updated_at = $3 WHERE id = $1`

	return expectOneRow(r.db.ExecContext(ctx, query, id, docURL, time.Now()))
}
