package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenauth"
)

var _ tokenauth.ClientRegistry = (*ClientRepository)(nil)

// ErrConflict is returned when an insert collides with an existing row.
var ErrConflict = errors.New("postgres: conflict")

const (
	qClientActive = `
SELECT client_id, name, secret_hash, is_active, created_at
FROM clients
WHERE client_id = $1 AND is_active = TRUE`

	qClientInsert = `
INSERT INTO clients (client_id, name, secret_hash, is_active)
VALUES ($1, $2, $3, $4)
RETURNING created_at`

	qClientExists = `
SELECT EXISTS (SELECT 1 FROM clients WHERE client_id = $1)`
)

// ClientRepository is a Postgres-backed [tokenauth.ClientRegistry].
type ClientRepository struct {
	db DBTX
}

func NewClientRepository(db DBTX) *ClientRepository {
	return &ClientRepository{db: db}
}

// FindActiveClient returns [tokenauth.ErrClientNotFound] for unknown and inactive
// clients alike.
func (r *ClientRepository) FindActiveClient(ctx context.Context, clientID string) (tokenauth.Client, error) {
	const op = "clients.find_active"

	var c tokenauth.Client
	err := r.db.QueryRowContext(ctx, qClientActive, clientID).
		Scan(&c.ClientID, &c.Name, &c.SecretHash, &c.IsActive, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tokenauth.Client{}, tokenauth.ErrClientNotFound
		}
		return tokenauth.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

// CreateClient inserts c. SecretHash must already be hashed.
func (r *ClientRepository) CreateClient(ctx context.Context, c tokenauth.Client) (tokenauth.Client, error) {
	const op = "clients.create"

	if c.ClientID == "" || c.SecretHash == "" {
		return tokenauth.Client{}, fmt.Errorf("%s: client id and secret hash required", op)
	}
	err := r.db.QueryRowContext(ctx, qClientInsert, c.ClientID, c.Name, c.SecretHash, c.IsActive).
		Scan(&c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return tokenauth.Client{}, ErrConflict
		}
		return tokenauth.Client{}, fmt.Errorf("%s: %w", op, err)
	}
	return c, nil
}

func (r *ClientRepository) Exists(ctx context.Context, clientID string) (bool, error) {
	const op = "clients.exists"

	var ok bool
	if err := r.db.QueryRowContext(ctx, qClientExists, clientID).Scan(&ok); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return ok, nil
}
