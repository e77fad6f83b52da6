package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/tokenauth"
	"github.com/google/uuid"
)

var _ tokenauth.UserProvider = (*UserRepository)(nil)

const (
	qUserInsert = `
INSERT INTO users (id, name, email, password_hash)
VALUES ($1, $2, $3, $4)
RETURNING is_active, is_deleted, created_at`

	qUserByEmail = `
SELECT id, name, email, password_hash, is_active, is_deleted, created_at
FROM users
WHERE email = $1`

	qUserByID = `
SELECT id, name, email, password_hash, is_active, is_deleted, created_at
FROM users
WHERE id = $1`
)

// UserRepository is a Postgres-backed [tokenauth.UserProvider]. Emails are stored as
// given; the engine normalizes them before every call.
type UserRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (tokenauth.Principal, error) {
	return r.scanOne(ctx, "users.get_by_email", qUserByEmail, email)
}

// GetUserByID returns [tokenauth.ErrUserNotFound] for ids that are not UUIDs without
// querying.
func (r *UserRepository) GetUserByID(ctx context.Context, id string) (tokenauth.Principal, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return tokenauth.Principal{}, tokenauth.ErrUserNotFound
	}
	return r.scanOne(ctx, "users.get_by_id", qUserByID, parsed.String())
}

func (r *UserRepository) CreateUser(ctx context.Context, in tokenauth.CreateUserInput) (tokenauth.Principal, error) {
	const op = "users.create"

	p := tokenauth.Principal{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
	}
	err := r.db.QueryRowContext(ctx, qUserInsert, p.ID, p.Name, p.Email, p.PasswordHash).
		Scan(&p.IsActive, &p.IsDeleted, &p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return tokenauth.Principal{}, tokenauth.ErrProviderDuplicateIdentifier
		}
		return tokenauth.Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (r *UserRepository) scanOne(ctx context.Context, op, query string, arg any) (tokenauth.Principal, error) {
	var p tokenauth.Principal
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.PasswordHash,
		&p.IsActive,
		&p.IsDeleted,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tokenauth.Principal{}, tokenauth.ErrUserNotFound
		}
		return tokenauth.Principal{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}
