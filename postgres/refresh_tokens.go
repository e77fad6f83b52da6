package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/refresh"
	"github.com/google/uuid"
)

var _ refresh.Store = (*RefreshTokenRepository)(nil)

const (
	qRefreshInsert = `
INSERT INTO refresh_tokens (id, token_hash, user_id, client_id, device, ip_address, expires_at, revoked, revoked_at, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	qRefreshFindValid = `
SELECT id, token_hash, user_id, client_id, device, ip_address, expires_at, revoked, revoked_at, created_at
FROM refresh_tokens
WHERE token_hash = $1 AND revoked = FALSE AND expires_at > $2`

	qRefreshRevoke = `
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = $2
WHERE token_hash = $1 AND revoked = FALSE`

	qRefreshRevokeAll = `
UPDATE refresh_tokens
SET revoked = TRUE, revoked_at = $2
WHERE user_id = $1 AND revoked = FALSE`

	qRefreshPurge = `
DELETE FROM refresh_tokens
WHERE expires_at <= $1`
)

// RefreshTokenRepository is a Postgres-backed [refresh.Store]. Revoke is a single
// conditional UPDATE, so concurrent rotations of one token have exactly one winner.
type RefreshTokenRepository struct {
	db  DBTX
	now func() time.Time
}

// NewRefreshTokenRepository binds the repository to db.
func NewRefreshTokenRepository(db DBTX) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, now: time.Now}
}

// WithClock overrides the time source used for validity checks and timestamps.
func (r *RefreshTokenRepository) WithClock(now func() time.Time) *RefreshTokenRepository {
	if now != nil {
		r.now = now
	}
	return r
}

func (r *RefreshTokenRepository) Create(ctx context.Context, rec refresh.Record) error {
	const op = "refresh_tokens.create"

	if err := refresh.ValidateRecord(rec); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = r.now()
	}

	_, err := r.db.ExecContext(ctx, qRefreshInsert,
		rec.ID,
		rec.TokenHash,
		rec.PrincipalID,
		nullString(rec.ClientID),
		rec.Device,
		rec.IPAddress,
		rec.ExpiresAt.UTC(),
		rec.Revoked,
		nullTime(rec.RevokedAt),
		rec.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return refresh.ErrDuplicate
		}
		return fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	return nil
}

func (r *RefreshTokenRepository) FindValid(ctx context.Context, tokenHash string, filter refresh.Filter) (refresh.Record, error) {
	const op = "refresh_tokens.find_valid"

	var (
		rec       refresh.Record
		clientID  sql.NullString
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, qRefreshFindValid, tokenHash, r.now().UTC()).Scan(
		&rec.ID,
		&rec.TokenHash,
		&rec.PrincipalID,
		&clientID,
		&rec.Device,
		&rec.IPAddress,
		&rec.ExpiresAt,
		&rec.Revoked,
		&revokedAt,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return refresh.Record{}, refresh.ErrNotFound
		}
		return refresh.Record{}, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	rec.ClientID = clientID.String
	if revokedAt.Valid {
		rec.RevokedAt = revokedAt.Time
	}

	if !filter.Matches(rec) {
		return refresh.Record{}, refresh.ErrNotFound
	}
	return rec, nil
}

func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	const op = "refresh_tokens.revoke"

	res, err := r.db.ExecContext(ctx, qRefreshRevoke, tokenHash, r.now().UTC())
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	return n == 1, nil
}

func (r *RefreshTokenRepository) RevokeAllForPrincipal(ctx context.Context, principalID string) (int64, error) {
	const op = "refresh_tokens.revoke_all"

	// user_id is a uuid column; other ids cannot own rows.
	if _, err := uuid.Parse(principalID); err != nil {
		return 0, nil
	}

	res, err := r.db.ExecContext(ctx, qRefreshRevokeAll, principalID, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	return n, nil
}

// PurgeExpired deletes rows that expired at or before cutoff, revoked or not.
func (r *RefreshTokenRepository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "refresh_tokens.purge"

	res, err := r.db.ExecContext(ctx, qRefreshPurge, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", refresh.ErrUnavailable, op, err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t.UTC(), Valid: !t.IsZero()}
}
