package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by [Store.FindValid] when no record matches, or the match is
	// revoked or expired.
	ErrNotFound = errors.New("refresh token not found")
	// ErrDuplicate is returned by [Store.Create] when a record with the same hash exists.
	ErrDuplicate = errors.New("refresh token already exists")
	// ErrUnavailable wraps infrastructure failures (connection, timeout, driver errors).
	ErrUnavailable = errors.New("refresh store unavailable")
	// ErrInvalidRecord is returned by [Store.Create] for records missing required fields.
	ErrInvalidRecord = errors.New("invalid refresh record")
)

// Record is one issued refresh token. Only the hash of the token value is stored.
type Record struct {
	ID          string
	TokenHash   string
	PrincipalID string
	ClientID    string
	Device      string
	IPAddress   string
	ExpiresAt   time.Time
	Revoked     bool
	RevokedAt   time.Time
	CreatedAt   time.Time
}

// Valid reports whether the record can still be exchanged at now.
func (r Record) Valid(now time.Time) bool {
	return !r.Revoked && now.Before(r.ExpiresAt)
}

// Filter narrows [Store.FindValid]. Empty fields match anything.
type Filter struct {
	PrincipalID string
	ClientID    string
}

// Matches reports whether r satisfies every non-empty field of f.
func (f Filter) Matches(r Record) bool {
	if f.PrincipalID != "" && f.PrincipalID != r.PrincipalID {
		return false
	}
	if f.ClientID != "" && f.ClientID != r.ClientID {
		return false
	}
	return true
}

// Store is the durable record of issued refresh tokens.
//
// Revoke must be a single conditional update: among any number of concurrent calls for
// the same hash, at most one returns true. Rotation correctness depends on it.
type Store interface {
	Create(ctx context.Context, rec Record) error
	FindValid(ctx context.Context, tokenHash string, filter Filter) (Record, error)
	Revoke(ctx context.Context, tokenHash string) (bool, error)
	RevokeAllForPrincipal(ctx context.Context, principalID string) (int64, error)
}

// ValidateRecord checks the fields every [Store.Create] implementation requires. Failures
// wrap [ErrInvalidRecord].
func ValidateRecord(rec Record) error {
	switch {
	case rec.TokenHash == "":
		return errors.Join(ErrInvalidRecord, errors.New("token hash required"))
	case rec.PrincipalID == "":
		return errors.Join(ErrInvalidRecord, errors.New("principal id required"))
	case rec.ExpiresAt.IsZero():
		return errors.Join(ErrInvalidRecord, errors.New("expiry required"))
	}
	return nil
}
