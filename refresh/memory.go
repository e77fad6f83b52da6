package refresh

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process [Store]. It is suitable for tests and single-instance
// deployments that accept losing sessions on restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty store. now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		records: make(map[string]Record),
		now:     now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return unavailable(err)
	}
	if err := ValidateRecord(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.TokenHash]; exists {
		return ErrDuplicate
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.records[rec.TokenHash] = rec
	return nil
}

func (s *MemoryStore) FindValid(ctx context.Context, tokenHash string, filter Filter) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tokenHash]
	if !ok || !rec.Valid(s.now()) || !filter.Matches(rec) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[tokenHash]
	if !ok || rec.Revoked {
		return false, nil
	}
	rec.Revoked = true
	rec.RevokedAt = s.now()
	s.records[tokenHash] = rec
	return true, nil
}

func (s *MemoryStore) RevokeAllForPrincipal(ctx context.Context, principalID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for hash, rec := range s.records {
		if rec.PrincipalID != principalID || rec.Revoked {
			continue
		}
		rec.Revoked = true
		rec.RevokedAt = now
		s.records[hash] = rec
		n++
	}
	return n, nil
}

// PurgeExpired deletes records that expired at or before cutoff and returns how many
// were removed.
func (s *MemoryStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for hash, rec := range s.records {
		if !rec.ExpiresAt.After(cutoff) {
			delete(s.records, hash)
			n++
		}
	}
	return n, nil
}

// ListForPrincipal returns every record owned by principalID, oldest first, including
// revoked and expired ones.
func (s *MemoryStore) ListForPrincipal(principalID string) []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.PrincipalID == principalID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
