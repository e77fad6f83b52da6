package refresh

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces refresh records when no prefix is configured.
const DefaultRedisPrefix = "tokenauth"

const createRecordScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
local ttl = tonumber(ARGV[1])
redis.call("HSET", KEYS[1], unpack(ARGV, 3))
redis.call("PEXPIRE", KEYS[1], ttl)
redis.call("SADD", KEYS[2], ARGV[2])
local index_ttl = redis.call("PTTL", KEYS[2])
if index_ttl < ttl then
  redis.call("PEXPIRE", KEYS[2], ttl)
end
return 1
`

var createRecordLua = redis.NewScript(createRecordScript)

const revokeRecordScript = `
local revoked = redis.call("HGET", KEYS[1], "revoked")
if not revoked or revoked == "1" then
  return 0
end
redis.call("HSET", KEYS[1], "revoked", "1", "revoked_at", ARGV[1])
return 1
`

var revokeRecordLua = redis.NewScript(revokeRecordScript)

const revokeAllScript = `
local members = redis.call("SMEMBERS", KEYS[1])
local changed = 0
for _, hash in ipairs(members) do
  local key = ARGV[1] .. hash
  local revoked = redis.call("HGET", key, "revoked")
  if not revoked then
    redis.call("SREM", KEYS[1], hash)
  elseif revoked == "0" then
    redis.call("HSET", key, "revoked", "1", "revoked_at", ARGV[2])
    changed = changed + 1
  end
end
return changed
`

var revokeAllLua = redis.NewScript(revokeAllScript)

// RedisStore is a Redis-backed [Store].
//
// Each record is a hash at {prefix}:rt:{tokenHash} whose key TTL equals the token expiry,
// so Redis discards records on its own. A set at {prefix}:rtp:{principalID} indexes a
// principal's records for bulk revocation. Create, Revoke, and RevokeAllForPrincipal run
// as Lua scripts and are atomic.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a [RedisStore]. An empty prefix uses [DefaultRedisPrefix].
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{redis: client, prefix: prefix, now: time.Now}
}

// WithClock replaces the time source used for validity checks and revocation stamps.
func (s *RedisStore) WithClock(now func() time.Time) *RedisStore {
	if now != nil {
		s.now = now
	}
	return s
}

func (s *RedisStore) recordPrefix() string {
	return s.prefix + ":rt:"
}

func (s *RedisStore) key(tokenHash string) string {
	return s.recordPrefix() + tokenHash
}

func (s *RedisStore) principalKey(principalID string) string {
	return s.prefix + ":rtp:" + principalID
}

func (s *RedisStore) Create(ctx context.Context, rec Record) error {
	if err := ValidateRecord(rec); err != nil {
		return err
	}

	now := s.now()
	ttl := rec.ExpiresAt.Sub(now)
	if ttl < time.Millisecond {
		// Already expired records are accepted but must not linger.
		ttl = time.Millisecond
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}

	args := []interface{}{
		ttl.Milliseconds(),
		rec.TokenHash,
		"id", rec.ID,
		"principal_id", rec.PrincipalID,
		"client_id", rec.ClientID,
		"device", rec.Device,
		"ip", rec.IPAddress,
		"created_at", rec.CreatedAt.UnixMilli(),
		"expires_at", rec.ExpiresAt.UnixMilli(),
		"revoked", boolField(rec.Revoked),
		"revoked_at", unixMilliOrZero(rec.RevokedAt),
	}

	created, err := createRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.key(rec.TokenHash), s.principalKey(rec.PrincipalID)},
		args...,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if created == 0 {
		return ErrDuplicate
	}
	return nil
}

func (s *RedisStore) FindValid(ctx context.Context, tokenHash string, filter Filter) (Record, error) {
	fields, err := s.redis.HGetAll(ctx, s.key(tokenHash)).Result()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return Record{}, ErrNotFound
	}

	rec, err := decodeRecord(tokenHash, fields)
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if !rec.Valid(s.now()) || !filter.Matches(rec) {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *RedisStore) Revoke(ctx context.Context, tokenHash string) (bool, error) {
	n, err := revokeRecordLua.Run(
		ctx,
		s.redis,
		[]string{s.key(tokenHash)},
		s.now().UnixMilli(),
	).Int64()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n == 1, nil
}

// RevokeAllForPrincipal revokes every live record in the principal index. Record keys are
// derived inside the script, so on Redis Cluster the prefix should carry a hash tag.
func (s *RedisStore) RevokeAllForPrincipal(ctx context.Context, principalID string) (int64, error) {
	n, err := revokeAllLua.Run(
		ctx,
		s.redis,
		[]string{s.principalKey(principalID)},
		s.recordPrefix(),
		s.now().UnixMilli(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

func decodeRecord(tokenHash string, fields map[string]string) (Record, error) {
	createdAt, err := parseMillis(fields["created_at"])
	if err != nil {
		return Record{}, err
	}
	expiresAt, err := parseMillis(fields["expires_at"])
	if err != nil {
		return Record{}, err
	}
	if expiresAt.IsZero() {
		return Record{}, errors.New("record missing expiry")
	}
	revokedAt, err := parseMillis(fields["revoked_at"])
	if err != nil {
		return Record{}, err
	}

	return Record{
		ID:          fields["id"],
		TokenHash:   tokenHash,
		PrincipalID: fields["principal_id"],
		ClientID:    fields["client_id"],
		Device:      fields["device"],
		IPAddress:   fields["ip"],
		ExpiresAt:   expiresAt,
		Revoked:     fields["revoked"] == "1",
		RevokedAt:   revokedAt,
		CreatedAt:   createdAt,
	}, nil
}

func parseMillis(v string) (time.Time, error) {
	if v == "" || v == "0" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q", v)
	}
	return time.UnixMilli(ms), nil
}

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func unixMilliOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
