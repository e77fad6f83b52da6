//go:build integration
// +build integration

package test

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/keys"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const integrationPassword = "integration-password-1"

var (
	keysOnce sync.Once
	keysVal  *keys.Provider
	keysErr  error
)

func integrationKeys(t *testing.T) *keys.Provider {
	t.Helper()
	keysOnce.Do(func() {
		pair, err := keys.Generate(keys.DefaultMinBits)
		if err != nil {
			keysErr = err
			return
		}
		keysVal, keysErr = keys.Load(keys.Config{PrivateKeyPEM: pair.PrivatePEM, PublicKeyPEM: pair.PublicPEM})
	})
	if keysErr != nil {
		t.Fatalf("keys: %v", keysErr)
	}
	return keysVal
}

func integrationHasher(t *testing.T) password.Hasher {
	t.Helper()
	h, err := password.NewBcrypt(4)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	return h
}

func integrationConfig() tokenauth.Config {
	cfg := tokenauth.DefaultConfig()
	cfg.Password.BcryptCost = 4
	cfg.Client.Required = false
	cfg.Metrics.Enabled = true
	return cfg
}

// redisMode describes which Redis backend a suite is running against.
type redisMode struct {
	name  string
	setup func(t *testing.T) (redis.UniversalClient, func())
}

// redisModes always includes miniredis. Real Redis is added when REDIS_ADDR is set.
func redisModes(t *testing.T) []redisMode {
	t.Helper()
	modes := []redisMode{
		{
			name: "miniredis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis run failed: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				return rdb, func() {
					_ = rdb.Close()
					mr.Close()
				}
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, redisMode{
			name: "redis",
			setup: func(t *testing.T) (redis.UniversalClient, func()) {
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("redis at %s unreachable: %v", addr, err)
				}
				return rdb, func() { _ = rdb.Close() }
			},
		})
	}
	return modes
}

// openPostgres migrates and returns the database named by TOKENAUTH_TEST_DATABASE_URL,
// skipping the test when it is unset.
func openPostgres(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TOKENAUTH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TOKENAUTH_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, dsn)
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// memoryUsers is a concurrency-safe user provider for the Redis suites.
type memoryUsers struct {
	mu      sync.RWMutex
	byEmail map[string]tokenauth.Principal
	byID    map[string]tokenauth.Principal
}

func newMemoryUsers() *memoryUsers {
	return &memoryUsers{
		byEmail: make(map[string]tokenauth.Principal),
		byID:    make(map[string]tokenauth.Principal),
	}
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (tokenauth.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byEmail[email]
	if !ok {
		return tokenauth.Principal{}, tokenauth.ErrUserNotFound
	}
	return p, nil
}

func (m *memoryUsers) GetUserByID(_ context.Context, id string) (tokenauth.Principal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	if !ok {
		return tokenauth.Principal{}, tokenauth.ErrUserNotFound
	}
	return p, nil
}

func (m *memoryUsers) CreateUser(_ context.Context, in tokenauth.CreateUserInput) (tokenauth.Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[in.Email]; ok {
		return tokenauth.Principal{}, tokenauth.ErrProviderDuplicateIdentifier
	}
	p := tokenauth.Principal{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	m.byEmail[p.Email] = p
	m.byID[p.ID] = p
	return p, nil
}
