package tokenauth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/tokenauth/keys"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/refresh"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	testClientID     = "HRM"
	testClientSecret = "hrm-client-secret"
	testPassword     = "correct-password-123"
)

var (
	testKeysOnce sync.Once
	testKeys     *keys.Provider
	testKeysErr  error
)

func testKeyProvider(tb testing.TB) *keys.Provider {
	tb.Helper()
	testKeysOnce.Do(func() {
		pair, err := keys.Generate(2048)
		if err != nil {
			testKeysErr = err
			return
		}
		testKeys, testKeysErr = keys.Load(keys.Config{PrivateKeyPEM: pair.PrivatePEM, PublicKeyPEM: pair.PublicPEM})
	})
	if testKeysErr != nil {
		tb.Fatalf("test keys: %v", testKeysErr)
	}
	return testKeys
}

func newTestHasher(tb testing.TB) password.Hasher {
	tb.Helper()
	h, err := password.NewBcrypt(4)
	if err != nil {
		tb.Fatalf("hasher: %v", err)
	}
	return h
}

func newTestRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()
	mr := miniredis.RunT(tb)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Now().UTC().Truncate(time.Second)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type mockUserProvider struct {
	mu      sync.Mutex
	byID    map[string]Principal
	byEmail map[string]string
	err     error
}

func newMockUserProvider() *mockUserProvider {
	return &mockUserProvider{
		byID:    make(map[string]Principal),
		byEmail: make(map[string]string),
	}
}

func (m *mockUserProvider) add(p Principal) Principal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	m.byID[p.ID] = p
	m.byEmail[p.Email] = p.ID
	return p
}

func (m *mockUserProvider) setActive(id string, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.byID[id]
	p.IsActive = active
	m.byID[id] = p
}

func (m *mockUserProvider) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockUserProvider) GetUserByEmail(_ context.Context, email string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Principal{}, m.err
	}
	id, ok := m.byEmail[email]
	if !ok {
		return Principal{}, ErrUserNotFound
	}
	return m.byID[id], nil
}

func (m *mockUserProvider) GetUserByID(_ context.Context, id string) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Principal{}, m.err
	}
	p, ok := m.byID[id]
	if !ok {
		return Principal{}, ErrUserNotFound
	}
	return p, nil
}

func (m *mockUserProvider) CreateUser(_ context.Context, in CreateUserInput) (Principal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Principal{}, m.err
	}
	if _, exists := m.byEmail[in.Email]; exists {
		return Principal{}, ErrProviderDuplicateIdentifier
	}
	p := Principal{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
	}
	m.byID[p.ID] = p
	m.byEmail[p.Email] = p.ID
	return p, nil
}

type mockClientRegistry struct {
	mu      sync.Mutex
	clients map[string]Client
	err     error
}

func (m *mockClientRegistry) FindActiveClient(_ context.Context, clientID string) (Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Client{}, m.err
	}
	c, ok := m.clients[clientID]
	if !ok || !c.IsActive {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

// failingStore wraps a store and fails every call with refresh.ErrUnavailable when
// down is set.
type failingStore struct {
	refresh.Store
	mu   sync.Mutex
	down bool
}

func (s *failingStore) setDown(down bool) {
	s.mu.Lock()
	s.down = down
	s.mu.Unlock()
}

func (s *failingStore) isDown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.down
}

func (s *failingStore) Create(ctx context.Context, rec refresh.Record) error {
	if s.isDown() {
		return refresh.ErrUnavailable
	}
	return s.Store.Create(ctx, rec)
}

func (s *failingStore) FindValid(ctx context.Context, hash string, f refresh.Filter) (refresh.Record, error) {
	if s.isDown() {
		return refresh.Record{}, refresh.ErrUnavailable
	}
	return s.Store.FindValid(ctx, hash, f)
}

func (s *failingStore) Revoke(ctx context.Context, hash string) (bool, error) {
	if s.isDown() {
		return false, refresh.ErrUnavailable
	}
	return s.Store.Revoke(ctx, hash)
}

type testEnv struct {
	engine  *Engine
	store   refresh.Store
	users   *mockUserProvider
	clients *mockClientRegistry
	clock   *fakeClock
	alice   Principal
}

type envOption func(*Builder)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.BcryptCost = 4
	return cfg
}

// newTestEnv builds an engine over store (a memory store on the env clock when nil)
// with one active principal alice@example.com and the HRM client.
func newTestEnv(t *testing.T, cfg Config, store refresh.Store, opts ...envOption) *testEnv {
	t.Helper()

	clock := newFakeClock()
	if store == nil {
		store = refresh.NewMemoryStore(clock.Now)
	}

	hasher := newTestHasher(t)
	pwHash, err := hasher.Hash(testPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	secretHash, err := hasher.Hash(testClientSecret)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	users := newMockUserProvider()
	alice := users.add(Principal{
		Name:         "Alice",
		Email:        "alice@example.com",
		PasswordHash: pwHash,
		IsActive:     true,
		CreatedAt:    clock.Now(),
	})
	clients := &mockClientRegistry{clients: map[string]Client{
		testClientID: {ClientID: testClientID, Name: "HRM Application", SecretHash: secretHash, IsActive: true},
		"CRM":        {ClientID: "CRM", Name: "CRM Application", SecretHash: secretHash, IsActive: false},
	}}

	b := New().
		WithConfig(cfg).
		WithKeyProvider(testKeyProvider(t)).
		WithRefreshStore(store).
		WithUserProvider(users).
		WithClientRegistry(clients).
		WithPasswordHasher(hasher).
		WithClock(clock.Now)
	for _, opt := range opts {
		opt(b)
	}

	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &testEnv{
		engine:  engine,
		store:   store,
		users:   users,
		clients: clients,
		clock:   clock,
		alice:   alice,
	}
}

func (env *testEnv) login(t *testing.T) *LoginResult {
	t.Helper()
	res, err := env.engine.Login(context.Background(), LoginRequest{
		Email:        "alice@example.com",
		Password:     testPassword,
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	return res
}
