package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/keys"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/refresh"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const loadPassword = "load-test-password"

type principalState struct {
	email   string
	access  string
	refresh string
	mu      sync.Mutex
}

// memoryUsers is a read-mostly user provider; the load test never registers.
type memoryUsers struct {
	byEmail map[string]tokenauth.Principal
	byID    map[string]tokenauth.Principal
}

func (m *memoryUsers) GetUserByEmail(_ context.Context, email string) (tokenauth.Principal, error) {
	p, ok := m.byEmail[email]
	if !ok {
		return tokenauth.Principal{}, tokenauth.ErrUserNotFound
	}
	return p, nil
}

func (m *memoryUsers) GetUserByID(_ context.Context, id string) (tokenauth.Principal, error) {
	p, ok := m.byID[id]
	if !ok {
		return tokenauth.Principal{}, tokenauth.ErrUserNotFound
	}
	return p, nil
}

func (m *memoryUsers) CreateUser(context.Context, tokenauth.CreateUserInput) (tokenauth.Principal, error) {
	return tokenauth.Principal{}, errors.New("read-only provider")
}

func main() {
	var (
		principals  = flag.Int("principals", 2000, "number of principals to seed and log in")
		concurrency = flag.Int("concurrency", 64, "number of concurrent workers")
		ops         = flag.Int("ops", 20000, "operations per verify and refresh phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "tokenauth-load", "refresh key prefix")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	engine, users, err := buildEngine(client, *prefix, *principals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine setup failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	states := make([]principalState, 0, len(users.byEmail))
	for email := range users.byEmail {
		states = append(states, principalState{email: email})
	}

	loginStats := runLoginPhase(ctx, engine, states, *concurrency)
	verifyStats := runVerifyPhase(ctx, engine, states, *ops, *concurrency)
	refreshStats := runRefreshPhase(ctx, engine, states, *ops, *concurrency)

	fmt.Println("---- results ----")
	printStats("login", loginStats)
	printStats("verify", verifyStats)
	printStats("refresh", refreshStats)

	snap := engine.MetricsSnapshot()
	fmt.Printf("refresh races lost: %d\n", snap.Counters[tokenauth.MetricRefreshRaceLost])
}

func buildEngine(client redis.UniversalClient, prefix string, n int) (*tokenauth.Engine, *memoryUsers, error) {
	pair, err := keys.Generate(keys.DefaultMinBits)
	if err != nil {
		return nil, nil, err
	}
	provider, err := keys.Load(keys.Config{PrivateKeyPEM: pair.PrivatePEM, PublicKeyPEM: pair.PublicPEM})
	if err != nil {
		return nil, nil, err
	}

	hasher, err := password.NewBcrypt(4)
	if err != nil {
		return nil, nil, err
	}
	hash, err := hasher.Hash(loadPassword)
	if err != nil {
		return nil, nil, err
	}

	users := &memoryUsers{
		byEmail: make(map[string]tokenauth.Principal, n),
		byID:    make(map[string]tokenauth.Principal, n),
	}
	now := time.Now()
	for i := 0; i < n; i++ {
		p := tokenauth.Principal{
			ID:           uuid.NewString(),
			Name:         fmt.Sprintf("user %d", i),
			Email:        fmt.Sprintf("user%d@load.test", i),
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    now,
		}
		users.byEmail[p.Email] = p
		users.byID[p.ID] = p
	}

	cfg := tokenauth.DefaultConfig()
	cfg.Client.Required = false
	cfg.Password.BcryptCost = 4
	cfg.Security.MaxLoginAttempts = 0

	engine, err := tokenauth.New().
		WithConfig(cfg).
		WithKeyProvider(provider).
		WithRefreshStore(refresh.NewRedisStore(client, prefix)).
		WithUserProvider(users).
		WithPasswordHasher(hasher).
		WithMetricsEnabled(true).
		WithLatencyHistograms(true).
		Build()
	if err != nil {
		return nil, nil, err
	}
	return engine, users, nil
}

func runLoginPhase(ctx context.Context, engine *tokenauth.Engine, states []principalState, concurrency int) phaseStats {
	return runPhase(len(states), concurrency, 0, func(i int, _ *rand.Rand) error {
		state := &states[i]
		res, err := engine.Login(ctx, tokenauth.LoginRequest{
			Email:    state.email,
			Password: loadPassword,
			Device:   "loadtest",
		})
		if err != nil {
			return err
		}
		state.mu.Lock()
		state.access = res.AccessToken
		state.refresh = res.RefreshToken
		state.mu.Unlock()
		return nil
	})
}

func runVerifyPhase(ctx context.Context, engine *tokenauth.Engine, states []principalState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 7919, func(_ int, r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		token := state.access
		state.mu.Unlock()
		_, err := engine.Verify(ctx, token)
		return err
	})
}

func runRefreshPhase(ctx context.Context, engine *tokenauth.Engine, states []principalState, ops, concurrency int) phaseStats {
	return runPhase(ops, concurrency, 6151, func(_ int, r *rand.Rand) error {
		state := &states[r.Intn(len(states))]
		state.mu.Lock()
		defer state.mu.Unlock()

		res, err := engine.Refresh(ctx, tokenauth.RefreshRequest{RefreshToken: state.refresh})
		if err != nil {
			return err
		}
		state.access = res.AccessToken
		state.refresh = res.RefreshToken
		return nil
	})
}

// runPhase runs op ops times across concurrency workers and records each call's latency.
func runPhase(ops, concurrency int, seed int64, op func(i int, r *rand.Rand) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*seed))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(i, r)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}
