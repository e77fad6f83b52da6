package tokenauth

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/tokenauth/refresh"
)

func TestRefreshConcurrencySingleWinner(t *testing.T) {
	backends := map[string]func(t *testing.T) refresh.Store{
		"memory": func(t *testing.T) refresh.Store {
			return refresh.NewMemoryStore(nil)
		},
		"redis": func(t *testing.T) refresh.Store {
			_, rdb := newTestRedis(t)
			return refresh.NewRedisStore(rdb, "race")
		},
	}

	for name, newStore := range backends {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t, testConfig(), newStore(t))
			res := env.login(t)

			const n = 16
			var wg sync.WaitGroup
			start := make(chan struct{})
			results := make(chan error, n)
			wg.Add(n)
			for i := 0; i < n; i++ {
				go func() {
					defer wg.Done()
					<-start
					_, err := env.engine.Refresh(context.Background(), RefreshRequest{RefreshToken: res.RefreshToken})
					results <- err
				}()
			}
			close(start)
			wg.Wait()
			close(results)

			success := 0
			fail := 0
			for err := range results {
				if err == nil {
					success++
					continue
				}
				if errors.Is(err, ErrInvalidOrExpiredToken) {
					fail++
					continue
				}
				t.Fatalf("unexpected refresh error: %v", err)
			}

			if success != 1 {
				t.Fatalf("expected exactly one refresh success, got %d", success)
			}
			if fail != n-1 {
				t.Fatalf("expected %d refresh failures, got %d", n-1, fail)
			}
		})
	}
}

func TestRefreshChainKeepsOneValidToken(t *testing.T) {
	store := refresh.NewMemoryStore(nil)
	env := newTestEnv(t, testConfig(), store)
	tok := env.login(t).RefreshToken

	for i := 0; i < 5; i++ {
		res, err := env.engine.Refresh(context.Background(), RefreshRequest{RefreshToken: tok})
		if err != nil {
			t.Fatalf("rotation %d: %v", i, err)
		}
		tok = res.RefreshToken
	}

	valid := 0
	for _, rec := range store.ListForPrincipal(env.alice.ID) {
		if !rec.Revoked {
			valid++
		}
	}
	if valid != 1 {
		t.Fatalf("expected one live token in the chain, got %d", valid)
	}
}
