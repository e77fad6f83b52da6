package tokenauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/keys"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/refresh"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// dummyPassword is hashed once at Build. Logins for unknown emails and unknown clients
// verify against that hash so they cost the same as a real mismatch.
const dummyPassword = "tokenauth-timing-equalizer"

// Builder assembles an [Engine]. It is single use: a second Build returns an error.
//
// Only a [UserProvider] is always required. Everything else has a default:
//   - key material is loaded from Config.JWT when no provider is given;
//   - the refresh store is a [refresh.RedisStore] over WithRedis when none is given;
//   - the password hasher follows Config.Password.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	keyProvider    *keys.Provider
	refreshStore   refresh.Store
	userProvider   UserProvider
	clientRegistry ClientRegistry
	hasher         password.Hasher
	auditSink      AuditSink
	logger         *zap.Logger
	now            func() time.Time

	built bool
}

// New returns a Builder seeded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the configuration. The Builder keeps its own copy.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis supplies the client used for login throttling and, when no refresh store
// is given, for the Redis refresh store.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithKeyProvider supplies loaded key material. Config.JWT key bytes are then ignored.
func (b *Builder) WithKeyProvider(p *keys.Provider) *Builder {
	b.keyProvider = p
	return b
}

// WithRefreshStore supplies the refresh token store.
func (b *Builder) WithRefreshStore(store refresh.Store) *Builder {
	b.refreshStore = store
	return b
}

// WithUserProvider supplies principal lookups.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithClientRegistry supplies client lookups. Required when Config.Client.Required.
func (b *Builder) WithClientRegistry(reg ClientRegistry) *Builder {
	b.clientRegistry = reg
	return b
}

// WithPasswordHasher overrides the hasher built from Config.Password.
func (b *Builder) WithPasswordHasher(h password.Hasher) *Builder {
	b.hasher = h
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for token issue and refresh expiry.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}
	if cfg.Client.Required && b.clientRegistry == nil {
		return nil, errors.New("client registry required when client authentication is required")
	}

	store := b.refreshStore
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("refresh store or redis client required")
		}
		rs := refresh.NewRedisStore(b.redis, cfg.Refresh.RedisPrefix)
		if b.now != nil {
			rs = rs.WithClock(b.now)
		}
		store = rs
	}

	provider := b.keyProvider
	if provider == nil {
		p, err := keys.Load(keys.Config{
			PrivateKeyPEM: cloneBytes(cfg.JWT.PrivateKey),
			PublicKeyPEM:  cloneBytes(cfg.JWT.PublicKey),
			MinBits:       cfg.JWT.MinKeyBits,
		})
		if err != nil {
			return nil, err
		}
		provider = p
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	codec, err := jwt.NewCodec(provider, jwt.Config{
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
		Now:      now,
	})
	if err != nil {
		return nil, err
	}

	hasher := b.hasher
	if hasher == nil {
		hasher, err = newHasher(cfg.Password)
		if err != nil {
			return nil, err
		}
	}
	dummyHash, err := hasher.Hash(dummyPassword)
	if err != nil {
		return nil, fmt.Errorf("password hasher: %w", err)
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &Engine{
		config:         cloneConfig(cfg),
		keys:           provider,
		codec:          codec,
		refreshStore:   store,
		userProvider:   b.userProvider,
		clientRegistry: b.clientRegistry,
		hasher:         hasher,
		dummyHash:      dummyHash,
		logger:         logger.Named("tokenauth"),
		now:            now,
	}

	if b.redis != nil && cfg.Security.MaxLoginAttempts > 0 {
		engine.rateLimiter = rate.New(b.redis, rate.Config{
			Prefix:                cfg.Security.ThrottleRedisPrefix,
			EnableIPThrottle:      cfg.Security.EnableIPThrottle,
			MaxLoginAttempts:      cfg.Security.MaxLoginAttempts,
			LoginCooldownDuration: cfg.Security.LoginCooldownDuration,
		})
	}
	engine.audit = newAuditDispatcher(cfg.Audit, b.auditSink)
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

// newHasher builds the configured primary hasher and keeps the other algorithm as a
// verify-only fallback so stored hashes of either kind keep working.
func newHasher(cfg PasswordConfig) (password.Hasher, error) {
	bc, err := password.NewBcrypt(cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	ag, agErr := password.NewArgon2(password.Config{
		Memory:      cfg.Memory,
		Time:        cfg.Time,
		Parallelism: cfg.Parallelism,
		SaltLength:  cfg.SaltLength,
		KeyLength:   cfg.KeyLength,
	})

	if cfg.Algorithm == "argon2id" {
		if agErr != nil {
			return nil, agErr
		}
		return password.NewChain(ag, bc)
	}
	if agErr != nil {
		// argon2 parameters left unset; bcrypt only.
		return password.NewChain(bc)
	}
	return password.NewChain(bc, ag)
}
