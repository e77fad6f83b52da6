package tokenauth

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/internal/flows"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/keys"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/refresh"
	"go.uber.org/zap"
)

// Engine issues, rotates, revokes, and verifies credentials.
//
// An Engine is immutable after [Builder.Build] and safe for concurrent use. The only
// serialization point between concurrent calls is the refresh store's conditional
// revoke.
type Engine struct {
	config         Config
	keys           *keys.Provider
	codec          *jwt.Codec
	refreshStore   refresh.Store
	userProvider   UserProvider
	clientRegistry ClientRegistry
	hasher         password.Hasher
	dummyHash      string
	rateLimiter    *rate.Limiter
	audit          *auditDispatcher
	metrics        *Metrics
	logger         *zap.Logger
	now            func() time.Time
	flows          flows.Deps
}

// Close drains the audit queue. The Engine must not be used afterwards.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	_ = e.logger.Sync()
}

// AuditDropped returns the number of audit events dropped because the buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of all counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live metrics for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// KeyProvider returns the key material the Engine signs and encrypts with.
func (e *Engine) KeyProvider() *keys.Provider {
	if e == nil {
		return nil
	}
	return e.keys
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// AuthenticateClient resolves an active client and checks its secret. Every rejection
// returns [ErrUnauthorizedClient]; registry failures return [ErrPersistenceUnavailable].
func (e *Engine) AuthenticateClient(ctx context.Context, clientID, clientSecret string) (Client, error) {
	if e == nil || e.codec == nil {
		return Client{}, ErrEngineNotReady
	}
	if e.clientRegistry == nil {
		return Client{}, ErrUnauthorizedClient
	}

	rec, err := flows.RunAuthenticateClient(ctx, clientID, clientSecret, e.flows.Client)
	if err != nil {
		return Client{}, err
	}
	return Client{
		ClientID:   rec.ClientID,
		Name:       rec.Name,
		SecretHash: rec.SecretHash,
		IsActive:   true,
		CreatedAt:  rec.CreatedAt,
	}, nil
}

// Login authenticates the client (when required or supplied) and the principal, then
// issues an access token and a refresh token.
//
// Unknown emails and wrong passwords both return [ErrInvalidCredentials]. Account
// state is checked only after the password matches, so [ErrAccountInactive] is never
// returned to a caller without the password.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	out, err := flows.RunLogin(ctx, flows.LoginInput{
		Email:        req.Email,
		Password:     req.Password,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
		Device:       req.Device,
		IPAddress:    req.IPAddress,
	}, e.flows.Login)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken:           out.AccessToken,
		RefreshToken:          out.RefreshToken,
		AccessTokenTTL:        out.AccessTokenTTL,
		RefreshTokenTTL:       out.RefreshTokenTTL,
		AccessTokenExpiresAt:  out.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: out.RefreshTokenExpiresAt,
		Principal: PrincipalView{
			ID:        out.Principal.ID,
			Name:      out.Principal.Name,
			Email:     out.Principal.Email,
			CreatedAt: out.Principal.CreatedAt,
		},
	}, nil
}

// Refresh rotates a refresh token. The presented token is revoked before the successor
// exists; among concurrent callers presenting the same token exactly one succeeds and
// the rest get [ErrInvalidOrExpiredToken].
//
// The principal and client binding always come from the stored record.
func (e *Engine) Refresh(ctx context.Context, req RefreshRequest) (*RefreshResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}

	out, err := flows.RunRefresh(ctx, flows.RefreshInput{
		RefreshToken: req.RefreshToken,
		ClientID:     req.ClientID,
		Device:       req.Device,
		IPAddress:    req.IPAddress,
	}, e.flows.Refresh)
	if err != nil {
		return nil, err
	}

	return &RefreshResult{
		AccessToken:           out.AccessToken,
		RefreshToken:          out.RefreshToken,
		AccessTokenTTL:        out.AccessTokenTTL,
		RefreshTokenTTL:       out.RefreshTokenTTL,
		AccessTokenExpiresAt:  out.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: out.RefreshTokenExpiresAt,
	}, nil
}

// Logout revokes refreshToken. Access tokens already issued stay valid until they
// expire.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if e == nil || e.codec == nil {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, refreshToken, e.flows.Logout)
}

// RevokeAllForPrincipal revokes every refresh token of principalID and returns the
// number revoked.
func (e *Engine) RevokeAllForPrincipal(ctx context.Context, principalID string) (int64, error) {
	if e == nil || e.codec == nil {
		return 0, ErrEngineNotReady
	}
	return flows.RunLogoutAll(ctx, principalID, e.flows.Logout)
}

// Verify decrypts and checks an access token. It performs no store access, so a token
// stays valid until exp even after logout.
func (e *Engine) Verify(ctx context.Context, accessToken string) (*VerifyResult, error) {
	if e == nil || e.codec == nil {
		return nil, ErrEngineNotReady
	}
	claims, err := flows.RunVerify(accessToken, e.flows.Verify)
	if err != nil {
		return nil, err
	}

	return &VerifyResult{
		PrincipalID: claims.PrincipalID,
		ClientID:    claims.ClientID,
		Email:       claims.Email,
		IsActive:    claims.IsActive,
		IssuedAt:    claims.IssuedAt,
		ExpiresAt:   claims.ExpiresAt,
	}, nil
}

func (e *Engine) buildFlowDeps() flows.Deps {
	metricInc := func(id int) { e.metricInc(MetricID(id)) }
	warn := e.logger.Sugar().Warnw
	emitAudit := flows.AuditFunc(e.emitAudit)
	mint := e.codec.Mint
	newSecret := func() (string, error) {
		return jwt.GenerateOpaqueSecret(e.config.Refresh.SecretBytes)
	}
	dummyVerify := func(secret string) {
		_, _ = e.hasher.Verify(secret, e.dummyHash)
	}

	clientDeps := flows.ClientDeps{
		VerifySecret: e.hasher.Verify,
		DummyVerify:  dummyVerify,
		MetricInc:    metricInc,
		EmitAudit:    emitAudit,
		Warn:         warn,
		Metrics: flows.ClientMetrics{
			ClientRejected:         int(MetricClientRejected),
			PersistenceUnavailable: int(MetricPersistenceUnavailable),
		},
		Events: flows.ClientEvents{
			ClientRejected: auditEventClientRejected,
		},
		Errors: flows.ClientErrors{
			EngineNotReady:         ErrEngineNotReady,
			UnauthorizedClient:     ErrUnauthorizedClient,
			ClientNotFound:         ErrClientNotFound,
			PersistenceUnavailable: ErrPersistenceUnavailable,
		},
	}
	if e.clientRegistry != nil {
		clientDeps.FindActiveClient = e.findActiveClient
	}
	authenticateClient := func(ctx context.Context, clientID, clientSecret string) (string, error) {
		rec, err := flows.RunAuthenticateClient(ctx, clientID, clientSecret, clientDeps)
		if err != nil {
			return "", err
		}
		return rec.ClientID, nil
	}

	deps := flows.Deps{
		Client: clientDeps,
		Login: flows.LoginDeps{
			ClientRequired:       e.config.Client.Required,
			AccessTTL:            e.config.JWT.AccessTTL,
			RefreshTTL:           e.config.JWT.RefreshTTL,
			Now:                  e.now,
			ClientIPFromContext:  clientIPFromContext,
			UserAgentFromContext: userAgentFromContext,
			AuthenticateClient:   authenticateClient,
			GetUserByEmail:       e.getUserByEmail,
			VerifyPassword:       e.hasher.Verify,
			DummyVerify:          dummyVerify,
			Mint:                 mint,
			NewSecret:            newSecret,
			Store:                e.refreshStore,
			MetricInc:            metricInc,
			EmitAudit:            emitAudit,
			Warn:                 warn,
			Metrics: flows.LoginMetrics{
				LoginSuccess:           int(MetricLoginSuccess),
				LoginFailure:           int(MetricLoginFailure),
				LoginRateLimited:       int(MetricLoginRateLimited),
				PersistenceUnavailable: int(MetricPersistenceUnavailable),
			},
			Events: flows.LoginEvents{
				LoginSuccess:     auditEventLoginSuccess,
				LoginFailure:     auditEventLoginFailure,
				LoginRateLimited: auditEventLoginRateLimited,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:         ErrEngineNotReady,
				InvalidRequest:         ErrInvalidRequest,
				InvalidCredentials:     ErrInvalidCredentials,
				AccountInactive:        ErrAccountInactive,
				LoginRateLimited:       ErrLoginRateLimited,
				UserNotFound:           ErrUserNotFound,
				PersistenceUnavailable: ErrPersistenceUnavailable,
				Internal:               ErrInternal,
			},
		},
		Refresh: flows.RefreshDeps{
			AccessTTL:   e.config.JWT.AccessTTL,
			RefreshTTL:  e.config.JWT.RefreshTTL,
			Now:         e.now,
			Store:       e.refreshStore,
			GetUserByID: e.getUserByID,
			Mint:        mint,
			NewSecret:   newSecret,
			MetricInc:   metricInc,
			EmitAudit:   emitAudit,
			Warn:        warn,
			Metrics: flows.RefreshMetrics{
				RefreshSuccess:         int(MetricRefreshSuccess),
				RefreshFailure:         int(MetricRefreshFailure),
				RefreshRaceLost:        int(MetricRefreshRaceLost),
				PersistenceUnavailable: int(MetricPersistenceUnavailable),
			},
			Events: flows.RefreshEvents{
				RefreshSuccess: auditEventRefreshSuccess,
				RefreshInvalid: auditEventRefreshInvalid,
			},
			Errors: flows.RefreshErrors{
				EngineNotReady:         ErrEngineNotReady,
				InvalidOrExpiredToken:  ErrInvalidOrExpiredToken,
				AccountInactive:        ErrAccountInactive,
				UserNotFound:           ErrUserNotFound,
				PersistenceUnavailable: ErrPersistenceUnavailable,
				Internal:               ErrInternal,
			},
		},
		Logout: flows.LogoutDeps{
			Store:     e.refreshStore,
			MetricInc: metricInc,
			EmitAudit: emitAudit,
			Warn:      warn,
			Metrics: flows.LogoutMetrics{
				Logout:                 int(MetricLogout),
				LogoutAll:              int(MetricLogoutAll),
				PersistenceUnavailable: int(MetricPersistenceUnavailable),
			},
			Events: flows.LogoutEvents{
				Logout:    auditEventLogout,
				LogoutAll: auditEventLogoutAll,
			},
			Errors: flows.LogoutErrors{
				EngineNotReady:         ErrEngineNotReady,
				InvalidRequest:         ErrInvalidRequest,
				InvalidOrExpiredToken:  ErrInvalidOrExpiredToken,
				PersistenceUnavailable: ErrPersistenceUnavailable,
			},
		},
		Verify: flows.VerifyDeps{
			Introspect: e.codec.Introspect,
			Now:        time.Now,
			MetricInc:  metricInc,
			Metrics: flows.VerifyMetrics{
				VerifySuccess: int(MetricVerifySuccess),
				VerifyFailure: int(MetricVerifyFailure),
				VerifyLatency: int(MetricVerifyLatency),
			},
			Errors: flows.VerifyErrors{
				EngineNotReady:      ErrEngineNotReady,
				ExpiredCredential:   ErrExpiredCredential,
				InvalidSignature:    ErrInvalidSignature,
				MalformedCredential: ErrMalformedCredential,
				AccountInactive:     ErrAccountInactive,
			},
		},
		Register: flows.RegisterDeps{
			ClientRequired:     e.config.Client.Required,
			AuthenticateClient: authenticateClient,
			GetUserByEmail:     e.getUserByEmail,
			HashPassword:       e.hasher.Hash,
			CreateUser:         e.createUser,
			MetricInc:          metricInc,
			EmitAudit:          emitAudit,
			Warn:               warn,
			Metrics: flows.RegisterMetrics{
				RegisterSuccess:        int(MetricRegisterSuccess),
				RegisterDuplicate:      int(MetricRegisterDuplicate),
				PersistenceUnavailable: int(MetricPersistenceUnavailable),
			},
			Events: flows.RegisterEvents{
				RegisterSuccess:   auditEventRegisterSuccess,
				RegisterFailure:   auditEventRegisterFailure,
				RegisterDuplicate: auditEventRegisterDuplicate,
			},
			Errors: flows.RegisterErrors{
				EngineNotReady:         ErrEngineNotReady,
				InvalidRequest:         ErrInvalidRequest,
				EmailTaken:             ErrEmailTaken,
				UserNotFound:           ErrUserNotFound,
				DuplicateIdentifier:    ErrProviderDuplicateIdentifier,
				PersistenceUnavailable: ErrPersistenceUnavailable,
				Internal:               ErrInternal,
			},
		},
	}

	if e.metrics.LatencyEnabled() {
		deps.Verify.Observe = func(id int, d time.Duration) {
			e.metrics.Observe(MetricID(id), d)
		}
	}

	if e.rateLimiter != nil {
		deps.Login.CheckLoginRate = func(ctx context.Context, email, ip string) error {
			err := e.rateLimiter.CheckLogin(ctx, email, ip)
			if errors.Is(err, rate.ErrRateLimited) {
				return ErrLoginRateLimited
			}
			return err
		}
		deps.Login.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.Login.ResetLoginRate = e.rateLimiter.ResetLogin
	}

	return deps
}

func (e *Engine) getUserByEmail(ctx context.Context, email string) (flows.PrincipalRecord, error) {
	p, err := e.userProvider.GetUserByEmail(ctx, email)
	if err != nil {
		return flows.PrincipalRecord{}, err
	}
	return principalRecord(p), nil
}

func (e *Engine) getUserByID(ctx context.Context, id string) (flows.PrincipalRecord, error) {
	p, err := e.userProvider.GetUserByID(ctx, id)
	if err != nil {
		return flows.PrincipalRecord{}, err
	}
	return principalRecord(p), nil
}

func (e *Engine) createUser(ctx context.Context, name, email, passwordHash string) (flows.PrincipalRecord, error) {
	p, err := e.userProvider.CreateUser(ctx, CreateUserInput{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
	})
	if err != nil {
		return flows.PrincipalRecord{}, err
	}
	return principalRecord(p), nil
}

func (e *Engine) findActiveClient(ctx context.Context, clientID string) (flows.ClientRecord, error) {
	c, err := e.clientRegistry.FindActiveClient(ctx, clientID)
	if err != nil {
		return flows.ClientRecord{}, err
	}
	if !c.IsActive {
		return flows.ClientRecord{}, ErrClientNotFound
	}
	return flows.ClientRecord{
		ClientID:   c.ClientID,
		Name:       c.Name,
		SecretHash: c.SecretHash,
		CreatedAt:  c.CreatedAt,
	}, nil
}

func principalRecord(p Principal) flows.PrincipalRecord {
	return flows.PrincipalRecord{
		ID:           p.ID,
		Name:         p.Name,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Active:       p.usable(),
		CreatedAt:    p.CreatedAt,
	}
}
