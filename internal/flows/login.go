package flows

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

// LoginInput is the flow-local login request.
type LoginInput struct {
	Email        string
	Password     string
	ClientID     string
	ClientSecret string
	Device       string
	IPAddress    string
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	Principal             PrincipalRecord
	ClientID              string
	AccessToken           string
	RefreshToken          string
	AccessTokenTTL        int64
	RefreshTokenTTL       int64
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess           int
	LoginFailure           int
	LoginRateLimited       int
	PersistenceUnavailable int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady         error
	InvalidRequest         error
	InvalidCredentials     error
	AccountInactive        error
	LoginRateLimited       error
	UserNotFound           error
	PersistenceUnavailable error
	Internal               error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientRequired bool
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	Now            func() time.Time

	ClientIPFromContext  func(context.Context) string
	UserAgentFromContext func(context.Context) string

	AuthenticateClient ClientAuthFunc

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	GetUserByEmail func(context.Context, string) (PrincipalRecord, error)
	VerifyPassword func(password, hash string) (bool, error)
	DummyVerify    func(password string)

	Mint      func(jwt.Claims, time.Duration) (string, time.Time, error)
	NewSecret func() (string, error)
	Store     refresh.Store

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// NormalizeEmail trims and lowercases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RunLogin authenticates the client and principal, then issues an access token and a
// persisted refresh token.
func RunLogin(ctx context.Context, in LoginInput, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopAudit
	}
	if deps.Warn == nil {
		deps.Warn = nopWarn
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.UserAgentFromContext == nil {
		deps.UserAgentFromContext = func(context.Context) string { return "" }
	}
	if deps.GetUserByEmail == nil ||
		deps.VerifyPassword == nil ||
		deps.Mint == nil ||
		deps.NewSecret == nil ||
		deps.Store == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		return nil, deps.Errors.InvalidRequest
	}

	clientID := ""
	if deps.ClientRequired || in.ClientID != "" || in.ClientSecret != "" {
		if deps.AuthenticateClient == nil {
			return nil, deps.Errors.EngineNotReady
		}
		id, err := deps.AuthenticateClient(ctx, in.ClientID, in.ClientSecret)
		if err != nil {
			deps.MetricInc(deps.Metrics.LoginFailure)
			return nil, err
		}
		clientID = id
	}

	email := NormalizeEmail(in.Email)
	ip := in.IPAddress
	if ip == "" {
		ip = deps.ClientIPFromContext(ctx)
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			if !errors.Is(err, deps.Errors.LoginRateLimited) {
				deps.MetricInc(deps.Metrics.PersistenceUnavailable)
				deps.Warn("login limiter unavailable", "error", err)
				return nil, deps.Errors.PersistenceUnavailable
			}
			deps.MetricInc(deps.Metrics.LoginRateLimited)
			deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, "", clientID, deps.Errors.LoginRateLimited, nil)
			return nil, deps.Errors.LoginRateLimited
		}
	}

	fail := func(principalID string, reason string, err error) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, principalID, clientID, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}
	countFailure := func() {
		if deps.IncrementLoginRate == nil {
			return
		}
		if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
			deps.Warn("login limiter increment failed", "error", err)
		}
	}

	user, err := deps.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, deps.Errors.UserNotFound) {
			deps.MetricInc(deps.Metrics.PersistenceUnavailable)
			deps.Warn("user lookup failed", "error", err)
			return nil, deps.Errors.PersistenceUnavailable
		}
		if deps.DummyVerify != nil {
			deps.DummyVerify(in.Password)
		}
		countFailure()
		return fail("", "unknown_user", deps.Errors.InvalidCredentials)
	}

	ok, err := deps.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		deps.Warn("stored password hash unusable", "principal_id", user.ID, "error", err)
	}
	if err != nil || !ok {
		countFailure()
		return fail(user.ID, "password_mismatch", deps.Errors.InvalidCredentials)
	}

	if !user.Active {
		return fail(user.ID, "account_inactive", deps.Errors.AccountInactive)
	}

	access, accessExp, err := deps.Mint(jwt.Claims{
		PrincipalID: user.ID,
		ClientID:    clientID,
		Email:       user.Email,
		IsActive:    user.Active,
	}, deps.AccessTTL)
	if err != nil {
		deps.Warn("access token mint failed", "error", err)
		return fail(user.ID, "mint_failed", deps.Errors.Internal)
	}

	secret, err := deps.NewSecret()
	if err != nil {
		deps.Warn("refresh secret generation failed", "error", err)
		return fail(user.ID, "secret_failed", deps.Errors.Internal)
	}

	device := in.Device
	if device == "" {
		device = deps.UserAgentFromContext(ctx)
	}
	if device == "" {
		device = "unknown"
	}

	refreshExp := deps.Now().Add(deps.RefreshTTL)
	err = deps.Store.Create(ctx, refresh.Record{
		TokenHash:   refresh.HashToken(secret),
		PrincipalID: user.ID,
		ClientID:    clientID,
		Device:      device,
		IPAddress:   ip,
		ExpiresAt:   refreshExp,
	})
	if err != nil {
		if errors.Is(err, refresh.ErrUnavailable) {
			deps.MetricInc(deps.Metrics.PersistenceUnavailable)
			deps.Warn("refresh record create failed", "error", err)
			return fail(user.ID, "store_unavailable", deps.Errors.PersistenceUnavailable)
		}
		deps.Warn("refresh record rejected", "error", err)
		return fail(user.ID, "store_rejected", deps.Errors.Internal)
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			deps.Warn("login limiter reset failed", "error", err)
		}
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, clientID, nil, func() map[string]string {
		return map[string]string{
			"device": device,
		}
	})

	return &LoginResult{
		Principal:             user,
		ClientID:              clientID,
		AccessToken:           access,
		RefreshToken:          secret,
		AccessTokenTTL:        secondsOf(deps.AccessTTL),
		RefreshTokenTTL:       secondsOf(deps.RefreshTTL),
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: refreshExp,
	}, nil
}
