package flows

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

// RefreshInput is the flow-local refresh request.
type RefreshInput struct {
	RefreshToken string
	ClientID     string
	Device       string
	IPAddress    string
}

// RefreshResult carries the issued pair and the binding it was issued for.
type RefreshResult struct {
	PrincipalID           string
	ClientID              string
	AccessToken           string
	RefreshToken          string
	AccessTokenTTL        int64
	RefreshTokenTTL       int64
	AccessTokenExpiresAt  time.Time
	RefreshTokenExpiresAt time.Time
}

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess         int
	RefreshFailure         int
	RefreshRaceLost        int
	PersistenceUnavailable int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshInvalid string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady         error
	InvalidOrExpiredToken  error
	AccountInactive        error
	UserNotFound           error
	PersistenceUnavailable error
	Internal               error
}

// RefreshDeps captures refresh flow dependencies.
type RefreshDeps struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Now        func() time.Time

	Store       refresh.Store
	GetUserByID func(context.Context, string) (PrincipalRecord, error)
	Mint        func(jwt.Claims, time.Duration) (string, time.Time, error)
	NewSecret   func() (string, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh exchanges a refresh token for a new pair. The presented token is revoked
// with a conditional update before the successor is created; a caller that loses that
// update gets InvalidOrExpiredToken and issues nothing.
func RunRefresh(ctx context.Context, in RefreshInput, deps RefreshDeps) (*RefreshResult, error) {
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
	if deps.Store == nil || deps.GetUserByID == nil || deps.Mint == nil || deps.NewSecret == nil {
		return nil, deps.Errors.EngineNotReady
	}

	fail := func(principalID, clientID, reason string, err error) (*RefreshResult, error) {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshInvalid, false, principalID, clientID, err, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return nil, err
	}
	unavailable := func(principalID, clientID, msg string, err error) (*RefreshResult, error) {
		deps.MetricInc(deps.Metrics.PersistenceUnavailable)
		deps.Warn(msg, "error", err)
		return fail(principalID, clientID, "store_unavailable", deps.Errors.PersistenceUnavailable)
	}

	if !refresh.WellFormed(in.RefreshToken) {
		return fail("", in.ClientID, "malformed", deps.Errors.InvalidOrExpiredToken)
	}
	hash := refresh.HashToken(in.RefreshToken)

	rec, err := deps.Store.FindValid(ctx, hash, refresh.Filter{ClientID: in.ClientID})
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return fail("", in.ClientID, "not_found", deps.Errors.InvalidOrExpiredToken)
		}
		return unavailable("", in.ClientID, "refresh lookup failed", err)
	}

	user, err := deps.GetUserByID(ctx, rec.PrincipalID)
	switch {
	case err != nil && !errors.Is(err, deps.Errors.UserNotFound):
		return unavailable(rec.PrincipalID, rec.ClientID, "refresh owner lookup failed", err)
	case err != nil || !user.Active:
		if _, revokeErr := deps.Store.Revoke(ctx, hash); revokeErr != nil {
			deps.Warn("revoke for inactive owner failed", "principal_id", rec.PrincipalID, "error", revokeErr)
		}
		return fail(rec.PrincipalID, rec.ClientID, "account_inactive", deps.Errors.AccountInactive)
	}

	won, err := deps.Store.Revoke(ctx, hash)
	if err != nil {
		return unavailable(rec.PrincipalID, rec.ClientID, "refresh revoke failed", err)
	}
	if !won {
		deps.MetricInc(deps.Metrics.RefreshRaceLost)
		return fail(rec.PrincipalID, rec.ClientID, "race_lost", deps.Errors.InvalidOrExpiredToken)
	}

	access, accessExp, err := deps.Mint(jwt.Claims{
		PrincipalID: rec.PrincipalID,
		ClientID:    rec.ClientID,
		Email:       user.Email,
		IsActive:    user.Active,
	}, deps.AccessTTL)
	if err != nil {
		deps.Warn("access token mint failed", "error", err)
		return fail(rec.PrincipalID, rec.ClientID, "mint_failed", deps.Errors.Internal)
	}

	secret, err := deps.NewSecret()
	if err != nil {
		deps.Warn("refresh secret generation failed", "error", err)
		return fail(rec.PrincipalID, rec.ClientID, "secret_failed", deps.Errors.Internal)
	}

	successor := refresh.Record{
		TokenHash:   refresh.HashToken(secret),
		PrincipalID: rec.PrincipalID,
		ClientID:    rec.ClientID,
		Device:      rec.Device,
		IPAddress:   rec.IPAddress,
		ExpiresAt:   deps.Now().Add(deps.RefreshTTL),
	}
	if in.Device != "" {
		successor.Device = in.Device
	}
	if in.IPAddress != "" {
		successor.IPAddress = in.IPAddress
	}

	if err := deps.Store.Create(ctx, successor); err != nil {
		if errors.Is(err, refresh.ErrUnavailable) {
			return unavailable(rec.PrincipalID, rec.ClientID, "refresh successor create failed", err)
		}
		deps.Warn("refresh successor rejected", "error", err)
		return fail(rec.PrincipalID, rec.ClientID, "store_rejected", deps.Errors.Internal)
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, rec.PrincipalID, rec.ClientID, nil, nil)

	return &RefreshResult{
		PrincipalID:           rec.PrincipalID,
		ClientID:              rec.ClientID,
		AccessToken:           access,
		RefreshToken:          secret,
		AccessTokenTTL:        secondsOf(deps.AccessTTL),
		RefreshTokenTTL:       secondsOf(deps.RefreshTTL),
		AccessTokenExpiresAt:  accessExp,
		RefreshTokenExpiresAt: successor.ExpiresAt,
	}, nil
}
