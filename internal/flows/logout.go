package flows

import (
	"context"
	"errors"
	"strconv"

	"github.com/MrEthical07/tokenauth/refresh"
)

// LogoutMetrics carries metric IDs needed by logout flows.
type LogoutMetrics struct {
	Logout                 int
	LogoutAll              int
	PersistenceUnavailable int
}

// LogoutEvents carries audit event names used by logout flows.
type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

// LogoutErrors carries host-level sentinel errors used by logout flows.
type LogoutErrors struct {
	EngineNotReady         error
	InvalidRequest         error
	InvalidOrExpiredToken  error
	PersistenceUnavailable error
}

// LogoutDeps captures logout flow dependencies.
type LogoutDeps struct {
	Store refresh.Store

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics LogoutMetrics
	Events  LogoutEvents
	Errors  LogoutErrors
}

func (deps *LogoutDeps) defaults() {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopAudit
	}
	if deps.Warn == nil {
		deps.Warn = nopWarn
	}
}

// RunLogout revokes one refresh token. A token that is unknown, expired, or already
// revoked yields InvalidOrExpiredToken, so a second logout of the same token fails.
func RunLogout(ctx context.Context, refreshToken string, deps LogoutDeps) error {
	deps.defaults()
	if deps.Store == nil {
		return deps.Errors.EngineNotReady
	}

	if !refresh.WellFormed(refreshToken) {
		return deps.Errors.InvalidOrExpiredToken
	}
	hash := refresh.HashToken(refreshToken)

	rec, err := deps.Store.FindValid(ctx, hash, refresh.Filter{})
	if err != nil {
		if errors.Is(err, refresh.ErrNotFound) {
			return deps.Errors.InvalidOrExpiredToken
		}
		deps.MetricInc(deps.Metrics.PersistenceUnavailable)
		deps.Warn("logout lookup failed", "error", err)
		return deps.Errors.PersistenceUnavailable
	}

	revoked, err := deps.Store.Revoke(ctx, hash)
	if err != nil {
		deps.MetricInc(deps.Metrics.PersistenceUnavailable)
		deps.Warn("logout revoke failed", "error", err)
		return deps.Errors.PersistenceUnavailable
	}
	if !revoked {
		return deps.Errors.InvalidOrExpiredToken
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, rec.PrincipalID, rec.ClientID, nil, nil)
	return nil
}

// RunLogoutAll revokes every refresh token of principalID and returns how many changed.
func RunLogoutAll(ctx context.Context, principalID string, deps LogoutDeps) (int64, error) {
	deps.defaults()
	if deps.Store == nil {
		return 0, deps.Errors.EngineNotReady
	}
	if principalID == "" {
		return 0, deps.Errors.InvalidRequest
	}

	n, err := deps.Store.RevokeAllForPrincipal(ctx, principalID)
	if err != nil {
		deps.MetricInc(deps.Metrics.PersistenceUnavailable)
		deps.Warn("revoke all failed", "principal_id", principalID, "error", err)
		return 0, deps.Errors.PersistenceUnavailable
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, principalID, "", nil, func() map[string]string {
		return map[string]string{
			"revoked": strconv.FormatInt(n, 10),
		}
	})
	return n, nil
}
