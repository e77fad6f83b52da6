package flows

import (
	"errors"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
)

// VerifyMetrics carries metric IDs needed by the verify flow.
type VerifyMetrics struct {
	VerifySuccess int
	VerifyFailure int
	VerifyLatency int
}

// VerifyErrors carries host-level sentinel errors used by the verify flow.
type VerifyErrors struct {
	EngineNotReady      error
	ExpiredCredential   error
	InvalidSignature    error
	MalformedCredential error
	AccountInactive     error
}

// VerifyDeps captures access token verification dependencies. Verification never
// touches a store.
type VerifyDeps struct {
	Introspect func(string) (*jwt.Claims, error)
	Now        func() time.Time

	MetricInc func(int)
	Observe   func(int, time.Duration)

	Metrics VerifyMetrics
	Errors  VerifyErrors
}

// RunVerify decodes accessToken and rejects tokens whose principal was inactive at issue.
func RunVerify(accessToken string, deps VerifyDeps) (*jwt.Claims, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.Introspect == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if deps.Observe != nil {
		if deps.Now == nil {
			deps.Now = time.Now
		}
		start := deps.Now()
		defer func() {
			deps.Observe(deps.Metrics.VerifyLatency, deps.Now().Sub(start))
		}()
	}

	claims, err := deps.Introspect(accessToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		switch {
		case errors.Is(err, jwt.ErrExpired):
			return nil, deps.Errors.ExpiredCredential
		case errors.Is(err, jwt.ErrInvalidSignature):
			return nil, deps.Errors.InvalidSignature
		default:
			return nil, deps.Errors.MalformedCredential
		}
	}
	if !claims.IsActive {
		deps.MetricInc(deps.Metrics.VerifyFailure)
		return nil, deps.Errors.AccountInactive
	}

	deps.MetricInc(deps.Metrics.VerifySuccess)
	return claims, nil
}
