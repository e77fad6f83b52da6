package flows

import (
	"context"
	"errors"
)

// ClientMetrics carries metric IDs used by client authentication.
type ClientMetrics struct {
	ClientRejected         int
	PersistenceUnavailable int
}

// ClientEvents carries audit event names used by client authentication.
type ClientEvents struct {
	ClientRejected string
}

// ClientErrors carries host-level sentinel errors used by client authentication.
type ClientErrors struct {
	EngineNotReady         error
	UnauthorizedClient     error
	ClientNotFound         error
	PersistenceUnavailable error
}

// ClientDeps captures client authentication dependencies.
type ClientDeps struct {
	FindActiveClient func(context.Context, string) (ClientRecord, error)
	VerifySecret     func(secret, hash string) (bool, error)
	DummyVerify      func(secret string)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics ClientMetrics
	Events  ClientEvents
	Errors  ClientErrors
}

// RunAuthenticateClient checks clientID and clientSecret against the registry. Every
// rejection returns the same UnauthorizedClient error.
func RunAuthenticateClient(ctx context.Context, clientID, clientSecret string, deps ClientDeps) (ClientRecord, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopAudit
	}
	if deps.Warn == nil {
		deps.Warn = nopWarn
	}
	if deps.FindActiveClient == nil || deps.VerifySecret == nil {
		return ClientRecord{}, deps.Errors.EngineNotReady
	}

	reject := func(reason string) (ClientRecord, error) {
		deps.MetricInc(deps.Metrics.ClientRejected)
		deps.EmitAudit(ctx, deps.Events.ClientRejected, false, "", clientID, deps.Errors.UnauthorizedClient, func() map[string]string {
			return map[string]string{
				"reason": reason,
			}
		})
		return ClientRecord{}, deps.Errors.UnauthorizedClient
	}

	if clientID == "" || clientSecret == "" {
		return reject("missing_credentials")
	}

	client, err := deps.FindActiveClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, deps.Errors.ClientNotFound) {
			if deps.DummyVerify != nil {
				deps.DummyVerify(clientSecret)
			}
			return reject("unknown_client")
		}
		deps.MetricInc(deps.Metrics.PersistenceUnavailable)
		deps.Warn("client lookup failed", "error", err)
		return ClientRecord{}, deps.Errors.PersistenceUnavailable
	}

	ok, err := deps.VerifySecret(clientSecret, client.SecretHash)
	if err != nil {
		deps.Warn("client secret hash unusable", "client_id", clientID, "error", err)
		return reject("secret_hash_unusable")
	}
	if !ok {
		return reject("secret_mismatch")
	}

	return client, nil
}
