package flows

import (
	"context"
	"errors"
	"strings"
)

// RegisterInput is the flow-local registration request.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	ClientID     string
	ClientSecret string
}

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess        int
	RegisterDuplicate      int
	PersistenceUnavailable int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess   string
	RegisterFailure   string
	RegisterDuplicate string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady         error
	InvalidRequest         error
	EmailTaken             error
	UserNotFound           error
	DuplicateIdentifier    error
	PersistenceUnavailable error
	Internal               error
}

// RegisterDeps captures registration dependencies.
type RegisterDeps struct {
	ClientRequired bool

	AuthenticateClient ClientAuthFunc
	GetUserByEmail     func(context.Context, string) (PrincipalRecord, error)
	HashPassword       func(string) (string, error)
	CreateUser         func(ctx context.Context, name, email, passwordHash string) (PrincipalRecord, error)

	MetricInc func(int)
	EmitAudit AuditFunc
	Warn      func(string, ...any)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister creates a principal with a normalized email and a hashed password.
func RunRegister(ctx context.Context, in RegisterInput, deps RegisterDeps) (PrincipalRecord, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = nopMetric
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = nopAudit
	}
	if deps.Warn == nil {
		deps.Warn = nopWarn
	}
	if deps.GetUserByEmail == nil || deps.HashPassword == nil || deps.CreateUser == nil {
		return PrincipalRecord{}, deps.Errors.EngineNotReady
	}

	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return PrincipalRecord{}, deps.Errors.InvalidRequest
	}

	clientID := ""
	if deps.ClientRequired || in.ClientID != "" || in.ClientSecret != "" {
		if deps.AuthenticateClient == nil {
			return PrincipalRecord{}, deps.Errors.EngineNotReady
		}
		id, err := deps.AuthenticateClient(ctx, in.ClientID, in.ClientSecret)
		if err != nil {
			return PrincipalRecord{}, err
		}
		clientID = id
	}

	email := NormalizeEmail(in.Email)

	duplicate := func() (PrincipalRecord, error) {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", clientID, deps.Errors.EmailTaken, nil)
		return PrincipalRecord{}, deps.Errors.EmailTaken
	}
	unavailable := func(msg string, err error) (PrincipalRecord, error) {
		deps.MetricInc(deps.Metrics.PersistenceUnavailable)
		deps.Warn(msg, "error", err)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", clientID, deps.Errors.PersistenceUnavailable, nil)
		return PrincipalRecord{}, deps.Errors.PersistenceUnavailable
	}

	_, err := deps.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return duplicate()
	case !errors.Is(err, deps.Errors.UserNotFound):
		return unavailable("register lookup failed", err)
	}

	hash, err := deps.HashPassword(in.Password)
	if err != nil {
		deps.Warn("password hash failed", "error", err)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", clientID, deps.Errors.InvalidRequest, func() map[string]string {
			return map[string]string{
				"reason": "hash_failed",
			}
		})
		return PrincipalRecord{}, deps.Errors.InvalidRequest
	}

	user, err := deps.CreateUser(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, deps.Errors.DuplicateIdentifier) {
			return duplicate()
		}
		return unavailable("create user failed", err)
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, user.ID, clientID, nil, nil)
	return user, nil
}
