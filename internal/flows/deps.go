package flows

import (
	"context"
	"time"
)

// Deps groups flow dependency sets. Root engine builds this once and delegates
// request methods to the matching flow implementation.
type Deps struct {
	Client   ClientDeps
	Login    LoginDeps
	Refresh  RefreshDeps
	Logout   LogoutDeps
	Verify   VerifyDeps
	Register RegisterDeps
}

// PrincipalRecord is the flow-local view of a principal.
type PrincipalRecord struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
}

// ClientRecord is the flow-local view of a registered client.
type ClientRecord struct {
	ClientID   string
	Name       string
	SecretHash string
	CreatedAt  time.Time
}

// AuditFunc emits one audit event. principalID and clientID may be empty.
type AuditFunc func(ctx context.Context, eventType string, success bool, principalID, clientID string, err error, metadata func() map[string]string)

// ClientAuthFunc authenticates a client and returns its id. It returns host sentinels.
type ClientAuthFunc func(ctx context.Context, clientID, clientSecret string) (string, error)

func nopMetric(int) {}

func nopAudit(context.Context, string, bool, string, string, error, func() map[string]string) {}

func nopWarn(string, ...any) {}

// secondsOf rounds ttl down to whole seconds.
func secondsOf(ttl time.Duration) int64 {
	return int64(ttl / time.Second)
}
