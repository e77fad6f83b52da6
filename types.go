package tokenauth

import (
	"context"
	"time"
)

// Principal is an authenticated subject as returned by a [UserProvider]. Email is
// stored lowercased and trimmed.
type Principal struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsActive     bool
	IsDeleted    bool
	CreatedAt    time.Time
}

// usable reports whether p may hold sessions.
func (p Principal) usable() bool {
	return p.IsActive && !p.IsDeleted
}

// View strips the credential fields from p.
func (p Principal) View() PrincipalView {
	return PrincipalView{
		ID:        p.ID,
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt,
	}
}

// PrincipalView is the public projection of a [Principal].
type PrincipalView struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// Client is a registered application. SecretHash is a password hash and is never
// compared in plaintext.
type Client struct {
	ClientID   string
	Name       string
	SecretHash string
	IsActive   bool
	CreatedAt  time.Time
}

// CreateUserInput is passed to [UserProvider.CreateUser]. Email is already
// normalized and PasswordHash already computed.
type CreateUserInput struct {
	Name         string
	Email        string
	PasswordHash string
}

// UserProvider is the principal lookup contract consumed by the Engine.
//
// Lookups return [ErrUserNotFound] for unknown principals. CreateUser returns
// [ErrProviderDuplicateIdentifier] when the email is already registered. Any other
// error is treated as an infrastructure failure.
type UserProvider interface {
	GetUserByEmail(ctx context.Context, email string) (Principal, error)
	GetUserByID(ctx context.Context, id string) (Principal, error)
	CreateUser(ctx context.Context, in CreateUserInput) (Principal, error)
}

// ClientRegistry resolves active clients. FindActiveClient returns
// [ErrClientNotFound] for unknown or inactive clients.
type ClientRegistry interface {
	FindActiveClient(ctx context.Context, clientID string) (Client, error)
}

// LoginRequest carries login credentials. ClientID and ClientSecret may be empty when
// client authentication is not required.
type LoginRequest struct {
	Email        string
	Password     string
	ClientID     string
	ClientSecret string
	Device       string
	IPAddress    string
}

// LoginResult is returned by [Engine.Login]. TTL fields are in seconds.
type LoginResult struct {
	AccessToken           string        `json:"accessToken"`
	RefreshToken          string        `json:"refreshToken"`
	AccessTokenTTL        int64         `json:"accessTokenTTL"`
	RefreshTokenTTL       int64         `json:"refreshTokenTTL"`
	AccessTokenExpiresAt  time.Time     `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time     `json:"refreshTokenExpiresAt"`
	Principal             PrincipalView `json:"user"`
}

// RefreshRequest carries a refresh token. ClientID only narrows the lookup; Device and
// IPAddress replace the values recorded on the predecessor when set.
type RefreshRequest struct {
	RefreshToken string
	ClientID     string
	Device       string
	IPAddress    string
}

// RefreshResult is returned by [Engine.Refresh].
type RefreshResult struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenTTL        int64     `json:"accessTokenTTL"`
	RefreshTokenTTL       int64     `json:"refreshTokenTTL"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpiresAt"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpiresAt"`
}

// VerifyResult is the decoded claim set of a valid access token.
type VerifyResult struct {
	PrincipalID string    `json:"id"`
	ClientID    string    `json:"clientId,omitempty"`
	Email       string    `json:"email"`
	IsActive    bool      `json:"isActive"`
	IssuedAt    time.Time `json:"iat"`
	ExpiresAt   time.Time `json:"exp"`
}

// RegisterRequest carries a new principal's details.
type RegisterRequest struct {
	Name         string
	Email        string
	Password     string
	ClientID     string
	ClientSecret string
}
