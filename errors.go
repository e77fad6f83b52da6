package tokenauth

import (
	"errors"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/refresh"
)

var (
	// ErrUnauthorizedClient is returned when client credentials are missing, unknown,
	// inactive, or do not match.
	ErrUnauthorizedClient = errors.New("unauthorized client")
	// ErrInvalidCredentials is returned for an unknown email or a wrong password. Both
	// cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive is returned when the principal is inactive or soft-deleted.
	ErrAccountInactive = errors.New("account inactive")
	// ErrInvalidOrExpiredToken is returned when a refresh token is absent, expired, or
	// already revoked.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired refresh token")
	// ErrExpiredCredential is returned by Verify for an expired access token.
	ErrExpiredCredential = errors.New("access token expired")
	// ErrInvalidSignature is returned by Verify when decryption or signature checks fail.
	ErrInvalidSignature = errors.New("access token signature invalid")
	// ErrMalformedCredential is returned by Verify when the access token cannot be decoded.
	ErrMalformedCredential = errors.New("access token malformed")
	// ErrPersistenceUnavailable is returned when a store or provider cannot be reached.
	// It is the only retryable error.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	// ErrInvalidRequest is returned when required request fields are missing.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmailTaken is returned by Register when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrLoginRateLimited is returned when login throttling rejects the attempt.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrInternal is returned for failures that are neither caller nor infrastructure
	// errors, such as a signing failure.
	ErrInternal = errors.New("internal error")
	// ErrEngineNotReady is returned when a method is called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Errors returned by UserProvider and ClientRegistry implementations.
var (
	ErrUserNotFound                = errors.New("user not found")
	ErrClientNotFound              = errors.New("client not found")
	ErrProviderDuplicateIdentifier = errors.New("provider duplicate identifier")
)

// Kind classifies every error returned by the Engine. Transport layers map kinds to
// status codes.
type Kind uint8

const (
	KindNone Kind = iota
	KindUnauthorizedClient
	KindInvalidCredentials
	KindAccountInactive
	KindInvalidOrExpiredToken
	KindExpiredCredential
	KindInvalidSignature
	KindMalformedCredential
	KindPersistenceUnavailable
	KindInvalidRequest
	KindEmailTaken
	KindRateLimited
	KindInternal
)

var kindNames = [...]string{
	KindNone:                   "none",
	KindUnauthorizedClient:     "unauthorized_client",
	KindInvalidCredentials:     "invalid_credentials",
	KindAccountInactive:        "account_inactive",
	KindInvalidOrExpiredToken:  "invalid_or_expired_token",
	KindExpiredCredential:      "expired_credential",
	KindInvalidSignature:       "invalid_signature",
	KindMalformedCredential:    "malformed_credential",
	KindPersistenceUnavailable: "persistence_unavailable",
	KindInvalidRequest:         "invalid_request",
	KindEmailTaken:             "email_taken",
	KindRateLimited:            "rate_limited",
	KindInternal:               "internal_error",
}

// String returns a stable snake_case code.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return kindNames[KindInternal]
}

// Retryable reports whether the caller may retry the same operation unchanged.
func (k Kind) Retryable() bool {
	return k == KindPersistenceUnavailable
}

// KindOf maps err to its [Kind]. nil maps to KindNone; unrecognized errors map to
// KindInternal.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUnauthorizedClient):
		return KindUnauthorizedClient
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrAccountInactive):
		return KindAccountInactive
	case errors.Is(err, ErrInvalidOrExpiredToken):
		return KindInvalidOrExpiredToken
	case errors.Is(err, ErrExpiredCredential), errors.Is(err, jwt.ErrExpired):
		return KindExpiredCredential
	case errors.Is(err, ErrInvalidSignature), errors.Is(err, jwt.ErrInvalidSignature):
		return KindInvalidSignature
	case errors.Is(err, ErrMalformedCredential), errors.Is(err, jwt.ErrMalformed):
		return KindMalformedCredential
	case errors.Is(err, ErrPersistenceUnavailable), errors.Is(err, refresh.ErrUnavailable):
		return KindPersistenceUnavailable
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrEmailTaken):
		return KindEmailTaken
	case errors.Is(err, ErrLoginRateLimited):
		return KindRateLimited
	default:
		return KindInternal
	}
}
