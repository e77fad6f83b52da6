package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/tokenauth/keys"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// TokenTypeAccess is the value of the "type" claim on every access token.
const TokenTypeAccess = "access"

var (
	// ErrExpired is returned by [Codec.Introspect] when now >= exp.
	ErrExpired = errors.New("access token expired")
	// ErrInvalidSignature is returned by [Codec.Introspect] when decryption or the
	// signature check fails.
	ErrInvalidSignature = errors.New("access token signature invalid")
	// ErrMalformed is returned by [Codec.Introspect] when the token cannot be decoded or
	// its claims are incomplete.
	ErrMalformed = errors.New("access token malformed")
)

// Config tunes claim validation. Now defaults to time.Now.
type Config struct {
	Issuer   string
	Audience string
	Leeway   time.Duration
	Now      func() time.Time
}

// Claims is the claim set carried by an access token. ClientID is empty for tokens that
// are not bound to a client; it is encoded as JSON null.
type Claims struct {
	PrincipalID string
	ClientID    string
	Email       string
	IsActive    bool
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// AccessClaims is the wire form of [Claims] inside the signed token.
type AccessClaims struct {
	ID       string  `json:"id"`
	ClientID *string `json:"clientId"`
	Email    string  `json:"email"`
	IsActive bool    `json:"isActive"`
	Type     string  `json:"type"`
	gjwt.RegisteredClaims
}

// Codec turns claim sets into encrypted, signed access tokens and back.
//
// Codec is immutable and performs no I/O.
type Codec struct {
	keys   *keys.Provider
	config Config
}

// NewCodec binds a codec to a loaded key provider.
func NewCodec(provider *keys.Provider, cfg Config) (*Codec, error) {
	if provider == nil {
		return nil, errors.New("key provider required")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.Issuer = strings.TrimSpace(cfg.Issuer)
	cfg.Audience = strings.TrimSpace(cfg.Audience)

	return &Codec{keys: provider, config: cfg}, nil
}

// Mint signs claims with iat=now and exp=now+ttl, then encrypts the signed token.
// IssuedAt and ExpiresAt on the input are ignored. The returned time is the exp claim.
func (c *Codec) Mint(claims Claims, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		return "", time.Time{}, errors.New("invalid TTL configuration")
	}
	if claims.PrincipalID == "" {
		return "", time.Time{}, errors.New("principal id required")
	}

	now := c.config.Now().Truncate(time.Second)
	exp := now.Add(ttl)

	wire := AccessClaims{
		ID:       claims.PrincipalID,
		Email:    claims.Email,
		IsActive: claims.IsActive,
		Type:     TokenTypeAccess,
		RegisteredClaims: gjwt.RegisteredClaims{
			IssuedAt:  gjwt.NewNumericDate(now),
			ExpiresAt: gjwt.NewNumericDate(exp),
			Issuer:    c.config.Issuer,
		},
	}
	if claims.ClientID != "" {
		clientID := claims.ClientID
		wire.ClientID = &clientID
	}
	if c.config.Audience != "" {
		wire.Audience = gjwt.ClaimStrings{c.config.Audience}
	}

	signed, err := c.keys.Sign(wire)
	if err != nil {
		return "", time.Time{}, err
	}
	token, err := c.keys.Encrypt([]byte(signed))
	if err != nil {
		return "", time.Time{}, err
	}

	return token, exp, nil
}

// Introspect decrypts token, verifies its signature and expiry, and returns the claims.
// Failures are one of [ErrMalformed], [ErrInvalidSignature], or [ErrExpired].
func (c *Codec) Introspect(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrMalformed
	}

	plaintext, err := c.keys.Decrypt(token)
	if err != nil {
		if errors.Is(err, keys.ErrMalformedJWE) {
			return nil, ErrMalformed
		}
		return nil, ErrInvalidSignature
	}

	options := []gjwt.ParserOption{
		gjwt.WithTimeFunc(c.config.Now),
		gjwt.WithExpirationRequired(),
		gjwt.WithIssuedAt(),
	}
	if c.config.Leeway > 0 {
		options = append(options, gjwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, gjwt.WithIssuer(c.config.Issuer))
	}
	if c.config.Audience != "" {
		options = append(options, gjwt.WithAudience(c.config.Audience))
	}

	var wire AccessClaims
	if err := c.keys.Verify(string(plaintext), &wire, options...); err != nil {
		return nil, classify(err)
	}
	if wire.Type != TokenTypeAccess || wire.ID == "" || wire.IssuedAt == nil {
		return nil, ErrMalformed
	}

	out := &Claims{
		PrincipalID: wire.ID,
		Email:       wire.Email,
		IsActive:    wire.IsActive,
		IssuedAt:    wire.IssuedAt.Time,
		ExpiresAt:   wire.ExpiresAt.Time,
	}
	if wire.ClientID != nil {
		out.ClientID = *wire.ClientID
	}
	return out, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, gjwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, gjwt.ErrTokenSignatureInvalid),
		errors.Is(err, gjwt.ErrTokenUnverifiable):
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
