package keys

import (
	"crypto"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	jose "github.com/go-jose/go-jose/v4"
	gjwt "github.com/golang-jwt/jwt/v5"
)

// DefaultMinBits is the smallest RSA modulus accepted by [Load] when Config.MinBits is zero.
const DefaultMinBits = 2048

var (
	// ErrMissingPrivateKey is returned by [Load] when no private key PEM is configured.
	ErrMissingPrivateKey = errors.New("keys: private key is not set")
	// ErrMissingPublicKey is returned by [Load] when no public key PEM is configured.
	ErrMissingPublicKey = errors.New("keys: public key is not set")
	// ErrKeyMismatch is returned by [Load] when the public key does not belong to the private key.
	ErrKeyMismatch = errors.New("keys: public key does not match private key")
	// ErrWeakKey is returned by [Load] when the RSA modulus is shorter than the configured minimum.
	ErrWeakKey = errors.New("keys: rsa key too short")
)

const (
	signingAlg    = "RS256"
	keyAlgorithm  = jose.RSA_OAEP_256
	contentCipher = jose.A256GCM
)

// Config carries PEM encoded key material. Literal "\n" sequences are accepted in place
// of newlines so keys can be passed through single-line environment variables.
type Config struct {
	PrivateKeyPEM []byte
	PublicKeyPEM  []byte
	MinBits       int
}

// Provider exposes sign/verify and encrypt/decrypt over one RSA key pair.
//
// A Provider is immutable after [Load] and safe for concurrent use.
type Provider struct {
	private   *rsa.PrivateKey
	public    *rsa.PublicKey
	keyID     string
	encrypter jose.Encrypter
}

// Load parses and cross-checks the configured key pair.
func Load(cfg Config) (*Provider, error) {
	privPEM := UnescapePEM(cfg.PrivateKeyPEM)
	pubPEM := UnescapePEM(cfg.PublicKeyPEM)
	if len(privPEM) == 0 {
		return nil, ErrMissingPrivateKey
	}
	if len(pubPEM) == 0 {
		return nil, ErrMissingPublicKey
	}

	priv, err := gjwt.ParseRSAPrivateKeyFromPEM(privPEM)
	if err != nil {
		return nil, fmt.Errorf("keys: parse private key: %w", err)
	}
	pub, err := gjwt.ParseRSAPublicKeyFromPEM(pubPEM)
	if err != nil {
		return nil, fmt.Errorf("keys: parse public key: %w", err)
	}

	minBits := cfg.MinBits
	if minBits <= 0 {
		minBits = DefaultMinBits
	}
	if pub.N.BitLen() < minBits {
		return nil, fmt.Errorf("%w: %d bits, need %d", ErrWeakKey, pub.N.BitLen(), minBits)
	}
	if !priv.PublicKey.Equal(pub) {
		return nil, ErrKeyMismatch
	}

	kid, err := thumbprint(pub)
	if err != nil {
		return nil, err
	}

	enc, err := jose.NewEncrypter(
		contentCipher,
		jose.Recipient{Algorithm: keyAlgorithm, Key: pub, KeyID: kid},
		(&jose.EncrypterOptions{}).WithContentType("JWT"),
	)
	if err != nil {
		return nil, fmt.Errorf("keys: build encrypter: %w", err)
	}

	return &Provider{
		private:   priv,
		public:    pub,
		keyID:     kid,
		encrypter: enc,
	}, nil
}

// KeyID returns the RFC 7638 thumbprint of the public key. It is written to the kid
// header of every signed and encrypted artifact.
func (p *Provider) KeyID() string {
	return p.keyID
}

// PublicKey returns the verification and encryption key.
func (p *Provider) PublicKey() *rsa.PublicKey {
	return p.public
}

// Sign produces a compact RS256 JWS over claims.
func (p *Provider) Sign(claims gjwt.Claims) (string, error) {
	token := gjwt.NewWithClaims(gjwt.SigningMethodRS256, claims)
	token.Header["kid"] = p.keyID
	return token.SignedString(p.private)
}

// Verify checks the RS256 signature of a compact JWS and decodes it into claims.
// Only RS256 is accepted regardless of the token header. Additional parser options
// (time source, leeway, issuer) are applied as given; errors are returned unwrapped
// from golang-jwt so callers can classify them with errors.Is.
func (p *Provider) Verify(signed string, claims gjwt.Claims, opts ...gjwt.ParserOption) error {
	options := append([]gjwt.ParserOption{gjwt.WithValidMethods([]string{signingAlg})}, opts...)
	parser := gjwt.NewParser(options...)

	token, err := parser.ParseWithClaims(signed, claims, func(t *gjwt.Token) (interface{}, error) {
		if t.Method.Alg() != signingAlg {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		if kid, ok := t.Header["kid"].(string); ok && kid != "" && kid != p.keyID {
			return nil, errors.New("unknown kid")
		}
		return p.public, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return gjwt.ErrTokenInvalidClaims
	}
	return nil
}

// Encrypt seals plaintext for the public key as a compact JWE
// (RSA-OAEP-256 key wrap, A256GCM content encryption).
func (p *Provider) Encrypt(plaintext []byte) (string, error) {
	obj, err := p.encrypter.Encrypt(plaintext)
	if err != nil {
		return "", err
	}
	return obj.CompactSerialize()
}

// Decrypt opens a compact JWE produced by [Provider.Encrypt]. Parse failures wrap
// [ErrMalformedJWE]; key unwrap or tag failures wrap [ErrDecrypt].
func (p *Provider) Decrypt(compact string) ([]byte, error) {
	obj, err := jose.ParseEncryptedCompact(
		compact,
		[]jose.KeyAlgorithm{keyAlgorithm},
		[]jose.ContentEncryption{contentCipher},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJWE, err)
	}
	plaintext, err := obj.Decrypt(p.private)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return plaintext, nil
}

var (
	// ErrMalformedJWE is wrapped by [Provider.Decrypt] when the input is not a compact JWE
	// using the expected algorithms.
	ErrMalformedJWE = errors.New("keys: malformed jwe")
	// ErrDecrypt is wrapped by [Provider.Decrypt] when the content key cannot be unwrapped
	// or the authentication tag does not verify.
	ErrDecrypt = errors.New("keys: decryption failed")
)

// UnescapePEM trims surrounding whitespace and turns literal "\n" sequences into newlines.
func UnescapePEM(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return nil
	}
	s = strings.ReplaceAll(s, `\n`, "\n")
	return []byte(s)
}

func thumbprint(pub *rsa.PublicKey) (string, error) {
	jwk := jose.JSONWebKey{Key: pub}
	sum, err := jwk.Thumbprint(crypto.SHA256)
	if err != nil {
		return "", fmt.Errorf("keys: thumbprint: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(sum), nil
}
