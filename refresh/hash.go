package refresh

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	minTokenLength = 64
	maxTokenLength = 512
)

// MaxSecretBytes is the largest random secret whose hex form still passes [WellFormed].
const MaxSecretBytes = maxTokenLength / 2

// HashToken returns the lowercase hex SHA-256 digest of a refresh token value. Stores key
// records by this digest so a leaked table cannot be replayed.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// WellFormed reports whether token looks like a value produced by the issuer: hex,
// 64 to 512 characters. It is a cheap pre-check before any store access.
func WellFormed(token string) bool {
	if len(token) < minTokenLength || len(token) > maxTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
