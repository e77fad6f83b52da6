package jwt

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/MrEthical07/tokenauth/internal"
)

// DefaultSecretBytes is the entropy of a refresh token: 40 bytes, 80 hex characters.
const DefaultSecretBytes = 40

const minSecretBytes = 32

// ErrSecretTooShort is returned by [GenerateOpaqueSecret] for lengths below 32 bytes.
var ErrSecretTooShort = errors.New("opaque secret must be at least 32 bytes")

// GenerateOpaqueSecret returns byteLength CSPRNG bytes as lowercase hex.
func GenerateOpaqueSecret(byteLength int) (string, error) {
	if byteLength < minSecretBytes {
		return "", fmt.Errorf("%w: got %d", ErrSecretTooShort, byteLength)
	}
	raw, err := internal.RandomBytes(byteLength)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}
