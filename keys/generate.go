package keys

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"strings"
)

// Pair is a PEM encoded key pair: PKCS#8 private key and SPKI public key.
type Pair struct {
	PrivatePEM []byte
	PublicPEM  []byte
}

// Generate creates a fresh RSA key pair. bits below [DefaultMinBits] are rejected.
func Generate(bits int) (Pair, error) {
	if bits < DefaultMinBits {
		return Pair{}, fmt.Errorf("%w: %d bits, need %d", ErrWeakKey, bits, DefaultMinBits)
	}

	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: generate: %w", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: marshal private key: %w", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	if err != nil {
		return Pair{}, fmt.Errorf("keys: marshal public key: %w", err)
	}

	return Pair{
		PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	}, nil
}

// EscapeForEnv flattens PEM text onto one line using literal "\n" separators.
// [UnescapePEM] reverses it.
func EscapeForEnv(pemBytes []byte) string {
	s := strings.ReplaceAll(string(pemBytes), "\r\n", "\n")
	s = strings.ReplaceAll(s, "\n", `\n`)
	return strings.TrimSpace(s)
}
