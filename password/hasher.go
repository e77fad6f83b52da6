package password

import "errors"

// DefaultMaxPasswordBytes bounds the input accepted by [Argon2] when Config.MaxPasswordBytes
// is zero.
const DefaultMaxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned by Hash for an empty input.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned when the input exceeds the algorithm limit.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrUnsupportedHash is returned by Verify when no configured algorithm recognizes the
	// stored hash.
	ErrUnsupportedHash = errors.New("unsupported password hash")
)

// Hasher hashes secrets and verifies them against stored hashes. Verify returns
// (false, nil) on mismatch and an error only when the stored hash cannot be used.
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, encoded string) (bool, error)
	Supports(encoded string) bool
}
