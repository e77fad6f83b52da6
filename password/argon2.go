package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const argon2Prefix = "$argon2id$"

// Floors for both configured and stored parameters.
const (
	minArgonMemoryKB = 8 * 1024
	minArgonSaltLen  = 16
	minArgonKeyLen   = 16
)

var (
	// ErrMalformedHash is returned when a stored argon2id string cannot be decoded.
	ErrMalformedHash = errors.New("malformed argon2id hash")
	// ErrIncompatibleVersion is returned for argon2id strings from another Argon2 revision.
	ErrIncompatibleVersion = errors.New("incompatible argon2 version")
)

// Config holds Argon2id cost parameters. MaxPasswordBytes defaults to
// [DefaultMaxPasswordBytes].
type Config struct {
	Memory           uint32
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// DefaultArgon2Config returns the parameters used when argon2id is selected without
// explicit tuning.
func DefaultArgon2Config() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func (c Config) validate() error {
	switch {
	case c.Memory < minArgonMemoryKB:
		return fmt.Errorf("argon2 memory must be >= %d KB", minArgonMemoryKB)
	case c.Time == 0:
		return errors.New("argon2 time must be >= 1")
	case c.Parallelism == 0:
		return errors.New("argon2 parallelism must be >= 1")
	case c.SaltLength < minArgonSaltLen:
		return fmt.Errorf("argon2 salt length must be >= %d", minArgonSaltLen)
	case c.KeyLength < minArgonKeyLen:
		return fmt.Errorf("argon2 key length must be >= %d", minArgonKeyLen)
	}
	return nil
}

// Argon2 is a [Hasher] producing argon2id PHC strings.
type Argon2 struct {
	config Config
}

// NewArgon2 validates cfg and returns a hasher bound to it.
func NewArgon2(cfg Config) (*Argon2, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MaxPasswordBytes <= 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	return &Argon2{config: cfg}, nil
}

// argonHash is one decoded PHC string.
type argonHash struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	key         []byte
}

func (h argonHash) derive(secret string) []byte {
	return argon2.IDKey([]byte(secret), h.salt, h.time, h.memory, h.parallelism, uint32(len(h.key)))
}

func (h argonHash) String() string {
	b64 := base64.StdEncoding
	return fmt.Sprintf("%sv=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2Prefix, argon2.Version, h.memory, h.time, h.parallelism,
		b64.EncodeToString(h.salt), b64.EncodeToString(h.key))
}

func (a *Argon2) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > a.config.MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}

	h := argonHash{
		memory:      a.config.Memory,
		time:        a.config.Time,
		parallelism: a.config.Parallelism,
		salt:        make([]byte, a.config.SaltLength),
		key:         make([]byte, a.config.KeyLength),
	}
	if _, err := rand.Read(h.salt); err != nil {
		return "", fmt.Errorf("argon2 salt: %w", err)
	}
	h.key = h.derive(password)
	return h.String(), nil
}

func (a *Argon2) Verify(password, encoded string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}
	h, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(h.derive(password), h.key) == 1, nil
}

func (a *Argon2) Supports(encoded string) bool {
	return strings.HasPrefix(encoded, argon2Prefix)
}

// NeedsUpgrade reports whether encoded was produced with weaker parameters than the
// hasher's current config.
func (a *Argon2) NeedsUpgrade(encoded string) (bool, error) {
	h, err := decodeArgon2(encoded)
	if err != nil {
		return false, err
	}
	return h.memory < a.config.Memory ||
		h.time < a.config.Time ||
		h.parallelism < a.config.Parallelism ||
		uint32(len(h.key)) != a.config.KeyLength, nil
}

// decodeArgon2 parses $argon2id$v=19$m=..,t=..,p=..$salt$key.
func decodeArgon2(encoded string) (argonHash, error) {
	rest, ok := strings.CutPrefix(encoded, argon2Prefix)
	if !ok {
		return argonHash{}, ErrUnsupportedHash
	}
	fields := strings.Split(rest, "$")
	if len(fields) != 4 {
		return argonHash{}, ErrMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[0], "v=%d", &version); err != nil {
		return argonHash{}, ErrMalformedHash
	}
	if version != argon2.Version {
		return argonHash{}, fmt.Errorf("%w: v=%d", ErrIncompatibleVersion, version)
	}

	var h argonHash
	n, err := fmt.Sscanf(fields[1], "m=%d,t=%d,p=%d", &h.memory, &h.time, &h.parallelism)
	if err != nil || n != 3 || fmt.Sprintf("m=%d,t=%d,p=%d", h.memory, h.time, h.parallelism) != fields[1] {
		return argonHash{}, ErrMalformedHash
	}
	if h.memory < minArgonMemoryKB || h.time == 0 || h.parallelism == 0 {
		return argonHash{}, ErrMalformedHash
	}

	if h.salt, err = base64.StdEncoding.DecodeString(fields[2]); err != nil || len(h.salt) < minArgonSaltLen {
		return argonHash{}, ErrMalformedHash
	}
	if h.key, err = base64.StdEncoding.DecodeString(fields[3]); err != nil || len(h.key) == 0 {
		return argonHash{}, ErrMalformedHash
	}
	return h, nil
}
