package tokenauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/jwt"
	"github.com/MrEthical07/tokenauth/keys"
	"github.com/MrEthical07/tokenauth/refresh"
)

// Config is the root configuration consumed by [Builder]. Start from [DefaultConfig] and
// override fields; the Builder validates and freezes it at Build.
type Config struct {
	JWT      JWTConfig
	Client   ClientConfig
	Password PasswordConfig
	Refresh  RefreshConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	Security SecurityConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access token issuance. PrivateKey and PublicKey are PEM text and
// may use literal "\n" separators. They are ignored when the Builder is given a
// key provider directly.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	PrivateKey []byte
	PublicKey  []byte
	MinKeyBits int
	Issuer     string
	Audience   string
	Leeway     time.Duration
}

// ClientConfig controls the client authentication gate. With Required set, login and
// register reject calls that carry no client credentials.
type ClientConfig struct {
	Required bool
}

// PasswordConfig selects the hasher used for principals and client secrets when the
// Builder is not given one. Algorithm is "bcrypt" or "argon2id".
type PasswordConfig struct {
	Algorithm   string
	BcryptCost  int
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// RefreshConfig controls refresh token values and the Redis store namespace.
type RefreshConfig struct {
	SecretBytes int
	RedisPrefix string
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters and the verify latency histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// SecurityConfig controls login throttling. Throttling is active only when a Redis
// client is supplied to the Builder and MaxLoginAttempts > 0.
type SecurityConfig struct {
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	EnableIPThrottle      bool
	ThrottleRedisPrefix   string
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the baseline configuration: 900s access tokens, 604800s refresh
// tokens, bcrypt cost 10, client authentication required.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  900 * time.Second,
			RefreshTTL: 604800 * time.Second,
			MinKeyBits: keys.DefaultMinBits,
		},
		Client: ClientConfig{
			Required: true,
		},
		Password: PasswordConfig{
			Algorithm:   "bcrypt",
			BcryptCost:  10,
			Memory:      65536,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Refresh: RefreshConfig{
			SecretBytes: jwt.DefaultSecretBytes,
			RedisPrefix: "tokenauth",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			EnableIPThrottle:      false,
			ThrottleRedisPrefix:   "tokenauth:throttle",
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate checks internal consistency. Key material is checked separately when the
// key provider is loaded.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.AccessTTL%time.Second != 0 || c.JWT.RefreshTTL%time.Second != 0 {
		return errors.New("JWT TTLs must be whole seconds")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("JWT AccessTTL must be shorter than RefreshTTL")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}
	if c.JWT.MinKeyBits != 0 && c.JWT.MinKeyBits < keys.DefaultMinBits {
		return errors.New("JWT MinKeyBits must be >= 2048")
	}

	// Password
	switch c.Password.Algorithm {
	case "bcrypt":
		if c.Password.BcryptCost < 4 || c.Password.BcryptCost > 31 {
			return errors.New("Password BcryptCost must be between 4 and 31")
		}
	case "argon2id":
		if c.Password.Memory < 8*1024 {
			return errors.New("Password Memory must be >= 8192 KB")
		}
		if c.Password.Time < 1 {
			return errors.New("Password Time must be >= 1")
		}
		if c.Password.Parallelism < 1 {
			return errors.New("Password Parallelism must be >= 1")
		}
		if c.Password.SaltLength < 16 {
			return errors.New("Password SaltLength must be >= 16")
		}
		if c.Password.KeyLength < 16 {
			return errors.New("Password KeyLength must be >= 16")
		}
	default:
		return errors.New("Password Algorithm must be 'bcrypt' or 'argon2id'")
	}

	// Refresh
	if c.Refresh.SecretBytes < 32 || c.Refresh.SecretBytes > refresh.MaxSecretBytes {
		return fmt.Errorf("Refresh SecretBytes must be between 32 and %d", refresh.MaxSecretBytes)
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	// Security
	if c.Security.MaxLoginAttempts < 0 {
		return errors.New("Security MaxLoginAttempts must be >= 0")
	}
	if c.Security.MaxLoginAttempts > 0 && c.Security.LoginCooldownDuration <= 0 {
		return errors.New("Security LoginCooldownDuration must be > 0 when throttling is enabled")
	}

	return nil
}
