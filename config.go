package authcore

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/donorhub/authcore/password"
)

// Config defines all engine tunables. Zero values are filled from
// [DefaultConfig] by the builder; the only field without a usable default is
// Token.SigningSecret, which must be non-empty or Build refuses to proceed.
type Config struct {
	Token        TokenConfig
	Session      SessionConfig
	Password     PasswordConfig
	Lockout      LockoutConfig
	Verification TicketConfig
	Reset        TicketConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

// TokenConfig controls JWT issuance. Access tokens are stateless and
// short-lived; refresh tokens are stateful and single-use.
type TokenConfig struct {
	SigningSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

// SessionConfig controls the Redis session table. Lifetime 0 means the
// session lives as long as the refresh token that opened it.
type SessionConfig struct {
	RedisPrefix string
	Lifetime    time.Duration
}

// PasswordConfig holds argon2id parameters and the strength policy applied
// to new passwords. When UpgradeOnLogin is set, hashes stored with weaker
// parameters are transparently rehashed on the next successful login.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	UpgradeOnLogin bool
	Policy         password.Policy
}

// LockoutConfig controls the failed-login lockout. After Threshold
// consecutive failures for one email, login is suppressed for Duration.
type LockoutConfig struct {
	Enabled   bool
	Threshold int
	Duration  time.Duration
}

// TicketConfig controls a one-time-code table (email verification or
// password reset).
type TicketConfig struct {
	TTL        time.Duration
	CodeDigits int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process atomic counters.
type MetricsConfig struct {
	Enabled bool
}

// DefaultConfig returns the production defaults: 15m access tokens, 7d
// refresh tokens, 5-failure lockout for 30m, 6-digit codes.
func DefaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "donorhub",
		},
		Session: SessionConfig{
			RedisPrefix: "sess",
		},
		Password: PasswordConfig{
			Memory:         64 * 1024,
			Time:           2,
			Parallelism:    2,
			SaltLength:     16,
			KeyLength:      32,
			UpgradeOnLogin: true,
			Policy:         password.DefaultPolicy(),
		},
		Lockout: LockoutConfig{
			Enabled:   true,
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		Verification: TicketConfig{
			TTL:        24 * time.Hour,
			CodeDigits: 6,
		},
		Reset: TicketConfig{
			TTL:        time.Hour,
			CodeDigits: 6,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if len(c.Token.SigningSecret) == 0 {
		return errors.New("token signing secret is required")
	}
	if c.Token.AccessTTL <= 0 || c.Token.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.Token.AccessTTL > c.Token.RefreshTTL {
		return errors.New("access TTL must not exceed refresh TTL")
	}
	if c.Lockout.Enabled {
		if c.Lockout.Threshold <= 0 {
			return errors.New("lockout threshold must be positive")
		}
		if c.Lockout.Duration <= 0 {
			return errors.New("lockout duration must be positive")
		}
	}
	if c.Verification.TTL <= 0 || c.Reset.TTL <= 0 {
		return errors.New("ticket TTLs must be positive")
	}
	if c.Verification.CodeDigits < 6 || c.Verification.CodeDigits > 10 ||
		c.Reset.CodeDigits < 6 || c.Reset.CodeDigits > 10 {
		return errors.New("ticket code digits must be between 6 and 10")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Token.SigningSecret = append([]byte(nil), cfg.Token.SigningSecret...)
	return out
}

// fallbackLifetime is used when a lifetime string cannot be parsed, keeping
// token issuance available under misconfiguration.
const fallbackLifetime = time.Hour

// ParseLifetime parses a compact lifetime string ("30s", "15m", "12h", "7d",
// or a bare number of seconds) into a duration. An unparseable or
// non-positive value yields the 1h fallback instead of an error.
func ParseLifetime(s string) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallbackLifetime
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return fallbackLifetime
		}
		return time.Duration(n) * time.Second
	}

	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return fallbackLifetime
		}
		return time.Duration(n) * 24 * time.Hour
	}

	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallbackLifetime
	}
	return d
}
