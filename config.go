package credAuth

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/MrEthical07/credAuth/password"
)

// Config groups every engine setting. Build copies it, so later mutation by the caller has no
// effect on a running Engine.
type Config struct {
	Pepper   PepperConfig   `yaml:"pepper"`
	Password PasswordConfig `yaml:"password"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Alert    AlertConfig    `yaml:"alert"`
	JWT      JWTConfig      `yaml:"jwt"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

/*
====================================
PEPPER CONFIG
====================================
*/

// PepperConfig holds the server-side secrets mixed into every password before hashing.
// An empty Current disables peppering; Olds are retired peppers still accepted on login.
type PepperConfig struct {
	Current string   `yaml:"current"`
	Olds    []string `yaml:"olds"`
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig selects the Argon2id profiles and the upgrade cadence.
//
// New passwords are encoded with Base. A successful login re-encodes with Strong when the
// stored digest is weaker than Strong, used a retired pepper, or is older than RotationPeriod.
type PasswordConfig struct {
	Base                password.Config `yaml:"base"`
	Strong              password.Config `yaml:"strong"`
	RotationPeriod      time.Duration   `yaml:"rotation_period"`
	MinLength           int             `yaml:"min_length"`
	MaxConcurrentHashes int             `yaml:"max_concurrent_hashes"`
}

/*
====================================
THROTTLE CONFIG
====================================
*/

// ThrottleConfig controls the per-IP attempt budget and the shadow delays.
type ThrottleConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Points        int           `yaml:"points"`
	Window        time.Duration `yaml:"window"`
	BlockDuration time.Duration `yaml:"block_duration"`
	// Whitelist entries are addresses or CIDR prefixes that bypass the budget and alerts.
	Whitelist    []string      `yaml:"whitelist"`
	BlockedDelay time.Duration `yaml:"blocked_delay"`
	FailedDelay  time.Duration `yaml:"failed_delay"`
	RedisPrefix  string        `yaml:"redis_prefix"`
}

/*
====================================
ALERT CONFIG
====================================
*/

// AlertConfig controls the failed-login security alert.
type AlertConfig struct {
	// FailedLoginThreshold is the count at which the owner is alerted. Zero disables alerts.
	FailedLoginThreshold int `yaml:"failed_login_threshold"`
	// SiteLink is the change-password URL included in alert mails.
	SiteLink string `yaml:"site_link"`
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls the login token.
type JWTConfig struct {
	Secret        string        `yaml:"secret"`
	AccessTTL     time.Duration `yaml:"access_ttl"`
	SigningMethod string        `yaml:"signing_method"` // "hs256" (default), "ed25519" optional
	Issuer        string        `yaml:"issuer"`
	PrivateKey    []byte        `yaml:"-"`
	PublicKey     []byte        `yaml:"-"`
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool `yaml:"enabled"`
	BufferSize int  `yaml:"buffer_size"`
	DropIfFull bool `yaml:"drop_if_full"`
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled                 bool `yaml:"enabled"`
	EnableLatencyHistograms bool `yaml:"latency_histograms"`
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns the production defaults. JWT.Secret must still be supplied.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Password: PasswordConfig{
			Base:                password.BaseProfile(),
			Strong:              password.StrongProfile(),
			RotationPeriod:      password.DefaultRotationPeriod,
			MinLength:           8,
			MaxConcurrentHashes: 4,
		},
		Throttle: ThrottleConfig{
			Enabled:       true,
			Points:        100,
			Window:        24 * time.Hour,
			BlockDuration: 24 * time.Hour,
			Whitelist:     []string{"127.0.0.1", "::1"},
			BlockedDelay:  10 * time.Second,
			FailedDelay:   10 * time.Millisecond,
			RedisPrefix:   "lip",
		},
		Alert: AlertConfig{
			FailedLoginThreshold: 5,
		},
		JWT: JWTConfig{
			AccessTTL:     6 * time.Hour,
			SigningMethod: "hs256",
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
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Pepper.Olds = cloneStrings(cfg.Pepper.Olds)
	out.Throttle.Whitelist = cloneStrings(cfg.Throttle.Whitelist)
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneStrings(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
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

// Validate reports the first setting that would make the engine unsafe or unusable.
func (c *Config) Validate() error {
	// Pepper
	for _, old := range c.Pepper.Olds {
		if old == "" {
			return errors.New("Pepper Olds must not contain empty entries")
		}
		if c.Pepper.Current != "" && old == c.Pepper.Current {
			return errors.New("Pepper Olds must not repeat the current pepper")
		}
	}
	if c.Pepper.Current == "" && len(c.Pepper.Olds) > 0 {
		return errors.New("Pepper Olds require a current pepper")
	}

	// Password
	if err := c.Password.Base.Validate(); err != nil {
		return fmt.Errorf("Password Base: %w", err)
	}
	if err := c.Password.Strong.Validate(); err != nil {
		return fmt.Errorf("Password Strong: %w", err)
	}
	if c.Password.Strong.Memory < c.Password.Base.Memory ||
		c.Password.Strong.Time < c.Password.Base.Time ||
		c.Password.Strong.Parallelism < c.Password.Base.Parallelism {
		return errors.New("Password Strong must not be weaker than Base")
	}
	if c.Password.RotationPeriod < 0 {
		return errors.New("Password RotationPeriod must be >= 0")
	}
	if c.Password.MinLength < 1 {
		return errors.New("Password MinLength must be >= 1")
	}
	if c.Password.MaxConcurrentHashes < 1 {
		return errors.New("Password MaxConcurrentHashes must be >= 1")
	}

	// Throttle
	if c.Throttle.Enabled {
		if c.Throttle.Points < 1 {
			return errors.New("Throttle Points must be >= 1")
		}
		if c.Throttle.Window <= 0 {
			return errors.New("Throttle Window must be > 0")
		}
		if c.Throttle.BlockDuration < 0 {
			return errors.New("Throttle BlockDuration must be >= 0")
		}
		if strings.TrimSpace(c.Throttle.RedisPrefix) == "" {
			return errors.New("Throttle RedisPrefix must not be empty")
		}
	}
	if c.Throttle.BlockedDelay < 0 || c.Throttle.FailedDelay < 0 {
		return errors.New("Throttle delays must be >= 0")
	}
	for _, entry := range c.Throttle.Whitelist {
		if err := validWhitelistEntry(entry); err != nil {
			return err
		}
	}

	// Alert
	if c.Alert.FailedLoginThreshold < 0 {
		return errors.New("Alert FailedLoginThreshold must be >= 0")
	}

	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	switch c.JWT.SigningMethod {
	case "hs256":
		if c.JWT.Secret == "" && len(c.JWT.PrivateKey) == 0 {
			return errors.New("hs256 requires Secret")
		}
		if len(c.JWT.Secret) < 32 && len(c.JWT.PrivateKey) < 32 {
			return errors.New("hs256 Secret must be at least 256 bits")
		}
	case "ed25519":
		if len(c.JWT.PrivateKey) == 0 || len(c.JWT.PublicKey) == 0 {
			return errors.New("ed25519 requires PrivateKey and PublicKey")
		}
	default:
		return errors.New("unsupported JWT signing method")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	if !c.Metrics.Enabled && c.Metrics.EnableLatencyHistograms {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}

func validWhitelistEntry(entry string) error {
	entry = strings.TrimSpace(entry)
	if strings.Contains(entry, "/") {
		if _, err := netip.ParsePrefix(entry); err != nil {
			return fmt.Errorf("Throttle Whitelist entry %q is not a valid prefix", entry)
		}
		return nil
	}
	if _, err := netip.ParseAddr(entry); err != nil {
		return fmt.Errorf("Throttle Whitelist entry %q is not a valid address", entry)
	}
	return nil
}
