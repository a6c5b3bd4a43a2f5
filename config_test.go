package credAuth

import (
	"strings"
	"testing"
	"time"
)

const testJWTSecret = "0123456789abcdef0123456789abcdef"

func validTestConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = testJWTSecret
	return cfg
}

func TestDefaultConfigValues(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Password.Base.Memory != 65536 || cfg.Password.Base.Time != 4 || cfg.Password.Base.Parallelism != 2 {
		t.Fatalf("unexpected base profile: %+v", cfg.Password.Base)
	}
	if cfg.Password.Strong.Memory != 131072 || cfg.Password.Strong.Time != 6 || cfg.Password.Strong.Parallelism != 4 {
		t.Fatalf("unexpected strong profile: %+v", cfg.Password.Strong)
	}
	if cfg.Password.RotationPeriod != 30*24*time.Hour {
		t.Fatalf("expected 30 day rotation, got %v", cfg.Password.RotationPeriod)
	}
	if cfg.Throttle.Points != 100 || cfg.Throttle.Window != 24*time.Hour || cfg.Throttle.BlockDuration != 24*time.Hour {
		t.Fatalf("unexpected throttle budget: %+v", cfg.Throttle)
	}
	if cfg.Throttle.BlockedDelay != 10*time.Second || cfg.Throttle.FailedDelay != 10*time.Millisecond {
		t.Fatalf("unexpected delays: %+v", cfg.Throttle)
	}
	if cfg.Alert.FailedLoginThreshold != 5 {
		t.Fatalf("expected alert at 5, got %d", cfg.Alert.FailedLoginThreshold)
	}
	if cfg.JWT.AccessTTL != 6*time.Hour || cfg.JWT.SigningMethod != "hs256" {
		t.Fatalf("unexpected jwt defaults: %+v", cfg.JWT)
	}

	if err := cfg.Validate(); err == nil {
		t.Fatal("defaults without a JWT secret must not validate")
	}
	valid := validTestConfig()
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected defaults plus secret to validate: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
		wantErr   string
	}{
		{
			name:      "pepper with olds",
			mutate:    func(c *Config) { c.Pepper = PepperConfig{Current: "p2", Olds: []string{"p1"}} },
			wantValid: true,
		},
		{
			name:    "olds without current",
			mutate:  func(c *Config) { c.Pepper = PepperConfig{Olds: []string{"p1"}} },
			wantErr: "require a current pepper",
		},
		{
			name:    "old repeats current",
			mutate:  func(c *Config) { c.Pepper = PepperConfig{Current: "p1", Olds: []string{"p1"}} },
			wantErr: "repeat",
		},
		{
			name:    "empty old",
			mutate:  func(c *Config) { c.Pepper = PepperConfig{Current: "p2", Olds: []string{""}} },
			wantErr: "empty",
		},
		{
			name:    "weak base memory",
			mutate:  func(c *Config) { c.Password.Base.Memory = 1024 },
			wantErr: "Password Base",
		},
		{
			name:    "strong weaker than base",
			mutate:  func(c *Config) { c.Password.Strong = c.Password.Base; c.Password.Strong.Time = 1 },
			wantErr: "weaker than Base",
		},
		{
			name:      "strong equal to base",
			mutate:    func(c *Config) { c.Password.Strong = c.Password.Base },
			wantValid: true,
		},
		{
			name:    "zero min length",
			mutate:  func(c *Config) { c.Password.MinLength = 0 },
			wantErr: "MinLength",
		},
		{
			name:    "zero hash concurrency",
			mutate:  func(c *Config) { c.Password.MaxConcurrentHashes = 0 },
			wantErr: "MaxConcurrentHashes",
		},
		{
			name:    "zero points",
			mutate:  func(c *Config) { c.Throttle.Points = 0 },
			wantErr: "Points",
		},
		{
			name:      "zero points with throttle disabled",
			mutate:    func(c *Config) { c.Throttle.Enabled = false; c.Throttle.Points = 0 },
			wantValid: true,
		},
		{
			name:    "negative delay",
			mutate:  func(c *Config) { c.Throttle.FailedDelay = -time.Millisecond },
			wantErr: "delays",
		},
		{
			name:    "bad whitelist entry",
			mutate:  func(c *Config) { c.Throttle.Whitelist = []string{"localhost"} },
			wantErr: "Whitelist",
		},
		{
			name:      "cidr whitelist entry",
			mutate:    func(c *Config) { c.Throttle.Whitelist = []string{"10.0.0.0/8", "::1"} },
			wantValid: true,
		},
		{
			name:    "negative alert threshold",
			mutate:  func(c *Config) { c.Alert.FailedLoginThreshold = -1 },
			wantErr: "FailedLoginThreshold",
		},
		{
			name:      "alerts disabled",
			mutate:    func(c *Config) { c.Alert.FailedLoginThreshold = 0 },
			wantValid: true,
		},
		{
			name:    "short hs256 secret",
			mutate:  func(c *Config) { c.JWT.Secret = "weak-key" },
			wantErr: "256 bits",
		},
		{
			name:    "unsupported signing method",
			mutate:  func(c *Config) { c.JWT.SigningMethod = "rs256" },
			wantErr: "unsupported",
		},
		{
			name:    "ed25519 without keys",
			mutate:  func(c *Config) { c.JWT.SigningMethod = "ed25519" },
			wantErr: "ed25519",
		},
		{
			name:    "zero access ttl",
			mutate:  func(c *Config) { c.JWT.AccessTTL = 0 },
			wantErr: "AccessTTL",
		},
		{
			name:    "audit without buffer",
			mutate:  func(c *Config) { c.Audit.Enabled = true; c.Audit.BufferSize = 0 },
			wantErr: "BufferSize",
		},
		{
			name:    "histograms without metrics",
			mutate:  func(c *Config) { c.Metrics.EnableLatencyHistograms = true },
			wantErr: "EnableLatencyHistograms",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantValid {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestCloneConfigIsDeep(t *testing.T) {
	cfg := validTestConfig()
	cfg.Pepper = PepperConfig{Current: "p2", Olds: []string{"p1"}}
	cfg.JWT.PrivateKey = []byte("key")

	out := cloneConfig(cfg)
	cfg.Pepper.Olds[0] = "mutated"
	cfg.Throttle.Whitelist[0] = "10.0.0.1"
	cfg.JWT.PrivateKey[0] = 'X'

	if out.Pepper.Olds[0] != "p1" {
		t.Fatal("pepper olds shared with source")
	}
	if out.Throttle.Whitelist[0] != "127.0.0.1" {
		t.Fatal("whitelist shared with source")
	}
	if string(out.JWT.PrivateKey) != "key" {
		t.Fatal("private key shared with source")
	}
}
