package credAuth

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/credAuth/password"
)

// Environment variables read by ApplyEnv.
const (
	EnvPepper    = "PEPPER"
	EnvPepperOld = "PEPPER_OLD"
	EnvJWTSecret = "JWT_SECRET"
)

// LoadConfigFile reads a YAML config from path on top of DefaultConfig and applies the
// process environment. The result is not validated; Build does that.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	ApplyEnv(&cfg, os.LookupEnv)
	return cfg, nil
}

// ParseConfig decodes YAML over DefaultConfig. Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := defaultConfig()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides secrets from the environment. PEPPER_OLD is a comma-separated list.
// Variables that are unset leave the file values in place.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if cfg == nil || lookup == nil {
		return
	}
	if v, ok := lookup(EnvPepper); ok {
		cfg.Pepper.Current = v
	}
	if v, ok := lookup(EnvPepperOld); ok {
		cfg.Pepper.Olds = password.ParsePepperList(v)
	}
	if v, ok := lookup(EnvJWTSecret); ok {
		cfg.JWT.Secret = v
	}
}
