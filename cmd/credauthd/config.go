package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrEthical07/credAuth/notify"
)

// serverConfig is the daemon's own settings. Engine settings live in a separate file read by
// credAuth.LoadConfigFile.
type serverConfig struct {
	Listen            string        `yaml:"listen"`
	EngineConfig      string        `yaml:"engine_config"`
	DatabaseDSN       string        `yaml:"database_dsn"`
	RedisAddr         string        `yaml:"redis_addr"`
	TrustForwardedFor bool          `yaml:"trust_forwarded_for"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	Log               logConfig     `yaml:"log"`
	SMTP              notify.Config `yaml:"smtp"`
	OTel              otelConfig    `yaml:"otel"`
}

// otelConfig turns on the OpenTelemetry meter. Collected points are written to the log
// every Interval.
type otelConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

type logConfig struct {
	Format string `yaml:"format"`
	Level  string `yaml:"level"`
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		Listen:          ":8080",
		RedisAddr:       "localhost:6379",
		ShutdownTimeout: 15 * time.Second,
		Log:             logConfig{Format: "json", Level: "info"},
		OTel:            otelConfig{Interval: time.Minute},
	}
}

func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read %s: %w", path, err)
		}
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	applyServerEnv(&cfg, os.LookupEnv)

	if cfg.DatabaseDSN == "" {
		return cfg, errors.New("database_dsn or DATABASE_DSN is required")
	}
	if cfg.OTel.Enabled && cfg.OTel.Interval <= 0 {
		return cfg, errors.New("otel.interval must be positive")
	}
	return cfg, nil
}

func applyServerEnv(cfg *serverConfig, lookup func(string) (string, bool)) {
	if v, ok := lookup("DATABASE_DSN"); ok {
		cfg.DatabaseDSN = v
	}
	if v, ok := lookup("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := lookup("LISTEN_ADDR"); ok {
		cfg.Listen = v
	}
	if v, ok := lookup("SMTP_PASSWORD"); ok {
		cfg.SMTP.Password = v
	}
}

func newLogger(cfg logConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
