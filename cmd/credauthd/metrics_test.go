package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/password"
	"github.com/MrEthical07/credAuth/userstore/memory"
)

func testEngine(t *testing.T) *credAuth.Engine {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := credAuth.DefaultConfig()
	cfg.JWT.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Password.Base = password.Config{Memory: 8192, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Password.Strong = password.Config{Memory: 8192, Time: 2, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	cfg.Metrics.Enabled = true

	engine, err := credAuth.New().WithConfig(cfg).WithRedis(rdb).WithUserStore(memory.New()).Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(func() {
		_ = engine.Close(context.Background())
		_ = rdb.Close()
	})
	return engine
}

func TestStartOTelFlushesToLogOnStop(t *testing.T) {
	engine := testEngine(t)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	stop, err := startOTel(otelConfig{Enabled: true, Interval: time.Hour}, engine, logger)
	if err != nil {
		t.Fatalf("startOTel: %v", err)
	}
	if err := stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if !strings.Contains(buf.String(), `"credauth_login_success_total":0`) {
		t.Fatalf("expected engine counters in the final flush, got %s", buf.String())
	}
}

func TestStartOTelDisabledIsNoop(t *testing.T) {
	var buf bytes.Buffer
	stop, err := startOTel(otelConfig{}, nil, slog.New(slog.NewJSONHandler(&buf, nil)))
	if err != nil {
		t.Fatalf("startOTel: %v", err)
	}
	if err := stop(context.Background()); err != nil || buf.Len() != 0 {
		t.Fatalf("expected nothing written, got %q (%v)", buf.String(), err)
	}
}
