// Command credauthd serves the credAuth HTTP API backed by Postgres, Redis and SMTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/internal/httpapi"
	"github.com/MrEthical07/credAuth/metrics/export/prometheus"
	"github.com/MrEthical07/credAuth/notify"
	"github.com/MrEthical07/credAuth/userstore/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to the daemon YAML config")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "credauthd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := loadServerConfig(configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	engineCfg := credAuth.DefaultConfig()
	credAuth.ApplyEnv(&engineCfg, os.LookupEnv)
	if cfg.EngineConfig != "" {
		engineCfg, err = credAuth.LoadConfigFile(cfg.EngineConfig)
		if err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := postgres.Open(openCtx, cfg.DatabaseDSN)
	cancel()
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer store.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
	}

	builder := credAuth.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserStore(store).
		WithLogger(logger).
		WithAuditSink(credAuth.NewSlogSink(logger.With("component", "audit")))
	if cfg.SMTP.Host != "" {
		builder = builder.WithNotifier(notify.NewMailer(cfg.SMTP))
	} else {
		logger.Warn("credauthd: smtp host not set, alerts and welcome mail are disabled")
	}

	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	stopOTel, err := startOTel(cfg.OTel, engine, logger.With("component", "metrics"))
	if err != nil {
		return fmt.Errorf("start otel: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := httpapi.NewRouter(engine, httpapi.Options{
		Logger:            logger,
		Metrics:           prometheus.NewPrometheusExporter(engine).Handler(),
		TrustForwardedFor: cfg.TrustForwardedFor,
	})

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("credauthd: listening", "addr", cfg.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("credauthd: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("credauthd: http shutdown", "error", err)
	}
	if err := stopOTel(shutdownCtx); err != nil {
		logger.Error("credauthd: otel shutdown", "error", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Error("credauthd: engine close", "error", err)
	}
	return nil
}
