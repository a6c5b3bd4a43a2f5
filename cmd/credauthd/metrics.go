package main

import (
	"context"
	"errors"
	"log/slog"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	credAuth "github.com/MrEthical07/credAuth"
	"github.com/MrEthical07/credAuth/metrics/export/otel"
)

// startOTel builds a meter provider that periodically writes engine metrics to logger.
// The returned stop func unregisters the exporter and flushes the provider.
func startOTel(cfg otelConfig, engine *credAuth.Engine, logger *slog.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	reader := sdkmetric.NewPeriodicReader(otel.NewLogExporter(logger), sdkmetric.WithInterval(cfg.Interval))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	exporter, err := otel.New(provider.Meter("github.com/MrEthical07/credAuth"), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(provider.Shutdown(ctx), exporter.Close())
	}, nil
}
