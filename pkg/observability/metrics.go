package observability

import (
	"context"
	"fmt"
	"time"

	otelruntime "go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/core/config"
	"github.com/Sokol111/avropipe/pkg/core/health"
)

type providerParams struct {
	fx.In
	Lc        fx.Lifecycle
	Log       *zap.Logger
	Cfg       Config
	AppCfg    config.AppConfig
	Readiness health.ComponentManager
}

func newMeterProvider(ctx context.Context, endpoint string, interval time.Duration, appCfg config.AppConfig) (*sdkmetric.MeterProvider, error) {
	res, err := NewResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}

	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	return sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	), nil
}

func provideMeterProvider(p providerParams) (metric.MeterProvider, error) {
	if !p.Cfg.Metrics.Enabled {
		p.Log.Debug("metrics: disabled")
		return noop.NewMeterProvider(), nil
	}

	provider, err := newMeterProvider(context.Background(), p.Cfg.OtelCollectorEndpoint, p.Cfg.Metrics.Interval, p.AppCfg)
	if err != nil {
		return nil, err
	}

	markReady := p.Readiness.AddComponent(MetricsComponentName)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetMeterProvider(provider)
			if err := otelruntime.Start(
				otelruntime.WithMeterProvider(provider),
				otelruntime.WithMinimumReadMemStatsInterval(DefaultRuntimeStatsInterval),
			); err != nil {
				return fmt.Errorf("failed to start runtime metrics: %w", err)
			}
			p.Log.Info("metrics initialized",
				zap.String("endpoint", p.Cfg.OtelCollectorEndpoint),
				zap.Duration("interval", p.Cfg.Metrics.Interval),
			)
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
			defer cancel()
			return provider.Shutdown(ctx)
		},
	})

	return provider, nil
}
