package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Sokol111/avropipe/pkg/core/config"
)

// newTracerProvider exports spans to endpoint, or keeps them in process
// when endpoint is empty.
func newTracerProvider(ctx context.Context, log *zap.Logger, cfg Config, appCfg config.AppConfig) (*sdktrace.TracerProvider, error) {
	res, err := NewResource(ctx, appCfg)
	if err != nil {
		return nil, err
	}
	sampler := sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Tracing.SampleRatio))

	if cfg.OtelCollectorEndpoint == "" {
		log.Info("tracing: no collector endpoint, running in local mode")
		return sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sampler),
			sdktrace.WithResource(res),
		), nil
	}

	exp, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(cfg.OtelCollectorEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sampler),
		sdktrace.WithResource(res),
	), nil
}

func provideTracerProvider(p providerParams) (trace.TracerProvider, error) {
	if !p.Cfg.Tracing.Enabled {
		p.Log.Debug("tracing: disabled")
		return noop.NewTracerProvider(), nil
	}

	tp, err := newTracerProvider(context.Background(), p.Log, p.Cfg, p.AppCfg)
	if err != nil {
		return nil, err
	}

	markReady := p.Readiness.AddComponent(TracingComponentName)
	p.Lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			otel.SetTracerProvider(tp)
			otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
				propagation.TraceContext{},
				propagation.Baggage{},
			))
			p.Log.Info("tracing initialized", zap.String("endpoint", p.Cfg.OtelCollectorEndpoint))
			markReady()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
			defer cancel()
			return tp.Shutdown(ctx)
		},
	})

	return tp, nil
}

// TraceFields returns trace_id and span_id fields for the span in ctx, or
// nothing when ctx carries no valid span.
func TraceFields(ctx context.Context) []zap.Field {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
