package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"

	"github.com/Sokol111/avropipe/pkg/core/config"
)

// NewResource describes this process to the collector.
func NewResource(ctx context.Context, appCfg config.AppConfig) (*resource.Resource, error) {
	res, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithHost(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(appCfg.ServiceName),
			semconv.ServiceVersionKey.String(appCfg.ServiceVersion),
			semconv.DeploymentEnvironmentNameKey.String(appCfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build otel resource: %w", err)
	}
	return res, nil
}
