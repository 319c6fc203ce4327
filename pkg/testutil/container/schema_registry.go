package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const defaultRegistryImage = "redpandadata/redpanda:v24.1.1"

// SchemaRegistry is a Redpanda container exposing its schema registry.
type SchemaRegistry struct {
	container testcontainers.Container
	URL       string
}

// StartSchemaRegistry starts Redpanda in dev mode and waits until the
// registry lists subjects.
func StartSchemaRegistry(ctx context.Context) (*SchemaRegistry, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        defaultRegistryImage,
			ExposedPorts: []string{"8081/tcp"},
			Cmd: []string{
				"redpanda", "start",
				"--mode", "dev-container",
				"--smp", "1",
				"--memory", "512M",
				"--overprovisioned",
				"--schema-registry-addr", "0.0.0.0:8081",
			},
			WaitingFor: wait.ForHTTP("/subjects").
				WithPort("8081/tcp").
				WithStatusCodeMatcher(func(status int) bool { return status == http.StatusOK }).
				WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redpanda container: %w", err)
	}
	r := &SchemaRegistry{container: c}

	endpoint, err := c.PortEndpoint(ctx, "8081/tcp", "http")
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to get schema registry endpoint: %w", err), r.Terminate(ctx))
	}
	r.URL = endpoint
	return r, nil
}

func (r *SchemaRegistry) Terminate(context.Context) error {
	if err := testcontainers.TerminateContainer(r.container); err != nil {
		return fmt.Errorf("failed to terminate redpanda container: %w", err)
	}
	return nil
}
