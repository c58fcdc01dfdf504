package readiness

import (
	"context"
	"errors"
	"fmt"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/lifecycle"
)

// ErrContainerNotFound is returned by ContainerResult.Err when a service never got a container.
var ErrContainerNotFound = errors.New("container not found")

// ContainerLocator is the part of lifecycle.Cluster that ResolveContainer needs.
type ContainerLocator interface {
	ContainerID(ctx context.Context, service string) (string, error)
}

// HealthReporter is the part of lifecycle.Cluster that HealthSource needs.
type HealthReporter interface {
	Health(ctx context.Context, containerID string) (string, error)
}

// ContainerResult is the result of ResolveContainer.
type ContainerResult struct {
	Service string
	ID      string
	Outcome Outcome[string]
}

// Err returns nil if a container was found, or an error wrapping ErrContainerNotFound.
func (c ContainerResult) Err() error {
	if c.ID != "" {
		return nil
	}
	return fmt.Errorf("%w for service %q: %s", ErrContainerNotFound, c.Service, c.Outcome.Err())
}

// ResolveContainer waits until the service has a container and returns its ID. An empty answer
// and a failed query look the same here: both mean "not yet", and only the deadline tells them
// apart from a service that will never start.
func ResolveContainer(
	ctx context.Context,
	locator ContainerLocator,
	service string,
	policy Policy,
	logger framework.Logger,
	options ...PollOption,
) ContainerResult {
	logger = framework.OrNull(logger)
	source := SourceFunc[string](func(ctx context.Context) (string, error) {
		return locator.ContainerID(ctx, service)
	})
	outcome := Poll[string](ctx, policy, source, NonEmptyString(), append(options, WithLogger(logger))...)
	if outcome.Matched() {
		logger.Printf("service named '%s' is hosted in container: '%s'", service, outcome.Value)
		return ContainerResult{Service: service, ID: outcome.Value, Outcome: outcome}
	}
	logger.Printf("cluster never started a service named '%s'", service)
	return ContainerResult{Service: service, Outcome: outcome}
}

// HealthSource reads the health indicator of a container. It does not retry; a container
// without a health check is reported as a Permanent error since its state cannot change.
func HealthSource(reporter HealthReporter, containerID string, logger framework.Logger) StateSource[string] {
	logger = framework.OrNull(logger)
	return SourceFunc[string](func(ctx context.Context) (string, error) {
		status, err := reporter.Health(ctx, containerID)
		if err != nil {
			logger.Printf("failed to query health status of %s: %s", containerID, err)
			if errors.Is(err, lifecycle.ErrNoHealthCheck) {
				return "", Permanent(err)
			}
			return "", err
		}
		logger.Printf("queried health status of %s: %s", containerID, status)
		return status, nil
	})
}
