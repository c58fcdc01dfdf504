// Package lifecycle starts, stops and queries the containers of the cluster under test.
//
// Cluster is the only way the rest of the harness touches containers. ComposeCLI drives
// everything through the compose command line, the same way an operator would; DockerCluster
// answers queries through the Docker Engine API and only shells out for whole-project operations.
package lifecycle

import (
	"context"
	"errors"

	"github.com/pupperware/cluster-harness/framework/harness"
)

var (
	// ErrServiceNotFound is returned when the compose project has no container for a service.
	ErrServiceNotFound = errors.New("service not found")

	// ErrNoHealthCheck is returned by Health when the container does not define a health check,
	// so its health will never change.
	ErrNoHealthCheck = errors.New("container has no health check")
)

// WorkloadSpec describes a short-lived container to run alongside the cluster.
type WorkloadSpec struct {
	Image    string
	Name     string
	Hostname string
	Network  string
}

// Cluster is the set of lifecycle and query operations that the cluster tests need. Every
// operation blocks until it is complete; none of them retry.
type Cluster interface {
	// Up starts every service of the project in the background.
	Up(ctx context.Context) harness.CommandResult

	// Down stops the project and removes its containers and volumes.
	Down(ctx context.Context) harness.CommandResult

	// ServiceStatus queries the presence of a service. A non-zero exit code means that it is not
	// known to the project.
	ServiceStatus(ctx context.Context, service string) harness.CommandResult

	// ContainerID returns the ID of the container currently hosting the service, or "" if there is
	// none yet.
	ContainerID(ctx context.Context, service string) (string, error)

	// Health returns the health indicator of a container, such as "starting" or "healthy".
	Health(ctx context.Context, containerID string) (string, error)

	// Port returns the published "host:port" address of a container port of a service.
	Port(ctx context.Context, service string, port int) (string, error)

	// Exec runs a command inside the container of a service, without a TTY.
	Exec(ctx context.Context, service string, args ...string) harness.CommandResult

	// RunWorkload runs a container to completion and removes it.
	RunWorkload(ctx context.Context, spec WorkloadSpec) harness.CommandResult
}
