package lifecycle

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pupperware/cluster-harness/framework/harness"
)

// DefaultComposeCommand is the compose command used when none is configured.
const DefaultComposeCommand = "docker-compose"

const healthFormat = "{{if .State.Health}}{{.State.Health.Status}}{{end}}"

// ComposeCLI is a Cluster that runs every operation as a compose or docker command.
type ComposeCLI struct {
	Runner harness.CommandRunner

	// Command is the compose executable and any leading arguments, such as ["docker", "compose"].
	Command []string

	// Docker is the docker executable used for inspect and run; "docker" if empty.
	Docker string

	// File and Project are passed to compose with -f and -p when they are not empty.
	File    string
	Project string
}

// NewComposeCLI returns a ComposeCLI for a command line such as "docker compose".
func NewComposeCLI(runner harness.CommandRunner, composeCommand, file, project string) (*ComposeCLI, error) {
	if composeCommand == "" {
		composeCommand = DefaultComposeCommand
	}
	name, args, err := harness.SplitCommand(composeCommand)
	if err != nil {
		return nil, fmt.Errorf("invalid compose command: %w", err)
	}
	return &ComposeCLI{
		Runner:  runner,
		Command: append([]string{name}, args...),
		File:    file,
		Project: project,
	}, nil
}

func (c *ComposeCLI) docker() string {
	if c.Docker == "" {
		return "docker"
	}
	return c.Docker
}

// compose v2 deprecated --no-ansi in favor of --ansi never.
func (c *ComposeCLI) globalArgs(command []string) []string {
	var args []string
	if command[len(command)-1] == "compose" {
		args = append(args, "--ansi", "never")
	} else {
		args = append(args, "--no-ansi")
	}
	if c.File != "" {
		args = append(args, "-f", c.File)
	}
	if c.Project != "" {
		args = append(args, "-p", c.Project)
	}
	return args
}

func (c *ComposeCLI) compose(ctx context.Context, args ...string) harness.CommandResult {
	command := c.Command
	if len(command) == 0 {
		command = []string{DefaultComposeCommand}
	}
	all := append([]string(nil), command[1:]...)
	all = append(all, c.globalArgs(command)...)
	all = append(all, args...)
	return c.Runner.Run(ctx, command[0], all...)
}

func (c *ComposeCLI) Up(ctx context.Context) harness.CommandResult {
	return c.compose(ctx, "up", "--detach")
}

func (c *ComposeCLI) Down(ctx context.Context) harness.CommandResult {
	return c.compose(ctx, "down", "--volumes")
}

func (c *ComposeCLI) ServiceStatus(ctx context.Context, service string) harness.CommandResult {
	return c.compose(ctx, "ps", service)
}

func (c *ComposeCLI) ContainerID(ctx context.Context, service string) (string, error) {
	result := c.compose(ctx, "ps", "--quiet", service)
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("could not list containers of %s: %w", service, err)
	}
	return firstLine(result.Output), nil
}

func (c *ComposeCLI) Health(ctx context.Context, containerID string) (string, error) {
	result := c.Runner.Run(ctx, c.docker(), "inspect", containerID, "--format", healthFormat)
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("could not inspect container %s: %w", containerID, err)
	}
	return healthStatus(result.Output)
}

func (c *ComposeCLI) Port(ctx context.Context, service string, port int) (string, error) {
	result := c.compose(ctx, "port", service, strconv.Itoa(port))
	if err := result.Err(); err != nil {
		return "", fmt.Errorf("could not find published port %d of %s: %w", port, service, err)
	}
	address := firstLine(result.Output)
	if address == "" {
		return "", fmt.Errorf("port %d of %s is not published: %w", port, service, ErrServiceNotFound)
	}
	return address, nil
}

func (c *ComposeCLI) Exec(ctx context.Context, service string, args ...string) harness.CommandResult {
	return c.compose(ctx, append([]string{"exec", "-T", service}, args...)...)
}

func (c *ComposeCLI) RunWorkload(ctx context.Context, spec WorkloadSpec) harness.CommandResult {
	args := []string{"run", "--rm"}
	if spec.Network != "" {
		args = append(args, "--network", spec.Network)
	}
	if spec.Name != "" {
		args = append(args, "--name", spec.Name)
	}
	if hostname := workloadHostname(spec); hostname != "" {
		args = append(args, "--hostname", hostname)
	}
	args = append(args, spec.Image)
	return c.Runner.Run(ctx, c.docker(), args...)
}

func workloadHostname(spec WorkloadSpec) string {
	if spec.Hostname != "" {
		return spec.Hostname
	}
	return spec.Name
}

// healthStatus interprets the rendered health template. Older docker versions render a missing
// field as "<no value>". Quotes are left in place.
func healthStatus(output string) (string, error) {
	status := strings.TrimSpace(output)
	if status == "" || status == "<no value>" || status == "''" {
		return "", ErrNoHealthCheck
	}
	return status, nil
}

func firstLine(output string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(output), "\n")
	return strings.TrimSpace(line)
}

var _ Cluster = (*ComposeCLI)(nil)
