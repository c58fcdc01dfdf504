package lifecycle

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"sort"
	"strings"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/harness"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	dockerfilters "github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/docker/go-connections/nat"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Labels that compose puts on every container it creates.
const (
	LabelProject = "com.docker.compose.project"
	LabelService = "com.docker.compose.service"
	LabelOneOff  = "com.docker.compose.oneoff"
)

// DockerAPI is the subset of the Docker Engine client used by DockerCluster.
type DockerAPI interface {
	ContainerList(ctx context.Context, options container.ListOptions) ([]container.Summary, error)
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig,
		networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerWait(ctx context.Context, containerID string, condition container.WaitCondition) (<-chan container.WaitResponse, <-chan error)
	ContainerLogs(ctx context.Context, containerID string, options container.LogsOptions) (io.ReadCloser, error)
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
}

// DockerCluster answers queries about the project's containers through the Docker Engine API.
// Operations on the whole project go through the compose command line.
type DockerCluster struct {
	api     DockerAPI
	compose *ComposeCLI
	project string
	logger  framework.Logger
}

// NewDockerClient connects to the Docker daemon configured by the environment.
func NewDockerClient() (*client.Client, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return cli, nil
}

// NewDockerCluster returns a DockerCluster for the named compose project.
func NewDockerCluster(api DockerAPI, compose *ComposeCLI, project string, logger framework.Logger) *DockerCluster {
	return &DockerCluster{api: api, compose: compose, project: project, logger: framework.OrNull(logger)}
}

func (d *DockerCluster) Up(ctx context.Context) harness.CommandResult {
	return d.compose.Up(ctx)
}

func (d *DockerCluster) Down(ctx context.Context) harness.CommandResult {
	return d.compose.Down(ctx)
}

func (d *DockerCluster) ServiceStatus(ctx context.Context, service string) harness.CommandResult {
	return d.compose.ServiceStatus(ctx, service)
}

func serviceFilters(project, service string) dockerfilters.Args {
	filters := dockerfilters.NewArgs()
	filters.Add("label", LabelProject+"="+project)
	filters.Add("label", LabelService+"="+service)
	filters.Add("label", LabelOneOff+"=False")
	return filters
}

func (d *DockerCluster) ContainerID(ctx context.Context, service string) (string, error) {
	containers, err := d.api.ContainerList(ctx, container.ListOptions{Filters: serviceFilters(d.project, service)})
	if err != nil {
		return "", fmt.Errorf("list containers of %s: %w", service, err)
	}
	if len(containers) == 0 {
		return "", nil
	}
	sort.Slice(containers, func(i, j int) bool { return containers[i].Created > containers[j].Created })
	return containers[0].ID, nil
}

func (d *DockerCluster) Health(ctx context.Context, containerID string) (string, error) {
	info, err := d.api.ContainerInspect(ctx, containerID)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", fmt.Errorf("container %s: %w", containerID, ErrServiceNotFound)
		}
		return "", fmt.Errorf("inspect container %s: %w", containerID, err)
	}
	if info.ContainerJSONBase == nil || info.State == nil || info.State.Health == nil {
		return "", ErrNoHealthCheck
	}
	return info.State.Health.Status, nil
}

func (d *DockerCluster) Port(ctx context.Context, service string, port int) (string, error) {
	id, err := d.ContainerID(ctx, service)
	if err != nil {
		return "", err
	}
	if id == "" {
		return "", fmt.Errorf("no container for %s: %w", service, ErrServiceNotFound)
	}
	info, err := d.api.ContainerInspect(ctx, id)
	if err != nil {
		return "", fmt.Errorf("inspect container %s: %w", id, err)
	}
	if info.NetworkSettings == nil {
		return "", fmt.Errorf("container %s has no network settings", id)
	}
	return publishedAddress(info.NetworkSettings.Ports, port)
}

func publishedAddress(ports nat.PortMap, port int) (string, error) {
	key, err := nat.NewPort("tcp", fmt.Sprint(port))
	if err != nil {
		return "", err
	}
	bindings := ports[key]
	for _, b := range bindings {
		if b.HostPort != "" {
			return net.JoinHostPort(b.HostIP, b.HostPort), nil
		}
	}
	return "", fmt.Errorf("port %s is not published: %w", key, ErrServiceNotFound)
}

func (d *DockerCluster) Exec(ctx context.Context, service string, args ...string) harness.CommandResult {
	if len(args) != 0 {
		d.logger.Printf("running command in %s: %s", service, harness.FormatCommand(args[0], args[1:]...))
	}
	id, err := d.ContainerID(ctx, service)
	if err != nil {
		return failedToStart(err)
	}
	if id == "" {
		return failedToStart(fmt.Errorf("no container for %s: %w", service, ErrServiceNotFound))
	}
	created, err := d.api.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          args,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return failedToStart(fmt.Errorf("create exec in %s: %w", service, err))
	}
	attach, err := d.api.ContainerExecAttach(ctx, created.ID, container.ExecAttachOptions{})
	if err != nil {
		return failedToStart(fmt.Errorf("attach exec in %s: %w", service, err))
	}
	defer attach.Close()

	var output bytes.Buffer
	if _, err := stdcopy.StdCopy(&output, &output, attach.Reader); err != nil {
		return failedToStart(fmt.Errorf("read exec output in %s: %w", service, err))
	}
	inspect, err := d.api.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return failedToStart(fmt.Errorf("inspect exec in %s: %w", service, err))
	}
	return harness.CommandResult{Output: trimOutput(output.String()), ExitCode: inspect.ExitCode}
}

func (d *DockerCluster) RunWorkload(ctx context.Context, spec WorkloadSpec) harness.CommandResult {
	d.logger.Printf("running container %s from image %s", spec.Name, spec.Image)
	id, err := d.createWorkload(ctx, spec)
	if err != nil {
		return failedToStart(err)
	}
	defer func() {
		err := d.api.ContainerRemove(context.WithoutCancel(ctx), id, container.RemoveOptions{Force: true})
		if err != nil && !errdefs.IsNotFound(err) {
			d.logger.Printf("could not remove container %s: %s", id, err)
		}
	}()

	waitCh, errCh := d.api.ContainerWait(ctx, id, container.WaitConditionNextExit)
	if err := d.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return failedToStart(fmt.Errorf("start container %s: %w", spec.Name, err))
	}

	var exitCode int
	select {
	case resp := <-waitCh:
		exitCode = int(resp.StatusCode)
		if resp.Error != nil && resp.Error.Message != "" {
			return failedToStart(fmt.Errorf("wait for container %s: %s", spec.Name, resp.Error.Message))
		}
	case err := <-errCh:
		return failedToStart(fmt.Errorf("wait for container %s: %w", spec.Name, err))
	case <-ctx.Done():
		return failedToStart(ctx.Err())
	}

	logs, err := d.api.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return harness.CommandResult{ExitCode: exitCode, Output: fmt.Sprintf("could not read logs: %s", err)}
	}
	defer logs.Close()
	var output bytes.Buffer
	_, _ = stdcopy.StdCopy(&output, &output, logs)
	return harness.CommandResult{Output: trimOutput(output.String()), ExitCode: exitCode}
}

func (d *DockerCluster) createWorkload(ctx context.Context, spec WorkloadSpec) (string, error) {
	config := &container.Config{
		Image:    spec.Image,
		Hostname: workloadHostname(spec),
	}
	hostConfig := &container.HostConfig{
		NetworkMode: container.NetworkMode(spec.Network),
	}
	create := func() (container.CreateResponse, error) {
		return d.api.ContainerCreate(ctx, config, hostConfig, nil, (*ocispec.Platform)(nil), spec.Name)
	}
	resp, err := create()
	if errdefs.IsNotFound(err) {
		if err := d.pullImage(ctx, spec.Image); err != nil {
			return "", err
		}
		resp, err = create()
	}
	if err != nil {
		return "", fmt.Errorf("create container %s: %w", spec.Name, err)
	}
	return resp.ID, nil
}

func (d *DockerCluster) pullImage(ctx context.Context, ref string) error {
	d.logger.Printf("pulling image %s", ref)
	pull, err := d.api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", ref, err)
	}
	defer pull.Close()
	if _, err := io.Copy(io.Discard, pull); err != nil {
		return fmt.Errorf("pull image %q: %w", ref, err)
	}
	return nil
}

func failedToStart(err error) harness.CommandResult {
	return harness.CommandResult{ExitCode: -1, StartErr: err}
}

func trimOutput(s string) string {
	return strings.TrimRight(s, " \t\r\n")
}

var _ Cluster = (*DockerCluster)(nil)
