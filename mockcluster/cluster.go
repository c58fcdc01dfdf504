package mockcluster

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pupperware/cluster-harness/framework/harness"
	"github.com/pupperware/cluster-harness/lifecycle"
)

// Call is a record of one operation on a Cluster.
type Call struct {
	Op   string
	Args []string
}

func (c Call) String() string {
	return strings.TrimSpace(c.Op + " " + strings.Join(c.Args, " "))
}

// Cluster is a lifecycle.Cluster whose answers are scripted per operation and argument. Anything
// that is not scripted gets a benign default: commands succeed with no output, queries return ""
// and ServiceStatus reports the service as unknown.
type Cluster struct {
	upResult       harness.CommandResult
	downResult     harness.CommandResult
	workloadResult harness.CommandResult
	statuses       map[string]harness.CommandResult
	containerIDs   map[string]*Script[string]
	health         map[string]*Script[string]
	ports          map[string]*Script[string]
	execs          map[string]*Script[harness.CommandResult]
	calls          []Call
	lock           sync.Mutex
}

var _ lifecycle.Cluster = (*Cluster)(nil)

// New creates a Cluster with nothing scripted.
func New() *Cluster {
	return &Cluster{
		statuses:     make(map[string]harness.CommandResult),
		containerIDs: make(map[string]*Script[string]),
		health:       make(map[string]*Script[string]),
		ports:        make(map[string]*Script[string]),
		execs:        make(map[string]*Script[harness.CommandResult]),
	}
}

// Result is a shortcut for a CommandResult.
func Result(output string, exitCode int) harness.CommandResult {
	return harness.CommandResult{Output: output, ExitCode: exitCode}
}

func execKey(service string, args []string) string {
	return service + ": " + strings.Join(args, " ")
}

func portKey(service string, port int) string {
	return service + ":" + strconv.Itoa(port)
}

func (c *Cluster) WithUp(result harness.CommandResult) *Cluster {
	c.upResult = result
	return c
}

func (c *Cluster) WithDown(result harness.CommandResult) *Cluster {
	c.downResult = result
	return c
}

func (c *Cluster) WithWorkloadResult(result harness.CommandResult) *Cluster {
	c.workloadResult = result
	return c
}

// WithServices makes ServiceStatus succeed for each of the services.
func (c *Cluster) WithServices(services ...string) *Cluster {
	for _, s := range services {
		c.statuses[s] = Result(fmt.Sprintf("%s   Up (healthy)", s), 0)
	}
	return c
}

func (c *Cluster) WithServiceStatus(service string, result harness.CommandResult) *Cluster {
	c.statuses[service] = result
	return c
}

func (c *Cluster) WithContainerIDs(service string, script *Script[string]) *Cluster {
	c.containerIDs[service] = script
	return c
}

func (c *Cluster) WithHealth(containerID string, script *Script[string]) *Cluster {
	c.health[containerID] = script
	return c
}

func (c *Cluster) WithPort(service string, port int, script *Script[string]) *Cluster {
	c.ports[portKey(service, port)] = script
	return c
}

// WithExec scripts the results of running exactly this command in the service.
func (c *Cluster) WithExec(script *Script[harness.CommandResult], service string, args ...string) *Cluster {
	c.execs[execKey(service, args)] = script
	return c
}

func (c *Cluster) record(op string, args ...string) {
	c.lock.Lock()
	c.calls = append(c.calls, Call{Op: op, Args: args})
	c.lock.Unlock()
}

// Calls returns every recorded call, or only those of the given operations.
func (c *Cluster) Calls(ops ...string) []Call {
	c.lock.Lock()
	defer c.lock.Unlock()
	var ret []Call
	for _, call := range c.calls {
		if len(ops) == 0 {
			ret = append(ret, call)
			continue
		}
		for _, op := range ops {
			if call.Op == op {
				ret = append(ret, call)
				break
			}
		}
	}
	return ret
}

// CallCount returns how many calls were made to the operation.
func (c *Cluster) CallCount(op string) int {
	return len(c.Calls(op))
}

func (c *Cluster) Up(ctx context.Context) harness.CommandResult {
	c.record("up")
	return c.upResult
}

func (c *Cluster) Down(ctx context.Context) harness.CommandResult {
	c.record("down")
	return c.downResult
}

func (c *Cluster) ServiceStatus(ctx context.Context, service string) harness.CommandResult {
	c.record("ps", service)
	if r, ok := c.statuses[service]; ok {
		return r
	}
	return Result("no such service: "+service, 1)
}

func (c *Cluster) ContainerID(ctx context.Context, service string) (string, error) {
	c.record("container", service)
	if s, ok := c.containerIDs[service]; ok {
		return s.Next()
	}
	return "", nil
}

func (c *Cluster) Health(ctx context.Context, containerID string) (string, error) {
	c.record("health", containerID)
	if s, ok := c.health[containerID]; ok {
		return s.Next()
	}
	return "", fmt.Errorf("no such container: %s", containerID)
}

func (c *Cluster) Port(ctx context.Context, service string, port int) (string, error) {
	c.record("port", service, strconv.Itoa(port))
	if s, ok := c.ports[portKey(service, port)]; ok {
		return s.Next()
	}
	return "", fmt.Errorf("no port %d published for %s", port, service)
}

func (c *Cluster) Exec(ctx context.Context, service string, args ...string) harness.CommandResult {
	c.record("exec", append([]string{service}, args...)...)
	if s, ok := c.execs[execKey(service, args)]; ok {
		result, err := s.Next()
		if err != nil {
			return harness.CommandResult{ExitCode: -1, StartErr: err}
		}
		return result
	}
	return harness.CommandResult{}
}

func (c *Cluster) RunWorkload(ctx context.Context, spec lifecycle.WorkloadSpec) harness.CommandResult {
	c.record("run", spec.Image, spec.Name, spec.Hostname, spec.Network)
	return c.workloadResult
}
