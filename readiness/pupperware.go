package readiness

import (
	"context"
	"regexp"
	"strings"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/harness"
	"github.com/pupperware/cluster-harness/lifecycle"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

// Service names of the cluster under test.
const (
	ServicePuppet   = "puppet"
	ServicePuppetDB = "puppetdb"
	ServicePostgres = "postgres"
)

// CoreServices are the services that must be present once the cluster is up.
var CoreServices = []string{ServicePuppet, ServicePuppetDB, ServicePostgres} //nolint:gochecknoglobals

var (
	// HealthyPattern accepts a healthy server, with or without quotes around the value.
	HealthyPattern = regexp.MustCompile(`^'?healthy'?$`) //nolint:gochecknoglobals

	// PgTrgmPattern and PgCryptoPattern find an extension's row in psql's pg_extension table.
	PgTrgmPattern   = regexp.MustCompile(`(?m)^\s+pg_trgm\s+`)  //nolint:gochecknoglobals
	PgCryptoPattern = regexp.MustCompile(`(?m)^\s+pgcrypto\s+`) //nolint:gochecknoglobals
)

// BringUp starts the whole cluster.
func (s *Session) BringUp(ctx context.Context, logger framework.Logger) harness.CommandResult {
	result := s.Cluster.Up(ctx)
	framework.OrNull(logger).Printf("started cluster, exit status %d", result.ExitCode)
	return result
}

// ServicePresent queries whether the cluster knows the service.
func (s *Session) ServicePresent(ctx context.Context, service string, logger framework.Logger) harness.CommandResult {
	result := s.Cluster.ServiceStatus(ctx, service)
	framework.OrNull(logger).Printf("status of service %s (exit status %d):\n%s", service, result.ExitCode, result.Output)
	return result
}

// ServerHealthResult is the result of AwaitServerHealth.
type ServerHealthResult struct {
	Container ContainerResult

	// Health is the health poll; it is the zero Outcome if no container was found.
	Health Outcome[string]

	// Correction is the result of the configuration command that follows a settled health
	// check. It is the zero CommandResult if the command was not run.
	Correction harness.CommandResult
	Corrected  bool
}

// Status returns the last health value seen, or "" if there was none.
func (r ServerHealthResult) Status() string {
	return r.Health.Value
}

// AwaitServerHealth waits for the server container to exist and for its health check to stop
// reporting "starting", then points the server's own agent configuration at the "puppet" service
// name. That command is run once, and only when the health check has settled; it works around
// the server image defaulting to its container hostname (SERVER-2354).
func (s *Session) AwaitServerHealth(ctx context.Context, logger framework.Logger) ServerHealthResult {
	var ret ServerHealthResult
	ret.Container = ResolveContainer(ctx, s.Cluster, ServicePuppet, s.Policies.Container, logger, WithMetrics(s.Metrics))
	if ret.Container.ID == "" {
		return ret
	}
	ret.Health = Poll[string](ctx, s.Policies.ServerHealth, HealthSource(s.Cluster, ret.Container.ID, logger),
		notStarting(), s.pollOptions(logger)...)
	if !ret.Health.Matched() {
		return ret
	}
	ret.Correction = s.Cluster.Exec(ctx, ServicePuppet, "puppet", "config", "set", "server", "puppet")
	ret.Corrected = true
	if !ret.Correction.Succeeded() {
		framework.OrNull(logger).Printf("setting server name failed: %s", ret.Correction.Err())
	}
	return ret
}

// AwaitPuppetDB waits for PuppetDB to report that it is running. On timeout the outcome's Result
// is "".
func (s *Session) AwaitPuppetDB(ctx context.Context, logger framework.Logger) Outcome[string] {
	outcome := Poll[string](ctx, s.Policies.PuppetDBStatus, s.PuppetDBStateSource(logger),
		m.Equal(PuppetDBRunning), s.pollOptions(logger)...)
	if outcome.Status == StatusTimedOut {
		framework.OrNull(logger).Printf("puppetdb never entered running state")
	}
	return outcome
}

// PostgresExtensions lists the installed extensions as psql prints them.
func (s *Session) PostgresExtensions(ctx context.Context, logger framework.Logger) harness.CommandResult {
	result := s.Cluster.Exec(ctx, ServicePostgres,
		"psql", "--username=puppetdb", "--command=SELECT * FROM pg_extension")
	framework.OrNull(logger).Printf("retrieved extensions: %s", result.Output)
	return result
}

// RunAgent runs the agent image as a container named and hostnamed agentName.
func (s *Session) RunAgent(ctx context.Context, image, agentName, network string, logger framework.Logger) harness.CommandResult {
	result := s.Cluster.RunWorkload(ctx, lifecycle.WorkloadSpec{
		Image:    image,
		Name:     agentName,
		Hostname: agentName,
		Network:  network,
	})
	framework.OrNull(logger).Printf("agent %s exited with status %d:\n%s", agentName, result.ExitCode, result.Output)
	return result
}

// Domain asks the server for its domain fact, which agents on the same network share.
func (s *Session) Domain(ctx context.Context, logger framework.Logger) (string, harness.CommandResult) {
	result := s.Cluster.Exec(ctx, ServicePuppet, "facter", "domain")
	domain := strings.TrimSpace(result.Output)
	if !result.Succeeded() {
		domain = ""
	}
	framework.OrNull(logger).Printf("server domain is %q", domain)
	return domain, result
}

// Certname is the certificate name that an agent with the given hostname gets in the domain.
func Certname(agentName, domain string) string {
	if domain == "" {
		return agentName
	}
	return agentName + "." + domain
}

// AwaitReport waits for PuppetDB to have a report from the node and appends its timestamp to the
// session's timestamp log. On timeout the outcome's Result is "".
func (s *Session) AwaitReport(ctx context.Context, certname string, logger framework.Logger) Outcome[string] {
	outcome := Poll[string](ctx, s.Policies.Report, s.ReportTimestampSource(certname, logger),
		NonEmptyString(), s.pollOptions(logger)...)
	if outcome.Matched() {
		s.Timestamps.Append(outcome.Value)
	} else {
		framework.OrNull(logger).Printf("failed to retrieve report for %s: %s", certname, outcome.Err())
	}
	return outcome
}

// CleanCertificate revokes and deletes the certificate of an agent on the server's CA.
func (s *Session) CleanCertificate(ctx context.Context, certname string, logger framework.Logger) harness.CommandResult {
	framework.OrNull(logger).Printf("cleaning cert for %s", certname)
	return s.Cluster.Exec(ctx, ServicePuppet, "puppetserver", "ca", "clean", "--certname", certname)
}
