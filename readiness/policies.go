package readiness

import "time"

// Policies is the timeout policy table: one fixed schedule per kind of poll.
type Policies struct {
	// Container is used while waiting for a service to have a container at all.
	Container Policy

	// ServerHealth is used while waiting for the server's health check to leave "starting".
	ServerHealth Policy

	// PuppetDBStatus is used while waiting for PuppetDB to report that it is running.
	PuppetDBStatus Policy

	// Report is used while waiting for an agent's report to show up in PuppetDB.
	Report Policy
}

// DefaultPolicies returns the schedules used for a real cluster.
//
// The server's own health check decides when it stops "starting"; ServerHealth only guarantees
// that a health check which never settles cannot hang the run.
func DefaultPolicies() Policies {
	return Policies{
		Container:      Policy{Name: "container", Interval: time.Second, Timeout: 120 * time.Second},
		ServerHealth:   Policy{Name: "server_health", Interval: time.Second, Timeout: 600 * time.Second},
		PuppetDBStatus: Policy{Name: "puppetdb_status", Interval: time.Second, Timeout: 240 * time.Second},
		Report:         Policy{Name: "agent_report", Interval: time.Second, Timeout: 120 * time.Second},
	}
}
