package readiness

import (
	"net/http"
	"time"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/lifecycle"
)

const defaultHTTPTimeout = 10 * time.Second

// Session is the state shared by the checks of one test run. Nothing in it outlives the run.
type Session struct {
	Cluster    lifecycle.Cluster
	Endpoints  *EndpointResolver
	Timestamps *TimestampLog
	Metrics    *Metrics
	HTTPClient *http.Client
	Policies   Policies
	Logger     framework.Logger
}

// SessionOption is an optional setting for NewSession.
type SessionOption func(*Session)

// SessionHTTPClient sets the client used for PuppetDB requests.
func SessionHTTPClient(client *http.Client) SessionOption {
	return func(s *Session) { s.HTTPClient = client }
}

// SessionPolicies replaces the timeout policy table.
func SessionPolicies(policies Policies) SessionOption {
	return func(s *Session) { s.Policies = policies }
}

// SessionLogger sets the logger for output that does not belong to any one test.
func SessionLogger(logger framework.Logger) SessionOption {
	return func(s *Session) { s.Logger = logger }
}

// SessionMetrics replaces the session's metrics.
func SessionMetrics(metrics *Metrics) SessionOption {
	return func(s *Session) { s.Metrics = metrics }
}

// NewSession creates a Session for the cluster with an empty endpoint cache and timestamp log.
func NewSession(cluster lifecycle.Cluster, options ...SessionOption) *Session {
	s := &Session{
		Cluster:    cluster,
		Endpoints:  NewEndpointResolver(cluster),
		Timestamps: &TimestampLog{},
		Metrics:    NewMetrics(),
		HTTPClient: &http.Client{Timeout: defaultHTTPTimeout},
		Policies:   DefaultPolicies(),
		Logger:     framework.NullLogger(),
	}
	for _, option := range options {
		option(s)
	}
	s.Logger = framework.OrNull(s.Logger)
	return s
}

func (s *Session) pollOptions(logger framework.Logger) []PollOption {
	return []PollOption{WithLogger(framework.OrNull(logger)), WithMetrics(s.Metrics)}
}
