package readiness

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/helpers"
	"github.com/pupperware/cluster-harness/mockcluster"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicies() Policies {
	return Policies{
		Container:      Policy{Name: "container", Interval: time.Millisecond, Timeout: time.Second},
		ServerHealth:   Policy{Name: "server_health", Interval: time.Millisecond, Timeout: time.Second},
		PuppetDBStatus: Policy{Name: "puppetdb_status", Interval: time.Millisecond, Timeout: time.Second},
		Report:         Policy{Name: "agent_report", Interval: time.Millisecond, Timeout: time.Second},
	}
}

// withPuppetDB runs action against a session whose cluster publishes PuppetDB on a test server.
func withPuppetDB(cluster *mockcluster.Cluster, service *mockcluster.PuppetDBService, action func(*Session)) {
	httphelpers.WithServer(service, func(server *httptest.Server) {
		cluster.WithPort(ServicePuppetDB, PuppetDBPort,
			mockcluster.Values(strings.TrimPrefix(server.URL, "http://")))
		action(NewSession(cluster, SessionPolicies(testPolicies())))
	})
}

func TestNodeQueryBody(t *testing.T) {
	body := NodeQueryBody("agent-1.test")
	assert.Equal(t, `{"query":"nodes { certname = \"agent-1.test\" } "}`, string(body))
	helpers.AssertJSONEqual(t, `{"query": "nodes { certname = \"agent-1.test\" } "}`, string(body))
}

func TestParsePuppetDBState(t *testing.T) {
	state, err := parsePuppetDBState([]byte(`{"service_version":"7.0.0","state":"running","status":{"a":[1,2]}}`))
	require.NoError(t, err)
	assert.Equal(t, "running", state)

	state, err = parsePuppetDBState([]byte(`{"state":null}`))
	require.NoError(t, err)
	assert.Equal(t, "", state)

	_, err = parsePuppetDBState([]byte(`<html>Service Unavailable</html>`))
	assert.Error(t, err)

	_, err = parsePuppetDBState([]byte(`["running"]`))
	assert.Error(t, err)
}

func TestParseFirstReportTimestamp(t *testing.T) {
	ts, err := parseFirstReportTimestamp([]byte(`[
		{"certname":"a.test","report_timestamp":"2024-01-01T00:00:00Z","deactivated":null},
		{"certname":"b.test","report_timestamp":"2024-02-02T00:00:00Z"}
	]`))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-01T00:00:00Z", ts)

	ts, err = parseFirstReportTimestamp([]byte(`[]`))
	require.NoError(t, err)
	assert.Equal(t, "", ts)

	ts, err = parseFirstReportTimestamp([]byte(`[{"certname":"a.test","report_timestamp":null}]`))
	require.NoError(t, err)
	assert.Equal(t, "", ts)

	_, err = parseFirstReportTimestamp([]byte(`{"error":"bad query"}`))
	assert.Error(t, err)
}

func TestAwaitPuppetDBSurvivesMalformedStatus(t *testing.T) {
	service := mockcluster.NewPuppetDBService(nil).WithStatuses(
		mockcluster.JSONResponse(""),
		mockcluster.StatusResponse("initializing"),
		mockcluster.Response{Status: 503, Body: "<html>Service Unavailable</html>"},
		mockcluster.StatusResponse("running"),
	)
	var logger framework.CapturingLogger
	withPuppetDB(mockcluster.New(), service, func(s *Session) {
		outcome := s.AwaitPuppetDB(context.Background(), &logger)

		require.True(t, outcome.Matched(), outcome.Err())
		assert.Equal(t, "running", outcome.Result())
		assert.Equal(t, 4, outcome.Probes)
		assert.Error(t, outcome.LastErr)
	})
	assert.Contains(t, messages(&logger), `retrieved raw puppetdb status: {"detail_level":"info","service_status_version":1,"service_version":"7.0.0","state":"running","status":{}}`)
}

func TestAwaitPuppetDBTimesOutWithEmptyResult(t *testing.T) {
	service := mockcluster.NewPuppetDBService(nil).WithStatuses(mockcluster.StatusResponse("starting"))
	withPuppetDB(mockcluster.New(), service, func(s *Session) {
		s.Policies.PuppetDBStatus.Timeout = 30 * time.Millisecond
		outcome := s.AwaitPuppetDB(context.Background(), nil)
		assert.Equal(t, StatusTimedOut, outcome.Status)
		assert.Equal(t, "", outcome.Result())
		assert.Equal(t, "starting", outcome.Value)
	})
}

func TestPuppetDBStateSourceReadsStatusFrom503(t *testing.T) {
	service := mockcluster.NewPuppetDBService(nil).WithStatuses(
		mockcluster.Response{Status: 503, Body: `{"state":"starting"}`})
	withPuppetDB(mockcluster.New(), service, func(s *Session) {
		state, err := s.PuppetDBStateSource(nil).Fetch(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "starting", state)
	})
}

func TestPuppetDBStateSourceWithoutPublishedPort(t *testing.T) {
	s := NewSession(mockcluster.New())
	_, err := s.PuppetDBStateSource(nil).Fetch(context.Background())
	assert.Error(t, err)
}

func TestAwaitReportAppendsTimestamp(t *testing.T) {
	service := mockcluster.NewPuppetDBService(nil).WithReports("agent-1.test",
		mockcluster.JSONResponse("[]"),
		mockcluster.Response{Status: 500, Body: "oops"},
		mockcluster.JSONResponse(`[{"report_timestamp": "2024-01-01T00:00:00Z"}]`),
	)
	withPuppetDB(mockcluster.New(), service, func(s *Session) {
		outcome := s.AwaitReport(context.Background(), "agent-1.test", nil)

		require.True(t, outcome.Matched(), outcome.Err())
		assert.Equal(t, "2024-01-01T00:00:00Z", outcome.Result())
		assert.Equal(t, 3, outcome.Probes)
		assert.Equal(t, []string{"2024-01-01T00:00:00Z"}, s.Timestamps.All())
	})
	assert.Equal(t, []string{
		`nodes { certname = "agent-1.test" } `,
		`nodes { certname = "agent-1.test" } `,
		`nodes { certname = "agent-1.test" } `,
	}, service.Queries())
}

func TestAwaitReportIgnoresAnswersOtherThan200(t *testing.T) {
	service := mockcluster.NewPuppetDBService(nil).WithReports("agent-1.test",
		mockcluster.Response{Status: 202, Body: `[{"report_timestamp": "stale-202"}]`},
		mockcluster.JSONResponse(`[{"report_timestamp": "2024-01-01T00:00:00Z"}]`),
	)
	withPuppetDB(mockcluster.New(), service, func(s *Session) {
		outcome := s.AwaitReport(context.Background(), "agent-1.test", nil)

		require.True(t, outcome.Matched(), outcome.Err())
		assert.Equal(t, "2024-01-01T00:00:00Z", outcome.Result())
		assert.Equal(t, 2, outcome.Probes)
		assert.Equal(t, []string{"2024-01-01T00:00:00Z"}, s.Timestamps.All())
	})
}

func TestAwaitReportTimesOutWithoutAppending(t *testing.T) {
	service := mockcluster.NewPuppetDBService(nil)
	withPuppetDB(mockcluster.New(), service, func(s *Session) {
		s.Policies.Report.Timeout = 30 * time.Millisecond
		outcome := s.AwaitReport(context.Background(), "agent-1.test", nil)

		assert.Equal(t, StatusTimedOut, outcome.Status)
		assert.Equal(t, "", outcome.Result())
		assert.Equal(t, 0, s.Timestamps.Len())
	})
}
