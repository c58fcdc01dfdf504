package readiness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/framework/harness"
	"github.com/pupperware/cluster-harness/framework/helpers"

	"github.com/launchdarkly/go-jsonstream/v3/jreader"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

const (
	// PuppetDBPort is the container port of the PuppetDB HTTP API.
	PuppetDBPort = 8080

	// PuppetDBStatusPath is the status endpoint of the PuppetDB service itself.
	PuppetDBStatusPath = "/status/v1/services/puppetdb-status"

	// PuppetDBQueryPath is the PQL query endpoint.
	PuppetDBQueryPath = "/pdb/query/v4"

	// PuppetDBRunning is the state that PuppetDB reports once it accepts queries and commands.
	PuppetDBRunning = "running"
)

func (s *Session) puppetDBURL(ctx context.Context, path string, logger framework.Logger) (*url.URL, error) {
	base, err := s.Endpoints.Resolve(ctx, ServicePuppetDB, PuppetDBPort, logger)
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(&url.URL{Path: path}), nil
}

// PuppetDBStateSource reads the "state" field of PuppetDB's status. An empty body is an empty
// reading. Failures to resolve the endpoint, connect, or parse the body are transient errors.
func (s *Session) PuppetDBStateSource(logger framework.Logger) StateSource[string] {
	logger = framework.OrNull(logger)
	return SourceFunc[string](func(ctx context.Context) (string, error) {
		target, err := s.puppetDBURL(ctx, PuppetDBStatusPath, logger)
		if err != nil {
			logger.Printf("failure querying puppetdb status: %s", err)
			return "", err
		}
		body, _, err := harness.DoRequest(ctx, s.HTTPClient, http.MethodGet, target.String(), nil)
		if len(body) != 0 {
			logger.Printf("retrieved raw puppetdb status: %s", helpers.RawBodyForLog(body))
		}
		var se harness.StatusError
		if err != nil && !errors.As(err, &se) {
			logger.Printf("failure querying %s: %s", target, err)
			return "", err
		}
		// PuppetDB answers 503 with a normal status document while it is still starting
		if strings.TrimSpace(string(body)) == "" {
			return "", nil
		}
		state, err := parsePuppetDBState(body)
		if err != nil {
			logger.Printf("failure querying %s: %s", target, err)
			return "", err
		}
		return state, nil
	})
}

func parsePuppetDBState(body []byte) (string, error) {
	r := jreader.NewReader(body)
	state := ""
	for obj := r.Object(); obj.Next(); {
		if string(obj.Name()) == "state" {
			state, _ = r.StringOrNull()
		} else {
			_ = r.SkipValue()
		}
	}
	if err := r.Error(); err != nil {
		return "", fmt.Errorf("malformed puppetdb status: %w", err)
	}
	return state, nil
}

// NodeQueryBody returns the PQL request that finds the node with the given certname.
func NodeQueryBody(certname string) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("query").String(fmt.Sprintf(`nodes { certname = "%s" } `, certname))
	obj.End()
	return w.Bytes()
}

// ReportTimestampSource queries PuppetDB for the node and returns the report_timestamp of the
// first result. Until the node has reported, PuppetDB answers with an empty list, which is an
// empty reading. Any other non-200 answer or malformed body is a transient error.
func (s *Session) ReportTimestampSource(certname string, logger framework.Logger) StateSource[string] {
	logger = framework.OrNull(logger)
	body := NodeQueryBody(certname)
	return SourceFunc[string](func(ctx context.Context) (string, error) {
		target, err := s.puppetDBURL(ctx, PuppetDBQueryPath, logger)
		if err != nil {
			logger.Printf("failed to retrieve report for %s: %s", certname, err)
			return "", err
		}
		resp, _, err := harness.DoRequestExpecting(ctx, s.HTTPClient, http.MethodPost, target.String(), body, http.StatusOK)
		var se harness.StatusError
		switch {
		case err == nil:
			logger.Printf("retrieved report info for %s from %s: HTTP 200 / %s", certname, target, helpers.RawBodyForLog(resp))
		case errors.As(err, &se):
			logger.Printf("retrieved report info for %s from %s: HTTP %d / %s", certname, target, se.StatusCode, string(resp))
			return "", err
		default:
			logger.Printf("failed to retrieve report for %s: %s", certname, err)
			return "", err
		}
		if strings.TrimSpace(string(resp)) == "" {
			return "", nil
		}
		timestamp, err := parseFirstReportTimestamp(resp)
		if err != nil {
			logger.Printf("failed to retrieve report for %s: %s", certname, err)
			return "", err
		}
		return timestamp, nil
	})
}

func parseFirstReportTimestamp(body []byte) (string, error) {
	r := jreader.NewReader(body)
	timestamp := ""
	first := true
	for arr := r.Array(); arr.Next(); {
		if !first {
			_ = r.SkipValue()
			continue
		}
		first = false
		for obj := r.Object(); obj.Next(); {
			if string(obj.Name()) == "report_timestamp" {
				timestamp, _ = r.StringOrNull()
			} else {
				_ = r.SkipValue()
			}
		}
	}
	if err := r.Error(); err != nil {
		return "", fmt.Errorf("malformed node query result: %w", err)
	}
	return timestamp, nil
}
