package harness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoRequestSendsJSONBody(t *testing.T) {
	handler, requests := httphelpers.RecordingHandler(
		httphelpers.HandlerWithResponse(200, nil, []byte(`[{"certname":"a"}]`)))
	httphelpers.WithServer(handler, func(server *httptest.Server) {
		body, _, err := DoRequest(context.Background(), nil, "POST", server.URL+"/pdb/query/v4", []byte(`{"query":"nodes"}`))
		require.NoError(t, err)
		assert.Equal(t, `[{"certname":"a"}]`, string(body))

		received := <-requests
		assert.Equal(t, "POST", received.Request.Method)
		assert.Equal(t, "/pdb/query/v4", received.Request.URL.Path)
		assert.Equal(t, "application/json", received.Request.Header.Get("Content-Type"))
		assert.Equal(t, `{"query":"nodes"}`, string(received.Body))
	})
}

func TestDoRequestReportsErrorStatus(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithStatus(503), func(server *httptest.Server) {
		_, _, err := DoRequest(context.Background(), http.DefaultClient, "GET", server.URL+"/status", nil)
		require.Error(t, err)
		var se StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, 503, se.StatusCode)
		assert.Equal(t, "service returned error 503 for GET "+server.URL+"/status", err.Error())
	})
}

func TestDoRequestReportsConnectionError(t *testing.T) {
	var url string
	httphelpers.WithServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server) {
		url = server.URL
	})
	_, _, err := DoRequest(context.Background(), nil, "GET", url, nil)
	assert.Error(t, err)
}

func TestDoRequestExpectingRejectsOtherSuccessStatus(t *testing.T) {
	httphelpers.WithServer(httphelpers.HandlerWithResponse(202, nil, []byte(`[{"report_timestamp":"stale"}]`)),
		func(server *httptest.Server) {
			body, _, err := DoRequestExpecting(context.Background(), nil, "POST", server.URL, nil, http.StatusOK)
			var se StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, 202, se.StatusCode)
			assert.Equal(t, `[{"report_timestamp":"stale"}]`, string(body))
		})
	httphelpers.WithServer(httphelpers.HandlerWithStatus(200), func(server *httptest.Server) {
		_, _, err := DoRequestExpecting(context.Background(), nil, "GET", server.URL, nil, http.StatusOK)
		assert.NoError(t, err)
	})
}
