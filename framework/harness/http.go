package harness

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
)

// StatusError is returned by DoRequest when the server responds with a non-2xx status, and by
// DoRequestExpecting when the status is not the expected one.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
}

func (e StatusError) Error() string {
	return fmt.Sprintf("service returned error %d for %s %s", e.StatusCode, e.Method, e.URL)
}

// DoRequest makes an HTTP request with an optional JSON body and returns the response body. A
// non-2xx status is reported as a StatusError, along with whatever body was received.
func DoRequest(ctx context.Context, client *http.Client, method, url string, body []byte) ([]byte, http.Header, error) {
	return doRequest(ctx, client, method, url, body, func(status int) bool { return status >= 200 && status <= 299 })
}

// DoRequestExpecting is like DoRequest, but any status other than expectedStatus is a StatusError.
func DoRequestExpecting(
	ctx context.Context,
	client *http.Client,
	method, url string,
	body []byte,
	expectedStatus int,
) ([]byte, http.Header, error) {
	return doRequest(ctx, client, method, url, body, func(status int) bool { return status == expectedStatus })
}

func doRequest(
	ctx context.Context,
	client *http.Client,
	method, url string,
	body []byte,
	accept func(status int) bool,
) ([]byte, http.Header, error) {
	if client == nil {
		client = http.DefaultClient
	}
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewBuffer(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("error reading response from %s %s: %w", method, url, err)
	}
	if !accept(resp.StatusCode) {
		return respBody, resp.Header, StatusError{Method: method, URL: url, StatusCode: resp.StatusCode}
	}
	return respBody, resp.Header, nil
}
