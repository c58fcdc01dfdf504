package readiness

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/mockcluster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEndpointResolverRewritesWildcardHost(t *testing.T) {
	for mapping, expected := range map[string]string{
		"0.0.0.0:49153":                 "http://localhost:49153",
		"[::]:49153":                    "http://localhost:49153",
		":::49153":                      "http://localhost:49153",
		":49153":                        "http://localhost:49153",
		"127.0.0.1:8080":                "http://127.0.0.1:8080",
		"[fe80::1]:8080":                "http://[fe80::1]:8080",
		"0.0.0.0:49153\n[::]:49153\n":   "http://localhost:49153",
		"  docker-host:49153  \r\n":     "http://docker-host:49153",
		"0.0.0.0:32768\r\n:::32768\r\n": "http://localhost:32768",
	} {
		t.Run(mapping, func(t *testing.T) {
			u, err := endpointURL(mapping)
			require.NoError(t, err)
			assert.Equal(t, expected, u.String())
		})
	}
}

func TestEndpointResolverRejectsMalformedMapping(t *testing.T) {
	for _, mapping := range []string{"", "  \n", "localhost", "localhost:http"} {
		t.Run(mapping, func(t *testing.T) {
			_, err := endpointURL(mapping)
			assert.Error(t, err)
		})
	}
}

func TestEndpointResolverCachesFirstResult(t *testing.T) {
	cluster := mockcluster.New().
		WithPort("puppetdb", 8080, mockcluster.Values("0.0.0.0:49153", "0.0.0.0:50000"))
	r := NewEndpointResolver(cluster)
	var logger framework.CapturingLogger

	u1, err := r.Resolve(context.Background(), "puppetdb", 8080, &logger)
	require.NoError(t, err)
	u2, err := r.Resolve(context.Background(), "puppetdb", 8080, &logger)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:49153", u1.String())
	assert.Equal(t, u1, u2)
	assert.Equal(t, 1, cluster.CallCount("port"))
	require.Len(t, logger.Output(), 1)
	assert.Equal(t, "determined puppetdb endpoint for port 8080: http://localhost:49153", logger.Output()[0].Message)

	u1.Host = "mutated:1"
	u3, _ := r.Resolve(context.Background(), "puppetdb", 8080, nil)
	assert.Equal(t, "http://localhost:49153", u3.String())
}

func TestEndpointResolverKeysByServiceAndPort(t *testing.T) {
	cluster := mockcluster.New().
		WithPort("puppetdb", 8080, mockcluster.Values("0.0.0.0:1")).
		WithPort("puppetdb", 8081, mockcluster.Values("0.0.0.0:2")).
		WithPort("puppet", 8080, mockcluster.Values("0.0.0.0:3"))
	r := NewEndpointResolver(cluster)
	for _, c := range []struct {
		service string
		port    int
		url     string
	}{
		{"puppetdb", 8080, "http://localhost:1"},
		{"puppetdb", 8081, "http://localhost:2"},
		{"puppet", 8080, "http://localhost:3"},
	} {
		u, err := r.Resolve(context.Background(), c.service, c.port, nil)
		require.NoError(t, err)
		assert.Equal(t, c.url, u.String())
	}
}

func TestEndpointResolverDoesNotCacheErrors(t *testing.T) {
	cluster := mockcluster.New().WithPort("puppetdb", 8080, mockcluster.Steps(
		mockcluster.Step[string]{Err: errors.New("no such service")},
		mockcluster.Step[string]{Value: "0.0.0.0:49153"},
	))
	r := NewEndpointResolver(cluster)

	_, err := r.Resolve(context.Background(), "puppetdb", 8080, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such service")

	u, err := r.Resolve(context.Background(), "puppetdb", 8080, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:49153", u.String())
	assert.Equal(t, 2, cluster.CallCount("port"))
}

type blockingMapper struct {
	release chan struct{}
	calls   int
	lock    sync.Mutex
}

func (b *blockingMapper) Port(ctx context.Context, service string, port int) (string, error) {
	b.lock.Lock()
	b.calls++
	b.lock.Unlock()
	<-b.release
	return "0.0.0.0:49153", nil
}

func TestEndpointResolverSharesConcurrentFirstResolution(t *testing.T) {
	mapper := &blockingMapper{release: make(chan struct{})}
	r := NewEndpointResolver(mapper)

	const n = 10
	results := make(chan string, n)
	var started sync.WaitGroup
	for i := 0; i < n; i++ {
		started.Add(1)
		go func() {
			started.Done()
			u, err := r.Resolve(context.Background(), "puppetdb", 8080, nil)
			if err != nil {
				results <- err.Error()
				return
			}
			results <- u.String()
		}()
	}
	started.Wait()
	close(mapper.release)
	for i := 0; i < n; i++ {
		assert.Equal(t, "http://localhost:49153", <-results)
	}
	mapper.lock.Lock()
	defer mapper.lock.Unlock()
	assert.Equal(t, 1, mapper.calls)

	u, _ := r.Resolve(context.Background(), "puppetdb", 8080, nil)
	assert.Equal(t, "http://localhost:49153", u.String())
}

type contextMapper struct {
	entered chan struct{}
	release chan struct{}
}

func (c *contextMapper) Port(ctx context.Context, service string, port int) (string, error) {
	close(c.entered)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.release:
		return "0.0.0.0:49153", nil
	}
}

func TestEndpointResolverCancelledCallerDoesNotFailOthers(t *testing.T) {
	mapper := &contextMapper{entered: make(chan struct{}), release: make(chan struct{})}
	r := NewEndpointResolver(mapper)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := r.Resolve(ctx, "puppetdb", 8080, nil)
		firstErr <- err
	}()
	<-mapper.entered

	second := make(chan string, 1)
	go func() {
		u, err := r.Resolve(context.Background(), "puppetdb", 8080, nil)
		if err != nil {
			second <- err.Error()
			return
		}
		second <- u.String()
	}()

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(mapper.release)
	assert.Equal(t, "http://localhost:49153", <-second)
}
