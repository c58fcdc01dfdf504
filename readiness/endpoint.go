package readiness

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/pupperware/cluster-harness/framework"

	"golang.org/x/sync/singleflight"
)

// PortMapper is the part of lifecycle.Cluster that EndpointResolver needs.
type PortMapper interface {
	Port(ctx context.Context, service string, port int) (string, error)
}

// EndpointResolver maps a service and one of its container ports to a base URL that the harness
// can reach. Each mapping is looked up once and then reused for the rest of the session, even if
// the port is later republished; a failed lookup is not remembered.
type EndpointResolver struct {
	mapper PortMapper
	cache  map[string]url.URL
	lock   sync.Mutex
	group  singleflight.Group
}

// NewEndpointResolver creates an EndpointResolver with an empty cache.
func NewEndpointResolver(mapper PortMapper) *EndpointResolver {
	return &EndpointResolver{mapper: mapper, cache: make(map[string]url.URL)}
}

func endpointKey(service string, port int) string {
	return service + ":" + strconv.Itoa(port)
}

// Resolve returns the base URL for the service port. Concurrent first calls for the same key
// share one lookup; a caller whose context ends returns early without failing the others.
func (r *EndpointResolver) Resolve(ctx context.Context, service string, port int, logger framework.Logger) (*url.URL, error) {
	key := endpointKey(service, port)
	if u, ok := r.cached(key); ok {
		return u, nil
	}
	// The shared lookup outlives any one caller's context; each caller stops waiting on its own.
	lookupCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (interface{}, error) {
		if u, ok := r.cached(key); ok {
			return *u, nil
		}
		mapping, err := r.mapper.Port(lookupCtx, service, port)
		if err != nil {
			return nil, fmt.Errorf("could not find published port %d of service %s: %w", port, service, err)
		}
		u, err := endpointURL(mapping)
		if err != nil {
			return nil, fmt.Errorf("published port %d of service %s: %w", port, service, err)
		}
		r.lock.Lock()
		r.cache[key] = *u
		r.lock.Unlock()
		framework.OrNull(logger).Printf("determined %s endpoint for port %d: %s", service, port, u)
		return *u, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		u := res.Val.(url.URL)
		return &u, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *EndpointResolver) cached(key string) (*url.URL, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	u, ok := r.cache[key]
	if !ok {
		return nil, false
	}
	return &u, true
}

// endpointURL turns a published address such as "0.0.0.0:49153" into an http URL. Wildcard bind
// addresses are not dialable, so they become localhost. When the mapping lists one address per
// line (IPv4 and IPv6), the first is used.
func endpointURL(mapping string) (*url.URL, error) {
	line := strings.TrimSpace(mapping)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	if line == "" {
		return nil, fmt.Errorf("port is not published")
	}
	i := strings.LastIndex(line, ":")
	if i < 0 {
		return nil, fmt.Errorf("malformed address %q", mapping)
	}
	host, port := line[:i], line[i+1:]
	if _, err := strconv.Atoi(port); err != nil {
		return nil, fmt.Errorf("malformed address %q", mapping)
	}
	host = strings.TrimSuffix(strings.TrimPrefix(host, "["), "]")
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return &url.URL{Scheme: "http", Host: net.JoinHostPort(host, port)}, nil
}
