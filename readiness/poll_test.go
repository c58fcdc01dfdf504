package readiness

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pupperware/cluster-harness/framework"
	"github.com/pupperware/cluster-harness/mockcluster"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(timeout time.Duration) Policy {
	return Policy{Name: "test", Interval: time.Millisecond, Timeout: timeout}
}

type countingSource[V any] struct {
	script *mockcluster.Script[V]
	calls  int
}

func (c *countingSource[V]) Fetch(ctx context.Context) (V, error) {
	c.calls++
	return c.script.Next()
}

func countingValues[V any](values ...V) *countingSource[V] {
	return &countingSource[V]{script: mockcluster.Values(values...)}
}

func TestPollMatchesAfterKProbes(t *testing.T) {
	source := countingValues("", "initializing", "initializing", "running", "stopping")
	outcome := Poll[string](context.Background(), fastPolicy(time.Second), source, m.Equal("running"))

	assert.Equal(t, StatusMatched, outcome.Status)
	assert.True(t, outcome.Matched())
	assert.Equal(t, "running", outcome.Value)
	assert.Equal(t, "running", outcome.Result())
	assert.Equal(t, 4, outcome.Probes)
	assert.Equal(t, 4, source.calls)
	assert.NoError(t, outcome.Err())
}

func TestPollMatchesOnFirstProbeWithoutWaiting(t *testing.T) {
	source := countingValues("running")
	policy := Policy{Name: "test", Interval: time.Hour, Timeout: time.Hour}
	outcome := Poll[string](context.Background(), policy, source, m.Equal("running"))
	assert.True(t, outcome.Matched())
	assert.Equal(t, 1, source.calls)
	assert.Less(t, outcome.Elapsed, time.Second)
}

func TestPollTimesOut(t *testing.T) {
	source := countingValues("starting")
	policy := Policy{Name: "test", Interval: 10 * time.Millisecond, Timeout: 100 * time.Millisecond}
	started := time.Now()
	outcome := Poll[string](context.Background(), policy, source, m.Equal("running"))
	elapsed := time.Since(started)

	assert.Equal(t, StatusTimedOut, outcome.Status)
	assert.False(t, outcome.Matched())
	assert.Equal(t, "", outcome.Result())
	assert.Equal(t, "starting", outcome.Value)
	assert.GreaterOrEqual(t, elapsed, 100*time.Millisecond)
	assert.GreaterOrEqual(t, outcome.Probes, 5)
	assert.LessOrEqual(t, outcome.Probes, 11)
	assert.Equal(t, outcome.Probes, source.calls)

	err := outcome.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimedOut)
	assert.Contains(t, err.Error(), `last value was "starting"`)

	calls := source.calls
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, source.calls)
}

func TestPollDoesNotProbeAfterDeadline(t *testing.T) {
	source := countingValues("starting")
	policy := Policy{Name: "test", Interval: 50 * time.Millisecond, Timeout: 120 * time.Millisecond}
	outcome := Poll[string](context.Background(), policy, source, m.Equal("running"))

	assert.Equal(t, StatusTimedOut, outcome.Status)
	assert.Equal(t, 3, source.calls)
}

func TestPollRetriesTransientErrors(t *testing.T) {
	malformed := errors.New("malformed puppetdb status")
	source := &countingSource[string]{script: mockcluster.Steps(
		mockcluster.Step[string]{Value: ""},
		mockcluster.Step[string]{Err: errors.New("connection refused")},
		mockcluster.Step[string]{Value: "initializing"},
		mockcluster.Step[string]{Err: malformed},
		mockcluster.Step[string]{Value: "running"},
	)}
	var logger framework.CapturingLogger
	outcome := Poll[string](context.Background(), fastPolicy(time.Second), source, m.Equal("running"),
		WithLogger(&logger))

	assert.True(t, outcome.Matched())
	assert.Equal(t, "running", outcome.Value)
	assert.Equal(t, 5, outcome.Probes)
	assert.Equal(t, malformed, outcome.LastErr)

	var messages []string
	for _, line := range logger.Output() {
		messages = append(messages, line.Message)
	}
	assert.Equal(t, []string{
		"test: probe 2 failed: connection refused",
		"test: probe 4 failed: malformed puppetdb status",
	}, messages)
}

func TestPollTimeoutReportsLastError(t *testing.T) {
	source := SourceFunc[string](func(ctx context.Context) (string, error) {
		return "", errors.New("connection refused")
	})
	outcome := Poll[string](context.Background(), fastPolicy(20*time.Millisecond), source, m.Equal("running"))
	assert.Equal(t, StatusTimedOut, outcome.Status)
	assert.Contains(t, outcome.Err().Error(), "last error was: connection refused")
	assert.NotContains(t, outcome.Err().Error(), "last value")
}

func TestPollStopsOnPermanentError(t *testing.T) {
	cause := errors.New("container has no health check")
	source := &countingSource[string]{script: mockcluster.Steps(mockcluster.Step[string]{Err: Permanent(cause)})}
	outcome := Poll[string](context.Background(), fastPolicy(time.Second), source, m.Equal("healthy"))

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.Equal(t, 1, source.calls)
	assert.ErrorIs(t, outcome.Err(), cause)
	assert.True(t, IsPermanent(outcome.LastErr))
	assert.False(t, IsPermanent(cause))
	assert.Nil(t, Permanent(nil))
}

func TestPollStopsWhenContextIsCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	source := countingValues("starting")
	policy := Policy{Name: "test", Interval: 5 * time.Millisecond, Timeout: time.Minute}
	outcome := Poll[string](ctx, policy, source, m.Equal("running"))

	assert.Equal(t, StatusFailed, outcome.Status)
	assert.ErrorIs(t, outcome.Err(), context.DeadlineExceeded)
	assert.Less(t, outcome.Elapsed, 10*time.Second)
}

func TestPollWithoutTimeout(t *testing.T) {
	source := countingValues(false, false, false, true)
	policy := Policy{Name: "test", Interval: time.Millisecond}
	outcome := Poll[bool](context.Background(), policy, source, m.Equal(true))
	assert.True(t, outcome.Matched())
	assert.Equal(t, 4, outcome.Probes)
}

func TestPollRecordsMetrics(t *testing.T) {
	metrics := NewMetrics()
	source := &countingSource[string]{script: mockcluster.Steps(
		mockcluster.Step[string]{Err: errors.New("refused")},
		mockcluster.Step[string]{Value: "starting"},
		mockcluster.Step[string]{Value: "healthy"},
	)}
	_ = Poll[string](context.Background(), fastPolicy(time.Second), source, m.Equal("healthy"), WithMetrics(metrics))
	_ = Poll[string](context.Background(), Policy{Name: "other", Interval: time.Millisecond, Timeout: 5 * time.Millisecond},
		countingValues("x"), m.Equal("y"), WithMetrics(metrics))

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.probes.WithLabelValues("test", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.probes.WithLabelValues("test", "error")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.polls.WithLabelValues("test", "matched")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.polls.WithLabelValues("other", "timed out")))
	assert.Equal(t, 2, testutil.CollectAndCount(metrics.pollDuration))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "matched", StatusMatched.String())
	assert.Equal(t, "timed out", StatusTimedOut.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "Status(0)", Status(0).String())
}
