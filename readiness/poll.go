package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pupperware/cluster-harness/framework"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
)

// ErrTimedOut is wrapped by Outcome.Err when a poll reached its deadline without a match.
var ErrTimedOut = errors.New("timed out")

// Policy is the fixed schedule of one kind of poll.
type Policy struct {
	// Name identifies the poll in log output and metrics.
	Name string

	// Interval is the time between the end of one probe and the start of the next.
	Interval time.Duration

	// Timeout is the overall time budget, measured from the first probe. Zero means no deadline.
	Timeout time.Duration
}

// StateSource produces the current value of some piece of cluster state. An error means that
// this reading could not be taken; the poller treats it as "not yet" and tries again.
type StateSource[V any] interface {
	Fetch(ctx context.Context) (V, error)
}

// SourceFunc adapts a function to the StateSource interface.
type SourceFunc[V any] func(ctx context.Context) (V, error)

func (f SourceFunc[V]) Fetch(ctx context.Context) (V, error) { return f(ctx) }

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks an error returned by a StateSource as one that no amount of waiting will fix,
// so the poll stops immediately with StatusFailed.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err}
}

// IsPermanent returns true if the error was marked with Permanent.
func IsPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

type pollConfig struct {
	logger  framework.Logger
	metrics *Metrics
}

// PollOption is an optional setting for Poll.
type PollOption func(*pollConfig)

// WithLogger sends a line for every failed probe and for the final outcome to the logger.
func WithLogger(logger framework.Logger) PollOption {
	return func(c *pollConfig) { c.logger = logger }
}

// WithMetrics records every probe and the final outcome.
func WithMetrics(metrics *Metrics) PollOption {
	return func(c *pollConfig) { c.metrics = metrics }
}

// Poll reads from source until matcher accepts the value, the policy's deadline passes, or ctx
// is cancelled.
//
// The first probe happens immediately. After each probe that does not match, Poll waits for the
// policy interval, or until the deadline if that comes first; it never starts a probe once the
// deadline has passed. A probe that is still running when the deadline passes is allowed to
// finish and its value counts.
func Poll[V any](
	ctx context.Context,
	policy Policy,
	source StateSource[V],
	matcher m.Matcher,
	options ...PollOption,
) Outcome[V] {
	config := pollConfig{}
	for _, option := range options {
		option(&config)
	}
	logger := framework.OrNull(config.logger)

	started := time.Now()
	deadline := started.Add(policy.Timeout)
	out := Outcome[V]{Name: policy.Name}

	finish := func(status Status) Outcome[V] {
		out.Status = status
		out.Elapsed = time.Since(started)
		config.metrics.observePoll(policy.Name, status, out.Elapsed)
		if status != StatusMatched {
			logger.Printf("%s: %s", policy.Name, out.Err())
		}
		return out
	}

	for {
		value, err := source.Fetch(ctx)
		out.Probes++
		config.metrics.observeProbe(policy.Name, err)
		if err != nil {
			out.LastErr = err
			if IsPermanent(err) {
				return finish(StatusFailed)
			}
			logger.Printf("%s: probe %d failed: %s", policy.Name, out.Probes, err)
		} else {
			out.Value = value
			out.observed = true
			if pass, _ := matcher.Test(value); pass {
				return finish(StatusMatched)
			}
		}

		wait := policy.Interval
		if policy.Timeout > 0 {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return finish(StatusTimedOut)
			}
			if remaining < wait {
				wait = remaining
			}
		}
		if ctx.Err() != nil {
			out.LastErr = ctx.Err()
			return finish(StatusFailed)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			out.LastErr = ctx.Err()
			return finish(StatusFailed)
		case <-timer.C:
		}
		if policy.Timeout > 0 && !time.Now().Before(deadline) {
			return finish(StatusTimedOut)
		}
	}
}

// Status is the final state of a poll.
type Status int

const (
	// StatusMatched means that a probe produced a value that the matcher accepted.
	StatusMatched Status = iota + 1

	// StatusTimedOut means that the deadline passed first.
	StatusTimedOut

	// StatusFailed means that the poll was abandoned, because the context was cancelled or a
	// probe returned a Permanent error.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusMatched:
		return "matched"
	case StatusTimedOut:
		return "timed out"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of Poll.
type Outcome[V any] struct {
	// Name is the name of the policy that was used.
	Name string

	Status Status

	// Value is the matching value if Status is StatusMatched; otherwise it is the last value that
	// was successfully read, if any, for diagnostic purposes.
	Value V

	// LastErr is the most recent probe error, or the context error for a cancelled poll.
	LastErr error

	// Probes is the number of times the source was read.
	Probes int

	// Elapsed is the total duration of the poll.
	Elapsed time.Duration

	observed bool
}

// Matched returns true if the poll ended with a matching value.
func (o Outcome[V]) Matched() bool {
	return o.Status == StatusMatched
}

// Result returns the matching value, or the zero value of V if the poll did not match.
func (o Outcome[V]) Result() V {
	if o.Matched() {
		return o.Value
	}
	var empty V
	return empty
}

// Err returns nil for a matched poll, or otherwise an error that describes how the poll ended
// along with the last observed value. For a timed-out poll it wraps ErrTimedOut.
func (o Outcome[V]) Err() error {
	switch o.Status {
	case StatusMatched:
		return nil
	case StatusTimedOut:
		return fmt.Errorf("%w after %s and %d probes%s", ErrTimedOut, o.Elapsed.Round(time.Millisecond),
			o.Probes, o.lastSeen())
	default:
		if o.LastErr != nil {
			return fmt.Errorf("gave up after %d probes: %w", o.Probes, o.LastErr)
		}
		return fmt.Errorf("gave up after %d probes", o.Probes)
	}
}

func (o Outcome[V]) lastSeen() string {
	ret := ""
	if o.observed {
		ret += "; last value was " + m.DescribeValue(o.Value)
	}
	if o.LastErr != nil {
		ret += "; last error was: " + o.LastErr.Error()
	}
	return ret
}
