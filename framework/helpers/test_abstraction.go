package helpers

import (
	"errors"
	"fmt"
	"strings"
)

// TestContext is the part of *testing.T and *pwtest.T that assertion helpers report failures to.
// It is also the TestingT of the go-test-helpers matchers, so the same scope works with both.
type TestContext interface {
	Errorf(msgFormat string, msgArgs ...interface{})
	FailNow()
}

// TestRecorder stands in for a check's test scope in unit tests. FailNow panics only if
// PanicOnTerminate is set, since a plain recorder has no goroutine to stop.
type TestRecorder struct {
	Errors           []string
	Terminated       bool
	PanicOnTerminate bool
}

func (t *TestRecorder) Errorf(msgFormat string, msgArgs ...interface{}) {
	t.Errors = append(t.Errors, fmt.Sprintf(msgFormat, msgArgs...))
}

func (t *TestRecorder) FailNow() {
	t.Terminated = true
	if t.PanicOnTerminate {
		panic(t)
	}
}

// Err returns all of the recorded errors joined into one, or nil if there were none.
func (t *TestRecorder) Err() error {
	if len(t.Errors) == 0 {
		return nil
	}
	return errors.New(strings.Join(t.Errors, ", "))
}
