package helpers

import "fmt"

// Verdict is anything that can say whether an operation succeeded: a poll outcome, a command
// result, or an error-returning probe adapted with VerdictOf.
type Verdict interface {
	Err() error
}

type errVerdict struct{ err error }

func (v errVerdict) Err() error { return v.err }

// VerdictOf wraps a plain error as a Verdict.
func VerdictOf(err error) Verdict {
	return errVerdict{err}
}

// AssertSucceeded fails the test if v reports an error. The failure message is the formatted
// message followed by the error.
func AssertSucceeded(t TestContext, v Verdict, msgFormat string, msgArgs ...interface{}) bool {
	if err := v.Err(); err != nil {
		t.Errorf("%s: %s", fmt.Sprintf(msgFormat, msgArgs...), err)
		return false
	}
	return true
}

// RequireSucceeded is equivalent to AssertSucceeded, except that the test also exits immediately
// on failure.
func RequireSucceeded(t TestContext, v Verdict, msgFormat string, msgArgs ...interface{}) {
	if !AssertSucceeded(t, v, msgFormat, msgArgs...) {
		t.FailNow()
	}
}
