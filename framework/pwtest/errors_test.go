package pwtest

import (
	"errors"
	"testing"

	"github.com/pupperware/cluster-harness/framework/helpers"
	"github.com/pupperware/cluster-harness/framework/pwtest/internal"

	m "github.com/launchdarkly/go-test-helpers/v2/matchers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stackRecorder captures the stacktrace at the point where an assertion reports a failure.
type stackRecorder struct {
	stack []StacktraceInfo
}

func (s *stackRecorder) Errorf(string, ...interface{}) { s.stack = getStacktrace(false, nil) }
func (s *stackRecorder) FailNow()                      {}

func TestStacktrace(t *testing.T) {
	_ = Run(TestConfiguration{}, func(pt *T) {
		pt.Run("without filtering", func(pt *T) {
			stack := getStacktrace(true, nil)
			assert.Greater(t, len(stack), 1)
			assert.Equal(t, currentPackageName(), stack[0].Package)
			assert.Contains(t, stack[0].Function, "TestStacktrace.")
			assert.Equal(t, currentPackageName(), stack[1].Package)
			assert.Equal(t, "(*T).run", stack[1].Function)
		})

		pt.Run("auto-filtering removes pwtest methods", func(pt *T) {
			internal.RunAction(func() {
				stack := getStacktrace(false, nil)
				assert.Len(t, stack, 1)
				// The pwtest frames (including this test) and the Go runtime frames below pt.Run are
				// stripped out, leaving only internal.RunAction which isn't in pwtest.
				assert.Equal(t, currentPackageName()+"/internal", stack[0].Package)
				assert.Equal(t, "RunAction", stack[0].Function)
			})
		})

		pt.Run("filter out designated helpers", func(pt *T) {
			helperFunc1(func() {
				helperFunc2(func() {
					stack := getStacktrace(true, []string{currentPackageName() + ".helperFunc2"})
					foundFunc1 := false
					for _, s := range stack {
						if s.Package == currentPackageName() && s.Function == "helperFunc1" {
							foundFunc1 = true
						} else if s.Package == currentPackageName() && s.Function == "helperFunc2" {
							require.Fail(t, "helperFunc2 should not have been in stacktrace", "stacktrace: %+v", stack)
						}
					}
					assert.True(t, foundFunc1, "helperFunc1 should have been in stacktrace but wasn't", "stacktrace: %+v", stack)
				})
			})
		})
	})
}

func TestStacktraceSkipsAssertionPackages(t *testing.T) {
	_ = Run(TestConfiguration{}, func(pt *T) {
		internal.RunAction(func() {
			var verdict stackRecorder
			helpers.AssertSucceeded(&verdict, helpers.VerdictOf(errors.New("exit status 1")), "agent run")
			require.Len(t, verdict.stack, 1)
			assert.Equal(t, currentPackageName()+"/internal", verdict.stack[0].Package)
			assert.Equal(t, "RunAction", verdict.stack[0].Function)

			var match stackRecorder
			m.In(&match).Assert("unhealthy", m.Equal("healthy"))
			require.Len(t, match.stack, 1)
			assert.Equal(t, "RunAction", match.stack[0].Function)
		})
	})
}

func TestStacktraceInfoString(t *testing.T) {
	s := StacktraceInfo{
		FileName: "agent_checks.go",
		Package:  moduleRoot() + "/clustertests",
		Function: "doAgentTests.func2",
		Line:     40,
	}
	assert.Equal(t, "clustertests.doAgentTests.func2 (agent_checks.go:40)", s.String())
	assert.Equal(t, "github.com/pupperware/cluster-harness", moduleRoot())
}

func TestTransformErrorStripsTestifyTrace(t *testing.T) {
	err := errors.New("\n\tError Trace:\tscenario.go:10\n\tError:      \tservice puppet not found\n")
	assert.Equal(t, errors.New("service puppet not found"), transformError(err, nil))

	withStack := transformError(errors.New("boom"), []StacktraceInfo{{FileName: "a.go", Package: "p", Function: "f", Line: 1}})
	require.IsType(t, ErrorWithStacktrace{}, withStack)
	assert.Equal(t, "boom", withStack.Error())
}

func TestParsePackageAndFunctionName(t *testing.T) {
	p, f := parsePackageAndFunctionName("github.com/pupperware/cluster-harness/clustertests.doAgentTests.func1")
	assert.Equal(t, "github.com/pupperware/cluster-harness/clustertests", p)
	assert.Equal(t, "doAgentTests.func1", f)
}

func helperFunc1(action func()) {
	action()
}

func helperFunc2(action func()) {
	action()
}
