package pwtest

import (
	"errors"
	"fmt"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/exp/slices"
)

// ErrorWithStacktrace is a check failure along with the call sites that led to it, outermost
// last. Frames inside the test runner and inside assertion libraries are left out, so the first
// frame is normally the line in a check that made the failing assertion.
type ErrorWithStacktrace struct {
	Message    string
	Stacktrace []StacktraceInfo
}

// StacktraceInfo is one call site.
type StacktraceInfo struct {
	FileName string
	Package  string
	Function string
	Line     int
}

func (e ErrorWithStacktrace) Error() string { return e.Message }

// String shows the package relative to this module, e.g. "clustertests.doAgentTests.func2 (agent_checks.go:40)".
func (s StacktraceInfo) String() string {
	packageName := strings.TrimPrefix(s.Package, moduleRoot()+"/")
	return fmt.Sprintf("%s.%s (%s:%d)", packageName, s.Function, s.FileName, s.Line)
}

// Packages whose frames are never where a failure originates: the assertion helpers that
// checks call, and the libraries behind them.
var assertionPackages = []string{ //nolint:gochecknoglobals
	"/framework/helpers",
	"github.com/launchdarkly/go-test-helpers/v2/matchers",
	"github.com/stretchr/testify/assert",
	"github.com/stretchr/testify/require",
}

var testifyTracePrefix = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`) //nolint:gochecknoglobals

// transformError attaches a stacktrace to a failure. testify's assert and require functions put
// their own trace at the start of the message; that part is dropped.
func transformError(err error, stacktrace []StacktraceInfo) error {
	message := err.Error()
	if strings.Contains(message, "Error Trace:") {
		message = strings.TrimSpace(testifyTracePrefix.ReplaceAllLiteralString(message, ""))
	}
	if len(stacktrace) == 0 {
		return errors.New(message)
	}
	return ErrorWithStacktrace{Message: message, Stacktrace: stacktrace}
}

func currentPackageName() string {
	pc, _, _, ok := runtime.Caller(0)
	if !ok {
		return "?"
	}
	packageName, _ := parsePackageAndFunctionName(runtime.FuncForPC(pc).Name())
	return packageName
}

// moduleRoot is the import path of this module, taken from the path of this package, which is
// <module>/framework/pwtest.
func moduleRoot() string {
	p := currentPackageName()
	if root, ok := strings.CutSuffix(p, "/framework/pwtest"); ok {
		return root
	}
	return p
}

func isAssertionPackage(packageName string) bool {
	root := moduleRoot()
	for _, p := range assertionPackages {
		if strings.HasPrefix(p, "/") {
			p = root + p
		}
		if packageName == p {
			return true
		}
	}
	return false
}

// getStacktrace returns the call sites above its caller, stopping at the frame that started the
// current test. Frames of this package are included only if includeRunnerCode is true; frames of
// assertion packages and of functions named in helperFns are always skipped.
func getStacktrace(includeRunnerCode bool, helperFns []string) []StacktraceInfo {
	pcs := make([]uintptr, 64)
	n := runtime.Callers(2, pcs) // skip runtime.Callers and getStacktrace
	frames := runtime.CallersFrames(pcs[:n])
	currentPackage := currentPackageName()

	callers := []StacktraceInfo{}
	for {
		frame, more := frames.Next()
		if frame.Function == "" {
			break
		}
		packageName, functionName := parsePackageAndFunctionName(frame.Function)
		if packageName == currentPackage && functionName == "Run" {
			break
		}
		skip := (!includeRunnerCode && packageName == currentPackage) ||
			isAssertionPackage(packageName) ||
			slices.Contains(helperFns, frame.Function)
		if !skip {
			callers = append(callers, StacktraceInfo{
				FileName: frame.File[strings.LastIndex(frame.File, "/")+1:],
				Package:  packageName,
				Function: functionName,
				Line:     frame.Line,
			})
		}
		if !more {
			break
		}
	}
	return callers
}

// parsePackageAndFunctionName splits a name like "example.com/a/b.(*T).run.func1" at the first
// dot after the last slash.
func parsePackageAndFunctionName(fullName string) (string, string) {
	lastSlash := strings.LastIndex(fullName, "/")
	firstDot := strings.Index(fullName[lastSlash+1:], ".")
	if firstDot < 0 {
		return fullName, ""
	}
	packageName := fullName[:lastSlash+1+firstDot]
	return packageName, fullName[len(packageName)+1:]
}
