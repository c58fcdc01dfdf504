package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/pupperware/cluster-harness/framework"

	"github.com/mattn/go-shellwords"
)

// CommandResult is the outcome of running an external command. A non-zero exit status is
// reported in ExitCode, not as an error.
type CommandResult struct {
	// Output is the combined standard output and standard error, with trailing whitespace removed.
	Output string

	// ExitCode is the process exit status, or -1 if the process could not be started or was killed.
	ExitCode int

	// StartErr is set if the process could not be run at all.
	StartErr error
}

// Succeeded returns true if the process ran and exited with status zero.
func (r CommandResult) Succeeded() bool {
	return r.StartErr == nil && r.ExitCode == 0
}

// Err returns nil if the command succeeded, or otherwise an error describing the failure along
// with the command's output.
func (r CommandResult) Err() error {
	if r.StartErr != nil {
		return r.StartErr
	}
	if r.ExitCode != 0 {
		if r.Output == "" {
			return fmt.Errorf("exit status %d", r.ExitCode)
		}
		return fmt.Errorf("exit status %d, output:\n%s", r.ExitCode, r.Output)
	}
	return nil
}

// CommandRunner executes external commands. Implementations do not retry.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) CommandResult
}

// ExecRunner is the CommandRunner that starts real processes.
type ExecRunner struct {
	// Dir is the working directory for commands; if empty, the current directory is used.
	Dir string

	// Env is added to the current process environment.
	Env []string

	// Logger receives the command line of each command that is run.
	Logger framework.Logger

	// Echo, if not nil, receives the command's output as it is produced. Lines matching any of
	// EchoExclude are not echoed.
	Echo        io.Writer
	EchoExclude []*regexp.Regexp
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) CommandResult {
	framework.OrNull(r.Logger).Printf("running command: %s", FormatCommand(name, args...))

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	if len(r.Env) != 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var buf bytes.Buffer
	var out io.Writer = &buf
	var echo *lineWriter
	if r.Echo != nil {
		echo = newLineWriter(newFilteredWriter(r.Echo, r.EchoExclude))
		out = io.MultiWriter(&buf, echo)
	}
	cmd.Stdout = out
	cmd.Stderr = out

	err := cmd.Run()
	if echo != nil {
		echo.flush()
	}
	result := CommandResult{Output: strings.TrimRight(buf.String(), " \t\r\n")}
	if err == nil {
		return result
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		if result.ExitCode == -1 && ctx.Err() != nil {
			result.StartErr = fmt.Errorf("%s was interrupted: %w", name, ctx.Err())
		}
		return result
	}
	result.ExitCode = -1
	result.StartErr = fmt.Errorf("could not run %s: %w", name, err)
	return result
}

// SplitCommand parses a command line such as "docker compose" into the program name and any
// leading arguments, using shell quoting rules.
func SplitCommand(commandLine string) (string, []string, error) {
	words, err := shellwords.Parse(commandLine)
	if err != nil {
		return "", nil, fmt.Errorf("invalid command %q: %w", commandLine, err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("command must not be empty")
	}
	return words[0], words[1:], nil
}

// FormatCommand renders a command line for logging, quoting any argument that contains spaces
// or quotes.
func FormatCommand(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{name}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = fmt.Sprintf("%q", a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
