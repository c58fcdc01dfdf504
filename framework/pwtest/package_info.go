// Package pwtest contains a test runner framework that is similar to Go's testing package,
// but is run as regular Go application code rather than Go tests. The cluster checks are run
// against live containers from a command-line tool, so they need the runner's richer capabilities
// for filtering, debug capture and result reporting rather than "go test".
package pwtest
