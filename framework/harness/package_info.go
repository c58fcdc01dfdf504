// Package harness contains the low-level plumbing that the rest of the harness uses to talk to the
// outside world: running external commands and making JSON requests over HTTP.
//
// It contains no knowledge of the cluster under test.
package harness
