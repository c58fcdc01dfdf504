// Package internal contains test helpers for pwtest.
package internal

// RunAction is used only in unit tests. It has to live outside pwtest so that stacktrace filtering
// has a frame from another package to keep.
func RunAction(action func()) {
	action()
}
