package harness

import (
	"bytes"
	"io"
	"regexp"
)

type filteredWriter struct {
	writer       io.Writer
	excludeRegex []*regexp.Regexp
}

func newFilteredWriter(writer io.Writer, excludeRegex []*regexp.Regexp) *filteredWriter {
	return &filteredWriter{writer, excludeRegex}
}

func (f *filteredWriter) Write(data []byte) (int, error) {
	for _, r := range f.excludeRegex {
		if r.Match(data) {
			return len(data), nil
		}
	}
	return f.writer.Write(data)
}

// lineWriter passes data to its target one complete line at a time, so that a filteredWriter
// sees whole lines regardless of how the process output was chunked. It never reports an error
// from the target, since echoing is best-effort.
type lineWriter struct {
	target  io.Writer
	pending []byte
}

func newLineWriter(target io.Writer) *lineWriter {
	return &lineWriter{target: target}
}

func (l *lineWriter) Write(data []byte) (int, error) {
	l.pending = append(l.pending, data...)
	for {
		i := bytes.IndexByte(l.pending, '\n')
		if i < 0 {
			break
		}
		_, _ = l.target.Write(l.pending[:i+1])
		l.pending = l.pending[i+1:]
	}
	return len(data), nil
}

func (l *lineWriter) flush() {
	if len(l.pending) != 0 {
		_, _ = l.target.Write(append(l.pending, '\n'))
		l.pending = nil
	}
}
