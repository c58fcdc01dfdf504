package readiness

import "sync"

// TimestampLog is an append-only list of report timestamps collected during a session. It is
// informational; no check depends on it.
type TimestampLog struct {
	values []string
	lock   sync.Mutex
}

func (l *TimestampLog) Append(timestamp string) {
	l.lock.Lock()
	l.values = append(l.values, timestamp)
	l.lock.Unlock()
}

// All returns a copy of the timestamps in the order they were appended.
func (l *TimestampLog) All() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.values...)
}

func (l *TimestampLog) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.values)
}
