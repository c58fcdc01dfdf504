package mockcluster

import "sync"

// Step is one scripted answer: a value, or an error.
type Step[V any] struct {
	Value V
	Err   error
}

// Script returns its steps in order, one per call. Once the steps run out, the last step is
// repeated forever; an empty Script returns the zero value.
type Script[V any] struct {
	steps []Step[V]
	next  int
	lock  sync.Mutex
}

// Steps creates a Script from explicit steps.
func Steps[V any](steps ...Step[V]) *Script[V] {
	return &Script[V]{steps: steps}
}

// Values creates a Script whose steps are all successful.
func Values[V any](values ...V) *Script[V] {
	steps := make([]Step[V], 0, len(values))
	for _, v := range values {
		steps = append(steps, Step[V]{Value: v})
	}
	return &Script[V]{steps: steps}
}

// Next returns the next step.
func (s *Script[V]) Next() (V, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if len(s.steps) == 0 {
		var empty V
		return empty, nil
	}
	i := s.next
	if i >= len(s.steps) {
		i = len(s.steps) - 1
	} else {
		s.next++
	}
	return s.steps[i].Value, s.steps[i].Err
}

// Used returns how many calls have consumed a step, not counting repeats of the last step.
func (s *Script[V]) Used() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.next
}
