package remote

import "sync"

// Status tracks the outcome of remote attempts. Every attempt takes a
// generation number; a result is recorded only if no newer attempt has
// already reported, so a slow superseded call cannot overwrite a fresh one.
type Status struct {
	mu       sync.Mutex
	next     uint64
	recorded uint64
	online   bool
	inflight int
}

// NewStatus returns a status that starts online.
func NewStatus() *Status {
	return &Status{online: true}
}

// Begin registers a new attempt and returns its generation.
func (s *Status) Begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.inflight++
	return s.next
}

// Finish records the result of the attempt gen. It reports whether the
// result was applied.
func (s *Status) Finish(gen uint64, ok bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight > 0 {
		s.inflight--
	}
	if gen <= s.recorded {
		return false
	}
	s.recorded = gen
	s.online = ok
	return true
}

// Online reports the result of the most recent attempt.
func (s *Status) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Busy reports whether any attempt is still running.
func (s *Status) Busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}
