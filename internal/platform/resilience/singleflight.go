package resilience

import "sync"

// SingleFlight collapses concurrent calls for the same key into one
// execution. Provider GETs are idempotent, so every waiter can share the
// first result.
type SingleFlight struct {
	mu       sync.Mutex
	inFlight map[string]*flightResult
}

type flightResult struct {
	done  chan struct{}
	value any
	err   error
}

// Do runs fetch once per in-flight key. Duplicate callers block until the
// first call finishes and receive its result; the third return reports
// whether the result was shared.
func (s *SingleFlight) Do(key string, fetch func() (any, error)) (any, error, bool) {
	s.mu.Lock()
	if s.inFlight == nil {
		s.inFlight = make(map[string]*flightResult)
	}
	if waiting, ok := s.inFlight[key]; ok {
		s.mu.Unlock()
		<-waiting.done
		return waiting.value, waiting.err, true
	}

	res := &flightResult{done: make(chan struct{})}
	s.inFlight[key] = res
	s.mu.Unlock()

	res.value, res.err = fetch()
	close(res.done)

	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()

	return res.value, res.err, false
}
