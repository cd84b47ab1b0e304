package engine

import "sync"

// Seen is the process-lifetime set of fingerprints already delivered.
// Once a fingerprint is added it is never delivered again for the life of
// the process, regardless of which feed introduced it. The set is unbounded
// and resets on restart; it is a single-process, best-effort guard.
type Seen struct {
	mu  sync.Mutex
	fps map[string]struct{}
}

// NewSeen creates an empty fingerprint set.
func NewSeen() *Seen {
	return &Seen{fps: make(map[string]struct{})}
}

// Has reports whether fp was already delivered.
func (s *Seen) Has(fp string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fps[fp]
	return ok
}

// Add records fp as delivered.
func (s *Seen) Add(fp string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fps[fp] = struct{}{}
}

// Len returns the number of recorded fingerprints.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fps)
}
