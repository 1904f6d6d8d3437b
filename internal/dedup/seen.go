// Package dedup tracks which titles a run has already notified and filters
// fresh candidates against the current keyword list.
package dedup

import "sync"

// SeenSet records notified titles. It is safe for concurrent use: the monitor
// worker writes while the control surface reads snapshots.
type SeenSet struct {
	mu     sync.RWMutex
	titles map[string]struct{}
	order  []string
	limit  int
}

// NewSeenSet builds a SeenSet. A limit > 0 evicts the oldest titles once the
// set grows past it; 0 keeps every title for the lifetime of the run.
func NewSeenSet(limit int) *SeenSet {
	if limit < 0 {
		limit = 0
	}
	return &SeenSet{
		titles: make(map[string]struct{}),
		limit:  limit,
	}
}

// Contains reports whether title was recorded.
func (s *SeenSet) Contains(title string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.titles[title]
	return ok
}

// Add records title and reports whether it was new. The membership check and
// insert happen under one lock.
func (s *SeenSet) Add(title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.titles[title]; ok {
		return false
	}
	s.titles[title] = struct{}{}
	s.order = append(s.order, title)
	if s.limit > 0 && len(s.order) > s.limit {
		evict := len(s.order) - s.limit
		for _, old := range s.order[:evict] {
			delete(s.titles, old)
		}
		s.order = append([]string(nil), s.order[evict:]...)
	}
	return true
}

// Len returns the number of recorded titles.
func (s *SeenSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Snapshot returns the recorded titles in insertion order.
func (s *SeenSet) Snapshot() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}
