package state

import (
	"sync"
	"time"
)

// Start records one service start observed by the watcher.
type Start struct {
	Schedule string    `json:"schedule"`
	Service  string    `json:"service"`
	StartsAt time.Time `json:"starts_at"`
}

// Store remembers recent starts so a start is announced once per instance
// even if a watcher restarts around it.
type Store struct {
	mu        sync.RWMutex
	recent    []Start
	retention time.Duration
}

// NewStore creates a store keeping starts for retention.
func NewStore(retention time.Duration) *Store {
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	return &Store{recent: make([]Start, 0, 32), retention: retention}
}

// Record adds st and reports whether it was new.
func (s *Store) Record(st Start) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recent {
		if r.Schedule == st.Schedule && r.Service == st.Service && r.StartsAt.Equal(st.StartsAt) {
			return false
		}
	}
	s.recent = append(s.recent, st)
	s.pruneLocked(st.StartsAt.Add(-s.retention))
	return true
}

// Recent returns a snapshot, optionally limited to one schedule.
func (s *Store) Recent(schedule string) []Start {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Start, 0, len(s.recent))
	for _, r := range s.recent {
		if schedule == "" || r.Schedule == schedule {
			out = append(out, r)
		}
	}
	return out
}

// Prune removes entries that started before cutoff.
func (s *Store) Prune(cutoff time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked(cutoff)
}

func (s *Store) pruneLocked(cutoff time.Time) {
	filtered := s.recent[:0]
	for _, r := range s.recent {
		if !r.StartsAt.Before(cutoff) {
			filtered = append(filtered, r)
		}
	}
	s.recent = filtered
}
