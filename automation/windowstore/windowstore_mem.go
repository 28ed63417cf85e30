package windowstore

import (
	"context"
	"sync"
	"time"
)

type memWindow struct {
	count   int
	resetAt time.Time
}

// MemWindowStore is the default process-local store. The mutex makes the
// read-modify-write atomic under concurrent rule processing.
type MemWindowStore struct {
	mu      sync.Mutex
	windows map[string]*memWindow

	// overridable for tests
	now func() time.Time
}

func NewMemWindowStore() *MemWindowStore {
	return &MemWindowStore{
		windows: make(map[string]*memWindow),
		now:     time.Now,
	}
}

func (s *MemWindowStore) Allow(ctx context.Context, agent, kind string, max int, window time.Duration) (bool, error) {
	if max < 1 {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := windowKey(agent, kind)
	w, ok := s.windows[key]
	if !ok || !now.Before(w.resetAt) {
		s.windows[key] = &memWindow{count: 1, resetAt: now.Add(window)}
		return true, nil
	}
	if w.count >= max {
		return false, nil
	}
	w.count++
	return true, nil
}
