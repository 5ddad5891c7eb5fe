// session/memory.go
package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory. Sessions are lost on
// restart and are not shared between instances.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Record
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// NewMemoryStore starts a store that sweeps expired sessions every interval
// (10 minutes when interval <= 0).
func NewMemoryStore(interval time.Duration) *MemoryStore {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	s := &MemoryStore{
		sessions: make(map[string]*Record),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go s.sweep(interval)
	return s
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if time.Now().After(rec.ExpiresAt) {
		return nil, ErrExpired
	}
	return copyRecord(rec), nil
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[rec.ID] = copyRecord(rec)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

// Close stops the sweeper. It is safe to call more than once.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) sweep(interval time.Duration) {
	defer close(s.doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.removeExpired(time.Now())
		}
	}
}

func (s *MemoryStore) removeExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, rec := range s.sessions {
		if now.After(rec.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
}

func copyRecord(rec *Record) *Record {
	data := make(map[string]string, len(rec.Data))
	for k, v := range rec.Data {
		data[k] = v
	}
	return &Record{
		ID:        rec.ID,
		Data:      data,
		ExpiresAt: rec.ExpiresAt,
		UpdatedAt: rec.UpdatedAt,
	}
}
