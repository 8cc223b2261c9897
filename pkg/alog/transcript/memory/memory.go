package memory

import (
	"context"
	"sync"

	"github.com/cognicore/alog/pkg/alog/transcript"
)

// Store is an in-memory implementation of transcript.Store for tests.
type Store struct {
	mu      sync.RWMutex
	entries []transcript.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{}
}

// Close implements transcript.Store.
func (s *Store) Close() error { return nil }

// Append implements transcript.Store.
func (s *Store) Append(ctx context.Context, e transcript.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	return nil
}

// Recent implements transcript.Store.
func (s *Store) Recent(ctx context.Context, limit int) ([]transcript.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]transcript.Entry, limit)
	copy(out, s.entries[len(s.entries)-limit:])
	return out, nil
}

// Session implements transcript.Store.
func (s *Store) Session(ctx context.Context, session string) ([]transcript.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []transcript.Entry
	for _, e := range s.entries {
		if e.Session == session {
			out = append(out, e)
		}
	}
	return out, nil
}
