// Package transcript records the answers a session produced. Only answers are
// kept; the knowledge base itself is rebuilt from its statements on every run.
package transcript

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/cognicore/alog/pkg/alog/sink"
)

// Store is the interface for persisting transcript entries.
type Store interface {
	Close() error

	Append(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, oldest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Session returns every entry of one session, oldest first.
	Session(ctx context.Context, session string) ([]Entry, error)
}

// Entry is one answered query.
type Entry struct {
	ID      string // ULID, sorts by time
	Session string
	Query   string
	Form    string
	Answer  string
	AskedAt time.Time
}

// Sink writes every answer it receives to a Store.
type Sink struct {
	mu      sync.Mutex
	store   Store
	session string
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewSink creates a sink for one session. An empty session gets a random ID.
func NewSink(store Store, session string) *Sink {
	if session == "" {
		session = uuid.NewString()
	}
	return &Sink{
		store:   store,
		session: session,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Session returns the session ID entries are written under.
func (s *Sink) Session() string { return s.session }

// Emit implements sink.Sink.
func (s *Sink) Emit(ctx context.Context, a sink.Answer) error {
	s.mu.Lock()
	now := s.now().UTC()
	id := ulid.MustNew(ulid.Timestamp(now), s.entropy).String()
	s.mu.Unlock()

	return s.store.Append(ctx, Entry{
		ID:      id,
		Session: s.session,
		Query:   a.Query,
		Form:    a.Form,
		Answer:  a.Text,
		AskedAt: now,
	})
}
