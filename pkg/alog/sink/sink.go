// Package sink receives query answers. It stands between the query evaluator
// and wherever answers end up: a terminal, a transcript, a test.
package sink

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Answer is one emitted query answer.
type Answer struct {
	Query string // normalized query line
	Form  string // which query form produced it
	Text  string
}

// Sink receives answers in the order queries are evaluated.
type Sink interface {
	Emit(ctx context.Context, a Answer) error
}

// Func adapts a function to Sink.
type Func func(ctx context.Context, a Answer) error

// Emit implements Sink.
func (f Func) Emit(ctx context.Context, a Answer) error { return f(ctx, a) }

// Discard drops every answer.
var Discard Sink = Func(func(context.Context, Answer) error { return nil })

// Writer prints each answer's text on its own line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
	// Prefix is printed before every answer, e.g. "> " echoes.
	Prefix string
}

// NewWriter creates a Writer sink.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Emit implements Sink.
func (s *Writer) Emit(_ context.Context, a Answer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "%s%s\n", s.Prefix, a.Text)
	return err
}

// Collector keeps answers in memory.
type Collector struct {
	mu      sync.Mutex
	answers []Answer
}

// Emit implements Sink.
func (c *Collector) Emit(_ context.Context, a Answer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.answers = append(c.answers, a)
	return nil
}

// Answers returns a copy of everything collected so far.
func (c *Collector) Answers() []Answer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Answer, len(c.answers))
	copy(out, c.answers)
	return out
}

// Texts returns the text of every collected answer.
func (c *Collector) Texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.answers))
	for i, a := range c.answers {
		out[i] = a.Text
	}
	return out
}

// Reset forgets collected answers.
func (c *Collector) Reset() {
	c.mu.Lock()
	c.answers = nil
	c.mu.Unlock()
}

// Multi fans an answer out to every sink in order and stops at the first error.
type Multi []Sink

// Emit implements Sink.
func (m Multi) Emit(ctx context.Context, a Answer) error {
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
