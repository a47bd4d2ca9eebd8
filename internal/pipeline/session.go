package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/irfndi/foresight-go/internal/metrics"
)

// ErrSuperseded is returned by Update when a newer selection arrived before
// the recompute finished. The result was discarded.
var ErrSuperseded = errors.New("selection superseded by a newer update")

// ErrAbandoned is returned by Update when the caller's context ended before
// the recompute finished. The result was discarded and the previous state
// stays published.
var ErrAbandoned = errors.New("selection update abandoned")

// Session owns one user's pipeline state. Readers always observe the last
// fully computed State; a recompute in flight is never visible.
type Session struct {
	id      string
	engine  *Engine
	metrics *metrics.Collector
	publish func(*State)

	mu      sync.Mutex
	version uint64
	cancel  context.CancelFunc

	state      atomic.Pointer[State]
	lastAccess atomic.Int64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithPublishHook runs fn, in version order, each time a state is published.
func WithPublishHook(fn func(*State)) SessionOption {
	return func(s *Session) { s.publish = fn }
}

func WithSessionMetrics(m *metrics.Collector) SessionOption {
	return func(s *Session) { s.metrics = m }
}

// NewSession creates an empty session.
func NewSession(id string, engine *Engine, opts ...SessionOption) *Session {
	s := &Session{id: id, engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	s.Touch()
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Update replaces the selection and recomputes. Any recompute still in flight
// is canceled, and a result is published only if no newer Update started
// meanwhile and ctx is still live.
func (s *Session) Update(ctx context.Context, sel Selection) (*State, error) {
	s.Touch()

	s.mu.Lock()
	s.version++
	version := s.version
	if s.cancel != nil {
		s.cancel()
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	prev := s.state.Load()
	s.mu.Unlock()

	state := s.engine.Recompute(runCtx, sel, prev)
	state.Version = version

	s.mu.Lock()
	defer s.mu.Unlock()
	cancel()

	if s.version != version {
		s.metrics.IncStaleResults()
		return nil, ErrSuperseded
	}
	s.cancel = nil
	if err := ctx.Err(); err != nil {
		s.metrics.IncStaleResults()
		return nil, fmt.Errorf("%w: %w", ErrAbandoned, err)
	}
	s.state.Store(state)
	if s.publish != nil {
		s.publish(state)
	}
	return state, nil
}

// Current returns the last published state, or nil before the first Update.
func (s *Session) Current() *State {
	s.Touch()
	return s.state.Load()
}

// Version returns the number of updates started so far.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// Touch records activity for idle eviction.
func (s *Session) Touch() {
	s.lastAccess.Store(time.Now().UnixNano())
}

// LastAccess returns the time of the most recent activity.
func (s *Session) LastAccess() time.Time {
	return time.Unix(0, s.lastAccess.Load())
}

// Close cancels any recompute in flight. Its result will be discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
