// Package session tracks the live pipeline sessions of this process and
// persists their published states.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/irfndi/foresight-go/internal/config"
	"github.com/irfndi/foresight-go/internal/logging"
	"github.com/irfndi/foresight-go/internal/metrics"
	"github.com/irfndi/foresight-go/internal/pipeline"
	"github.com/sirupsen/logrus"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many active sessions")
	// ErrNoState is returned for a live session whose selection was never set.
	ErrNoState = errors.New("session has no computed state yet")
)

const snapshotTimeout = 5 * time.Second

// SnapshotStore persists published states so they survive eviction and can
// be read from another replica.
type SnapshotStore interface {
	Save(ctx context.Context, sessionID string, state *pipeline.State) error
	Load(ctx context.Context, sessionID string) (*pipeline.State, bool, error)
	Delete(ctx context.Context, sessionID string) error
	Touch(ctx context.Context, sessionID string) error
}

// Manager owns the in-memory sessions.
type Manager struct {
	engine      *pipeline.Engine
	store       SnapshotStore
	metrics     *metrics.Collector
	events      *logging.EventLogger
	logger      *logrus.Logger
	ttl         time.Duration
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*pipeline.Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithStore persists every published state to store.
func WithStore(store SnapshotStore) ManagerOption {
	return func(m *Manager) { m.store = store }
}

func WithMetrics(c *metrics.Collector) ManagerOption {
	return func(m *Manager) { m.metrics = c }
}

func WithLogger(l *logrus.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

func WithEventLogger(e *logging.EventLogger) ManagerOption {
	return func(m *Manager) { m.events = e }
}

// NewManager creates a manager that builds sessions over engine.
func NewManager(engine *pipeline.Engine, cfg config.SessionConfig, opts ...ManagerOption) *Manager {
	m := &Manager{
		engine:      engine,
		ttl:         cfg.SessionTTL(),
		maxSessions: cfg.MaxSessions,
		logger:      logrus.StandardLogger(),
		sessions:    make(map[string]*pipeline.Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the idle timeout after which sessions are evicted.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Create registers a new empty session.
func (m *Manager) Create() (*pipeline.Session, error) {
	id := uuid.NewString()

	m.mu.Lock()
	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: limit is %d", ErrTooManySessions, m.maxSessions)
	}
	s := pipeline.NewSession(id, m.engine,
		pipeline.WithSessionMetrics(m.metrics),
		pipeline.WithPublishHook(m.publishHook(id)),
	)
	m.sessions[id] = s
	n := len(m.sessions)
	m.mu.Unlock()

	m.metrics.SetActiveSessions(n)
	m.logger.WithField("session_id", id).Debug("Session created")
	return s, nil
}

// Get returns a live session.
func (m *Manager) Get(id string) (*pipeline.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Update replaces the selection of session id and recomputes its state.
func (m *Manager) Update(ctx context.Context, id string, sel pipeline.Selection) (*pipeline.State, error) {
	s, ok := m.Get(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Update(ctx, sel)
}

// State returns the last published state of session id, from memory or,
// for sessions not held by this process, from the snapshot store.
func (m *Manager) State(ctx context.Context, id string) (*pipeline.State, error) {
	if s, ok := m.Get(id); ok {
		if state := s.Current(); state != nil {
			return state, nil
		}
		return nil, ErrNoState
	}

	if m.store == nil {
		return nil, ErrSessionNotFound
	}
	state, found, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load session snapshot: %w", err)
	}
	if !found {
		return nil, ErrSessionNotFound
	}
	// Reads from another replica keep the snapshot alive.
	if err := m.store.Touch(ctx, id); err != nil {
		m.logger.WithError(err).WithField("session_id", id).Debug("Failed to extend session snapshot TTL")
	}
	return state, nil
}

// Delete closes session id and removes its snapshot.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	n := len(m.sessions)
	m.mu.Unlock()

	if ok {
		s.Close()
		m.metrics.SetActiveSessions(n)
	}

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			return err
		}
	} else if !ok {
		return ErrSessionNotFound
	}
	return nil
}

// EvictIdle drops sessions idle for longer than the TTL and returns how many
// were dropped. Snapshots expire on their own.
func (m *Manager) EvictIdle(now time.Time) int {
	m.mu.Lock()
	var evicted []*pipeline.Session
	for id, s := range m.sessions {
		if now.Sub(s.LastAccess()) > m.ttl {
			evicted = append(evicted, s)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, s := range evicted {
		s.Close()
	}
	if len(evicted) > 0 {
		m.metrics.SetActiveSessions(n)
	}
	return len(evicted)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CloseAll cancels every recompute in flight and forgets all sessions.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*pipeline.Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	m.metrics.SetActiveSessions(0)
}

func (m *Manager) publishHook(id string) func(*pipeline.State) {
	return func(state *pipeline.State) {
		statuses := state.Statuses()
		fields := logrus.Fields{"session_id": id, "version": state.Version}
		details := make(map[string]interface{}, len(statuses))
		for name, status := range statuses {
			fields[string(name)] = status
			details[string(name)] = string(status)
		}
		m.logger.WithFields(fields).Info("Session state published")
		if m.events != nil {
			m.events.LogRecompute(id, state.Version, details)
		}

		if m.store == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
		defer cancel()
		if err := m.store.Save(ctx, id, state); err != nil {
			m.logger.WithError(err).WithField("session_id", id).Warn("Failed to persist session snapshot")
		}
	}
}
