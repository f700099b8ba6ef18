// Package sessions manages conversational sessions: bounded capacity
// with least-recently-active eviction, idle expiry, and per-session
// message history with a hard turn limit.
package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/haasonsaas/netprobe/internal/observability"
)

const (
	// DefaultCapacity bounds concurrently held sessions.
	DefaultCapacity = 10
	// DefaultIdleTimeout expires sessions with no recent activity.
	DefaultIdleTimeout = time.Hour
	// DefaultSweepInterval is the cadence of the idle sweep.
	DefaultSweepInterval = 5 * time.Minute
	// maxHistory bounds the per-session message count.
	maxHistory = 20
	// leadingSystemKeep is how many leading system prompts survive a trim.
	leadingSystemKeep = 2
)

// Message is one conversational turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Session is one conversation's state. All access goes through its
// methods; History returns a copy.
type Session struct {
	ID           string
	CreatedAt    time.Time
	lastActivity time.Time

	mu      sync.Mutex
	history []Message

	// turnMu serializes message processing for this session.
	turnMu sync.Mutex
}

// Append adds a turn and enforces the history bound.
func (s *Session) Append(role, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, Message{Role: role, Content: content})
	s.history = TrimHistory(s.history, maxHistory)
}

// History returns a copy of the session's turns.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len reports the current turn count.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// TrimHistory enforces the turn bound: when over limit, the leading
// system prompts (up to two) are kept and the most recent turns fill the
// remainder.
func TrimHistory(history []Message, limit int) []Message {
	if len(history) <= limit {
		return history
	}
	var lead []Message
	for _, m := range history {
		if m.Role != "system" || len(lead) == leadingSystemKeep {
			break
		}
		lead = append(lead, m)
	}
	keep := limit - len(lead)
	if keep < 0 {
		keep = 0
	}
	tail := history[len(history)-keep:]
	out := make([]Message, 0, limit)
	out = append(out, lead...)
	out = append(out, tail...)
	return out
}

// Manager owns the session table.
type Manager struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	capacity    int
	idleTimeout time.Duration
	now         func() time.Time
	logger      *observability.Logger
	metrics     *observability.Metrics
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithCapacity overrides the session capacity.
func WithCapacity(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.capacity = n
		}
	}
}

// WithIdleTimeout overrides the idle expiry window.
func WithIdleTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.idleTimeout = d
		}
	}
}

// WithClock overrides the manager's clock for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger installs the manager's logger.
func WithLogger(l *observability.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// WithMetrics installs session metrics.
func WithMetrics(mx *observability.Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = mx }
}

// NewManager builds a session manager with the default bounds.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:    make(map[string]*Session),
		capacity:    DefaultCapacity,
		idleTimeout: DefaultIdleTimeout,
		now:         time.Now,
		logger:      observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetOrCreate returns the session for id, creating it when absent. An
// empty id gets a fresh UUID. Both paths refresh last activity.
func (m *Manager) GetOrCreate(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = uuid.NewString()
	}
	if s, ok := m.sessions[id]; ok {
		s.lastActivity = m.now()
		return s
	}

	if len(m.sessions) >= m.capacity {
		m.evictOldestLocked()
	}
	s := &Session{
		ID:           id,
		CreatedAt:    m.now(),
		lastActivity: m.now(),
	}
	m.sessions[id] = s
	m.logger.Debug("session created", "session_id", id, "active", len(m.sessions))
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
	return s
}

// Get returns an existing session without creating one.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if ok {
		s.lastActivity = m.now()
	}
	return s, ok
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	if m.metrics != nil {
		m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}

// Len reports the active session count.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, s := range m.sessions {
		if oldestID == "" || s.lastActivity.Before(oldest) {
			oldestID = id
			oldest = s.lastActivity
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
		m.logger.Debug("session evicted", "session_id", oldestID)
		if m.metrics != nil {
			m.metrics.SessionEvicted.Inc()
		}
	}
}

// SweepIdle removes sessions idle past the timeout and reports how many
// were evicted.
func (m *Manager) SweepIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := m.now().Add(-m.idleTimeout)
	evicted := 0
	for id, s := range m.sessions {
		if s.lastActivity.Before(cutoff) {
			delete(m.sessions, id)
			evicted++
			if m.metrics != nil {
				m.metrics.SessionEvicted.Inc()
			}
		}
	}
	if evicted > 0 {
		m.logger.Info("idle sessions evicted", "count", evicted)
		if m.metrics != nil {
			m.metrics.ActiveSessions.Set(float64(len(m.sessions)))
		}
	}
	return evicted
}

// StartSweeper runs the idle sweep on a fixed cadence until ctx ends.
func (m *Manager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.SweepIdle()
			}
		}
	}()
}
