package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/dtiscope/internal/infrastructure/monitoring/logging"
	apperrors "github.com/turtacn/dtiscope/pkg/errors"
)

// ManagerConfig bounds the registry.
type ManagerConfig struct {
	IdleTTL       time.Duration
	MaxSessions   int
	SweepInterval time.Duration
}

// Manager owns the live sessions.
type Manager struct {
	cfg  ManagerConfig
	deps Deps

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewManager returns an empty Manager.
func NewManager(cfg ManagerConfig, deps Deps) *Manager {
	deps.applyDefaults()
	deps.Logger = deps.Logger.Named("session")
	return &Manager{cfg: cfg, deps: deps, sessions: make(map[string]*Session)}
}

// Create starts a new session.  It fails with SES_002 when MaxSessions are
// already live.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, apperrors.New(apperrors.ErrCodeServiceUnavailable, "session manager closed")
	}
	if m.cfg.MaxSessions > 0 && len(m.sessions) >= m.cfg.MaxSessions {
		return nil, apperrors.New(apperrors.ErrCodeSessionLimitExceeded, "").
			WithDetail("max_sessions reached")
	}
	s := New(uuid.NewString(), m.deps)
	m.sessions[s.ID] = s
	m.deps.Metrics.ActiveSessions.WithLabelValues().Set(float64(len(m.sessions)))
	m.deps.Logger.Info("session created", logging.String(logging.FieldSessionID, s.ID))
	return s, nil
}

// Get returns the session and marks it active.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeSessionNotFound, "").WithDetail(id)
	}
	s.Touch()
	return s, nil
}

// Delete closes and removes the session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
		m.deps.Metrics.ActiveSessions.WithLabelValues().Set(float64(len(m.sessions)))
	}
	m.mu.Unlock()
	if !ok {
		return apperrors.New(apperrors.ErrCodeSessionNotFound, "").WithDetail(id)
	}
	s.Close()
	m.deps.Logger.Info("session deleted", logging.String(logging.FieldSessionID, id))
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep closes sessions idle for longer than IdleTTL as of now and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	if m.cfg.IdleTTL <= 0 {
		return 0
	}
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if now.Sub(s.LastActive()) > m.cfg.IdleTTL {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.deps.Metrics.ActiveSessions.WithLabelValues().Set(float64(len(m.sessions)))
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	if len(expired) > 0 {
		m.deps.Logger.Info("expired idle sessions", logging.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps every SweepInterval until ctx is done.
func (m *Manager) Run(ctx context.Context) error {
	if m.cfg.SweepInterval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(m.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}

// Close closes every session.  Create fails afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.sessions = make(map[string]*Session)
	m.deps.Metrics.ActiveSessions.WithLabelValues().Set(0)
	m.mu.Unlock()

	for _, s := range all {
		s.Close()
	}
}

//Personal.AI order the ending
