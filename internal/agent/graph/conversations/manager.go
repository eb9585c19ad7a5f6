package conversations

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// SessionManager owns load/mutate/save of conversation state and serialises
// work on the same session so one action finishes before the next starts.
type SessionManager struct {
	repo           model.SessionRepository
	defaultPersona string
	now            func() time.Time

	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionManager(repo model.SessionRepository, config model.SessionConfig) *SessionManager {
	return &SessionManager{
		repo:           repo,
		defaultPersona: config.DefaultPersona,
		now:            time.Now,
		locks:          map[string]*sessionLock{},
	}
}

// Create stores a fresh session with the default persona.
func (m *SessionManager) Create(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	st := model.NewConversationState(sessionID, m.defaultPersona)
	st.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(ctx, st); err != nil {
		return nil, err
	}
	logx.Debug().Str("session_id", sessionID).Msg("session created")
	return st.Clone(), nil
}

// Get returns a snapshot of the session.
func (m *SessionManager) Get(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	st, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return st.Clone(), nil
}

// Update runs fn on the stored state under the session lock and saves the
// result. Nothing is saved when fn fails.
func (m *SessionManager) Update(ctx context.Context, sessionID string, fn func(*model.ConversationState) error) (*model.ConversationState, error) {
	unlock := m.lock(sessionID)
	defer unlock()

	st, err := m.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := fn(st); err != nil {
		return nil, err
	}
	st.UpdatedAt = m.now().UTC()
	if err := m.repo.Save(ctx, st); err != nil {
		logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to save session")
		return nil, err
	}
	return st.Clone(), nil
}

func (m *SessionManager) Delete(ctx context.Context, sessionID string) error {
	unlock := m.lock(sessionID)
	defer unlock()
	return m.repo.Delete(ctx, sessionID)
}

func (m *SessionManager) load(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	st, err := m.repo.Load(ctx, sessionID)
	if errors.Is(err, model.ErrSessionNotFound) {
		return nil, errx.NotFound(err, "session not found")
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

func (m *SessionManager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		m.locks[sessionID] = l
	}
	l.refs++
	m.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.locks, sessionID)
		}
		m.mu.Unlock()
	}
}
