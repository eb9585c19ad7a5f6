package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
)

// MemorySessionRepository keeps sessions in process. Used when REDIS_URL is unset and in tests.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.ConversationState
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: map[string]*model.ConversationState{}}
}

func (r *MemorySessionRepository) Load(_ context.Context, sessionID string) (*model.ConversationState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.sessions[sessionID]
	if !ok {
		return nil, model.ErrSessionNotFound
	}
	return st.Clone(), nil
}

func (r *MemorySessionRepository) Save(_ context.Context, st *model.ConversationState) error {
	if st == nil || st.ID == "" {
		return errx.Validation("session id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.sessions[st.ID]; ok && len(prev.History) > len(st.History) {
		return fmt.Errorf("session %s: transcript has %d stored entries but state carries %d", st.ID, len(prev.History), len(st.History))
	}
	r.sessions[st.ID] = st.Clone()
	return nil
}

func (r *MemorySessionRepository) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, sessionID)
	return nil
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
