package repository

import (
	"context"
	"errors"
	"sync"

	"chat-llm/internal/domain"
)

// ErrSessionNotFound se devuelve cuando la sesion no existe.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository define el contrato de almacenamiento de sesiones de chat.
type SessionRepository interface {
	Create(ctx context.Context, session domain.ChatSession) error
	GetByID(ctx context.Context, id string) (domain.ChatSession, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.ChatSession, error)
	Save(ctx context.Context, session domain.ChatSession) error
}

// MemorySessionRepository guarda las sesiones en memoria del proceso.
// Las sesiones viven lo que vive el proceso.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]domain.ChatSession
	order    []string
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]domain.ChatSession),
	}
}

func (r *MemorySessionRepository) Create(_ context.Context, session domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; ok {
		return errors.New("session already exists")
	}
	r.sessions[session.ID] = session.Clone()
	r.order = append(r.order, session.ID)
	return nil
}

func (r *MemorySessionRepository) GetByID(_ context.Context, id string) (domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return domain.ChatSession{}, ErrSessionNotFound
	}
	return session.Clone(), nil
}

// ListByUserID devuelve las sesiones del usuario, la creada mas recientemente primero.
func (r *MemorySessionRepository) ListByUserID(_ context.Context, userID string) ([]domain.ChatSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ChatSession, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		session := r.sessions[r.order[i]]
		if session.UserID == userID {
			out = append(out, session.Clone())
		}
	}
	return out, nil
}

func (r *MemorySessionRepository) Save(_ context.Context, session domain.ChatSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[session.ID] = session.Clone()
	return nil
}
