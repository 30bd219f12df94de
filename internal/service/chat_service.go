package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chat-llm/internal/domain"
	"chat-llm/internal/llm"
	"chat-llm/internal/repository"
)

const (
	DefaultSessionTitle = "New chat"
	titleMaxRunes       = 30
)

var (
	ErrChatServiceNotConfigured = errors.New("chat service not configured")
	ErrEmptyContent             = errors.New("message content is empty")
	ErrRequestInFlight          = errors.New("a response is already streaming for this session")
	ErrCurrentSessionEmpty      = errors.New("send a message in the current chat before starting a new one")
)

// SendCallbacks recibe los eventos de un envio. Ambos campos son opcionales.
type SendCallbacks struct {
	OnUserMessage func(domain.ChatMessage)
	OnDelta       PublishFunc
}

// ChatService administra sesiones de chat y el envio de mensajes al modelo.
type ChatService struct {
	logger       *zap.Logger
	sessions     repository.SessionRepository
	completer    llm.Completer
	defaultTitle string
	now          func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{}

	// createMu serializa la verificacion y el alta en CreateSession.
	createMu sync.Mutex
}

func NewChatService(logger *zap.Logger, sessions repository.SessionRepository, completer llm.Completer, defaultTitle string) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(defaultTitle) == "" {
		defaultTitle = DefaultSessionTitle
	}
	return &ChatService{
		logger:       logger,
		sessions:     sessions,
		completer:    completer,
		defaultTitle: defaultTitle,
		now:          time.Now,
		inFlight:     make(map[string]struct{}),
	}
}

// CreateSession abre una sesion vacia. Si la sesion mas reciente del usuario
// todavia no tiene mensajes la devuelve junto con ErrCurrentSessionEmpty.
func (s *ChatService) CreateSession(ctx context.Context, userID string) (domain.ChatSession, error) {
	if s == nil || s.sessions == nil {
		return domain.ChatSession{}, ErrChatServiceNotConfigured
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.ChatSession{}, errors.New("user id required")
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	existing, err := s.sessions.ListByUserID(ctx, userID)
	if err != nil {
		return domain.ChatSession{}, err
	}
	if len(existing) > 0 && len(existing[0].Messages) == 0 {
		return existing[0], ErrCurrentSessionEmpty
	}

	session := domain.ChatSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     s.defaultTitle,
		Timestamp: s.now().UnixMilli(),
		Messages:  []domain.ChatMessage{},
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return domain.ChatSession{}, err
	}
	s.logger.Info("chat session created", zap.String("session_id", session.ID), zap.String("user_id", userID))
	return session, nil
}

func (s *ChatService) ListSessions(ctx context.Context, userID string) ([]domain.ChatSession, error) {
	if s == nil || s.sessions == nil {
		return nil, ErrChatServiceNotConfigured
	}
	return s.sessions.ListByUserID(ctx, strings.TrimSpace(userID))
}

// GetSession devuelve la sesion solo si pertenece a userID.
func (s *ChatService) GetSession(ctx context.Context, userID, sessionID string) (domain.ChatSession, error) {
	if s == nil || s.sessions == nil {
		return domain.ChatSession{}, ErrChatServiceNotConfigured
	}
	session, err := s.sessions.GetByID(ctx, strings.TrimSpace(sessionID))
	if err != nil {
		return domain.ChatSession{}, err
	}
	if session.UserID != strings.TrimSpace(userID) {
		return domain.ChatSession{}, repository.ErrSessionNotFound
	}
	return session, nil
}

// SendMessage agrega el mensaje del usuario, envia el historial completo al
// modelo y agrega la respuesta acumulada como mensaje del asistente. Si el
// stream falla el mensaje del usuario queda en la sesion.
func (s *ChatService) SendMessage(ctx context.Context, userID, sessionID, content string, cb SendCallbacks) (domain.ChatMessage, error) {
	if s == nil || s.sessions == nil || s.completer == nil {
		return domain.ChatMessage{}, ErrChatServiceNotConfigured
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ChatMessage{}, ErrEmptyContent
	}

	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if !s.acquire(session.ID) {
		return domain.ChatMessage{}, ErrRequestInFlight
	}
	defer s.release(session.ID)

	// Releer dentro del guard: otro envio pudo terminar entre GetSession y acquire.
	session, err = s.sessions.GetByID(ctx, session.ID)
	if err != nil {
		return domain.ChatMessage{}, err
	}

	userMsg := s.newMessage(session, domain.RoleUser, content)
	session.Messages = append(session.Messages, userMsg)
	session.LastMessage = content
	session.Timestamp = userMsg.Timestamp
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.ChatMessage{}, err
	}
	if cb.OnUserMessage != nil {
		cb.OnUserMessage(userMsg)
	}

	stream, err := s.completer.Complete(ctx, history(session.Messages))
	if err != nil {
		s.logger.Warn("completion failed", zap.String("session_id", session.ID), zap.Error(err))
		return domain.ChatMessage{}, err
	}
	reply, err := Accumulate(ctx, stream, cb.OnDelta)
	if err != nil {
		s.logger.Warn("stream failed", zap.String("session_id", session.ID), zap.Error(err))
		return domain.ChatMessage{}, err
	}

	assistantMsg := s.newMessage(session, domain.RoleAssistant, reply)
	session.Messages = append(session.Messages, assistantMsg)
	session.Title = s.deriveTitle(session.Messages)
	session.LastMessage = reply
	session.Timestamp = assistantMsg.Timestamp
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.ChatMessage{}, err
	}

	s.logger.Info("assistant reply stored",
		zap.String("session_id", session.ID),
		zap.Int("messages", len(session.Messages)),
		zap.Int("reply_len", len(reply)),
	)
	return assistantMsg, nil
}

// CanCreateSession indica si el usuario puede abrir una nueva sesion.
func (s *ChatService) CanCreateSession(ctx context.Context, userID string) (bool, error) {
	sessions, err := s.ListSessions(ctx, userID)
	if err != nil {
		return false, err
	}
	return len(sessions) == 0 || len(sessions[0].Messages) > 0, nil
}

func (s *ChatService) acquire(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[sessionID]; busy {
		return false
	}
	s.inFlight[sessionID] = struct{}{}
	return true
}

func (s *ChatService) release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, sessionID)
}

// newMessage usa un timestamp que nunca retrocede respecto del ultimo mensaje.
func (s *ChatService) newMessage(session domain.ChatSession, role, content string) domain.ChatMessage {
	ts := s.now().UnixMilli()
	if n := len(session.Messages); n > 0 && session.Messages[n-1].Timestamp > ts {
		ts = session.Messages[n-1].Timestamp
	}
	return domain.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: ts,
		SessionID: session.ID,
	}
}

func (s *ChatService) deriveTitle(messages []domain.ChatMessage) string {
	return DeriveTitle(messages, s.defaultTitle)
}

// DeriveTitle toma los primeros 30 caracteres del primer mensaje del usuario.
func DeriveTitle(messages []domain.ChatMessage, fallback string) string {
	for _, m := range messages {
		if m.Role != domain.RoleUser {
			continue
		}
		runes := []rune(m.Content)
		if len(runes) > titleMaxRunes {
			return string(runes[:titleMaxRunes]) + "..."
		}
		return m.Content
	}
	return fallback
}

func history(messages []domain.ChatMessage) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
