package http

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/domain"
	"chat-llm/internal/service"
)

// Eventos emitidos durante el envio de un mensaje.
const (
	eventUser    = "user"
	eventDelta   = "delta"
	eventMessage = "message"
	eventError   = "error"
)

// ChatHandler mantiene dependencias para endpoints de sesiones y mensajes.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
	}
}

// ListSessions maneja GET /sessions.
func (h *ChatHandler) ListSessions(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	sessions, err := h.chatServ.ListSessions(c.Request.Context(), claims.UserID)
	if err != nil {
		h.respondError(c, "list sessions failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// CreateSession maneja POST /sessions.
func (h *ChatHandler) CreateSession(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	session, err := h.chatServ.CreateSession(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrCurrentSessionEmpty) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "session": session})
			return
		}
		h.respondError(c, "create session failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": session})
}

// GetSession maneja GET /sessions/:id.
func (h *ChatHandler) GetSession(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	session, err := h.chatServ.GetSession(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, "get session failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session})
}

// PostMessage maneja POST /sessions/:id/messages. La respuesta se transmite como
// text/event-stream; los errores previos al primer evento se responden como JSON.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid post message request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	stream := newEventWriter(c)
	reply, err := h.chatServ.SendMessage(c.Request.Context(), claims.UserID, c.Param("id"), req.Content, service.SendCallbacks{
		OnUserMessage: func(msg domain.ChatMessage) {
			stream.emit(eventUser, gin.H{"message": msg})
		},
		OnDelta: func(fragment, content string) {
			stream.emit(eventDelta, gin.H{"fragment": fragment, "content": content})
		},
	})
	if err != nil {
		status, msg := errorStatus(err)
		h.logger.Warn("send message failed",
			zap.String("session_id", c.Param("id")),
			zap.Int("status", status),
			zap.Error(err),
		)
		if !stream.started {
			c.JSON(status, gin.H{"error": msg})
			return
		}
		stream.emit(eventError, gin.H{"error": msg, "status": status})
		return
	}
	stream.emit(eventMessage, gin.H{"message": reply})
}

func (h *ChatHandler) respondError(c *gin.Context, logMsg string, err error) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(logMsg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}

// eventWriter abre la respuesta SSE con el primer evento.
type eventWriter struct {
	c       *gin.Context
	started bool
}

func newEventWriter(c *gin.Context) *eventWriter {
	return &eventWriter{c: c}
}

func (w *eventWriter) emit(event string, data any) {
	if !w.started {
		header := w.c.Writer.Header()
		header.Set("Content-Type", "text/event-stream")
		header.Set("Cache-Control", "no-cache")
		header.Set("Connection", "keep-alive")
		header.Set("X-Accel-Buffering", "no")
		w.c.Status(http.StatusOK)
		w.started = true
	}
	_ = sse.Encode(w.c.Writer, sse.Event{Event: event, Data: data})
	w.c.Writer.Flush()
}
