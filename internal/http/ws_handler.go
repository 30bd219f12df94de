package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chat-llm/internal/domain"
	"chat-llm/internal/service"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsPingInterval = 54 * time.Second
	wsWriteTimeout = 10 * time.Second
)

type wsInbound struct {
	Content string `json:"content"`
}

type wsOutbound struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// WebSocketHandler transmite los mismos eventos que el endpoint SSE sobre un websocket.
type WebSocketHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(logger *zap.Logger, chatServ *service.ChatService, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		logger:   logger,
		chatServ: chatServ,
		upgrader: websocket.Upgrader{
			CheckOrigin:     originChecker(allowedOrigins),
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Stream maneja GET /sessions/:id/ws.
func (h *WebSocketHandler) Stream(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	sessionID := c.Param("id")
	if _, err := h.chatServ.GetSession(c.Request.Context(), claims.UserID, sessionID); err != nil {
		status, msg := errorStatus(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// El contexto de una conexion hijacked no se cancela al cerrarse el socket;
	// lo cancelan el loop de lectura o una escritura fallida.
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := &wsWriter{conn: conn, sessionID: sessionID, cancel: cancel}
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})
	go out.pingLoop(ctx)

	h.logger.Info("websocket connected", zap.String("session_id", sessionID), zap.String("user_id", claims.UserID))

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	// La lectura sigue durante el stream: un cierre del cliente corta la respuesta
	// en curso y un segundo envio concurrente recibe ErrRequestInFlight.
	for {
		var msg wsInbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		wg.Add(1)
		go func(content string) {
			defer wg.Done()
			h.handleMessage(ctx, out, claims.UserID, content)
		}(msg.Content)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, out *wsWriter, userID, content string) {
	reply, err := h.chatServ.SendMessage(ctx, userID, out.sessionID, content, service.SendCallbacks{
		OnUserMessage: func(msg domain.ChatMessage) {
			out.send(eventUser, gin.H{"message": msg})
		},
		OnDelta: func(fragment, content string) {
			out.send(eventDelta, gin.H{"fragment": fragment, "content": content})
		},
	})
	if err != nil {
		if ctx.Err() != nil {
			h.logger.Info("websocket send cancelled", zap.String("session_id", out.sessionID), zap.Error(err))
			return
		}
		status, msg := errorStatus(err)
		h.logger.Warn("websocket send failed", zap.String("session_id", out.sessionID), zap.Error(err))
		out.send(eventError, gin.H{"error": msg, "status": status})
		return
	}
	out.send(eventMessage, gin.H{"message": reply})
}

// wsWriter serializa las escrituras: gorilla admite un solo writer concurrente.
type wsWriter struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	cancel    context.CancelFunc
}

func (w *wsWriter) send(event string, data any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	err := w.conn.WriteJSON(wsOutbound{
		Type:      event,
		SessionID: w.sessionID,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	})
	if err != nil && w.cancel != nil {
		w.cancel()
	}
}

func (w *wsWriter) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			err := w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
			w.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// originChecker acepta los origenes configurados para CORS; sin lista acepta todos.
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
