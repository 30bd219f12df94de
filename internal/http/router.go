package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/service"
)

// RouterDeps agrupa los handlers y servicios que necesita el router.
type RouterDeps struct {
	Auth        *AuthHandler
	Chat        *ChatHandler
	WebSocket   *WebSocketHandler
	Render      *RenderHandler
	JWT         *service.JWTService
	CORSOrigins []string
}

// NewRouter configura el router de Gin con middlewares y rutas.
func NewRouter(logger *zap.Logger, deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Middlewares basicos: logging, recovery, CORS y JSON content-type.
	r.Use(zapLoggerMiddleware(logger), gin.Recovery(), corsMiddleware(deps.CORSOrigins), jsonContentTypeMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	requireAuth := JWTAuthMiddleware(deps.JWT)

	auth := r.Group("/auth")
	auth.GET("/config", deps.Auth.Config)
	auth.POST("/google", deps.Auth.GoogleLogin)
	auth.POST("/refresh", deps.Auth.RefreshToken)
	auth.POST("/logout", requireAuth, deps.Auth.Logout)
	auth.GET("/me", requireAuth, deps.Auth.Me)

	sessions := r.Group("/sessions")
	sessions.GET("", requireAuth, deps.Chat.ListSessions)
	sessions.POST("", requireAuth, deps.Chat.CreateSession)
	sessions.GET("/:id", requireAuth, deps.Chat.GetSession)
	sessions.POST("/:id/messages", requireAuth, deps.Chat.PostMessage)
	sessions.GET("/:id/ws", JWTQueryAuthMiddleware(deps.JWT), deps.WebSocket.Stream)

	r.POST("/render", deps.Render.Render)
	r.GET("/render/theme.css", deps.Render.ThemeCSS)

	return r
}

// zapLoggerMiddleware crea un middleware simple de logging con zap.
func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		latency := time.Since(start)
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// corsMiddleware habilita los origenes del front-end; lista vacia o "*" permite todos.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	cleaned := make([]string, 0, len(origins))
	allowAll := false
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "*" {
			allowAll = true
		}
		if o != "" {
			cleaned = append(cleaned, o)
		}
	}
	if allowAll || len(cleaned) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = cleaned
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// jsonContentTypeMiddleware fuerza Content-Type: application/json en responses.
// SSE y CSS lo sobreescriben antes de escribir.
func jsonContentTypeMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Content-Type", "application/json")
		c.Next()
	}
}
