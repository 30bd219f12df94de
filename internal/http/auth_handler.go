package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/repository"
	"chat-llm/internal/service"
)

// AuthHandler expone el login con Google y la sesion de la app.
type AuthHandler struct {
	logger         *zap.Logger
	authServ       *service.AuthService
	googleClientID string
}

func NewAuthHandler(logger *zap.Logger, authServ *service.AuthService, googleClientID string) *AuthHandler {
	return &AuthHandler{
		logger:         logger,
		authServ:       authServ,
		googleClientID: googleClientID,
	}
}

// Config maneja GET /auth/config.
func (h *AuthHandler) Config(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"google_client_id": h.googleClientID})
}

// GoogleLogin maneja POST /auth/google.
func (h *AuthHandler) GoogleLogin(c *gin.Context) {
	var req struct {
		AccessToken string `json:"access_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid google login request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	res, err := h.authServ.SignInWithGoogle(c.Request.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("google login failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not complete login"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": res.User, "tokens": res.Tokens})
}

// Me maneja GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	user, err := h.authServ.CurrentUser(c.Request.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		h.logger.Error("load current user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RefreshToken maneja POST /auth/refresh.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid refresh request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	tokens, err := h.authServ.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrAuthServiceNotConfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Logout maneja POST /auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("invalid logout request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if err := h.authServ.SignOut(c.Request.Context(), claims.UserID, req.RefreshToken); err != nil {
		h.logger.Error("logout failed", zap.Error(err), zap.String("user_id", claims.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not logout"})
		return
	}
	c.Status(http.StatusNoContent)
}
