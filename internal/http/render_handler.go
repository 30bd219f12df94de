package http

import (
	"bytes"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/render"
	"chat-llm/internal/service"
)

// RenderHandler segmenta y resalta contenido de mensajes para el navegador.
type RenderHandler struct {
	logger   *zap.Logger
	renderer *render.HTMLRenderer
}

func NewRenderHandler(logger *zap.Logger, renderer *render.HTMLRenderer) *RenderHandler {
	return &RenderHandler{logger: logger, renderer: renderer}
}

// Render maneja POST /render.
func (h *RenderHandler) Render(c *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid render request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	blocks, err := h.renderer.Render(service.Segment(req.Content))
	if err != nil {
		h.logger.Error("render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render content"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"segments": blocks})
}

// ThemeCSS maneja GET /render/theme.css.
func (h *RenderHandler) ThemeCSS(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.renderer.WriteCSS(&buf); err != nil {
		h.logger.Error("write theme css failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render theme"})
		return
	}
	c.Header("Content-Type", "text/css; charset=utf-8")
	c.Data(http.StatusOK, "text/css; charset=utf-8", buf.Bytes())
}
