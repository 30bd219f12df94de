package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chat-llm/internal/service"
)

const (
	authClaimsKey   = "auth_claims"
	tokenQueryParam = "token"
)

// JWTAuthMiddleware valida JWT access tokens y guarda claims en el contexto.
func JWTAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return authMiddleware(jwtSvc, false)
}

// JWTQueryAuthMiddleware acepta ademas el token en ?token=, para clientes
// websocket de navegador que no pueden enviar headers.
func JWTQueryAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return authMiddleware(jwtSvc, true)
}

func authMiddleware(jwtSvc *service.JWTService, allowQuery bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			c.Abort()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok && allowQuery {
			token = strings.TrimSpace(c.Query(tokenQueryParam))
			ok = token != ""
		}
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			c.Abort()
			return
		}

		claims, err := jwtSvc.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return token, token != ""
}

// GetAuthClaims obtiene claims de JWT desde el contexto.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	val, ok := c.Get(authClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := val.(service.Claims)
	return claims, ok
}
