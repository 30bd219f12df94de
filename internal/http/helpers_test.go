package http

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chat-llm/internal/domain"
	"chat-llm/internal/llm"
	"chat-llm/internal/render"
	"chat-llm/internal/repository"
	"chat-llm/internal/service"
)

type stubIdentity struct {
	user domain.User
	err  error
}

func (s *stubIdentity) UserInfo(context.Context, string) (domain.User, error) {
	if s.err != nil {
		return domain.User{}, s.err
	}
	return s.user, nil
}

type testEnv struct {
	router   *gin.Engine
	jwt      *service.JWTService
	chat     *service.ChatService
	users    repository.UserStore
	identity *stubIdentity
	token    string
	user     domain.User
}

func newTestEnv(t *testing.T, completer llm.Completer) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	user := domain.User{ID: "u1", Email: "ana@example.com", Name: "Ana"}
	identity := &stubIdentity{user: user}
	users := repository.NewMemoryUserStore()
	jwtSvc := service.NewJWTServiceWithStore("secret", 15*time.Minute, time.Hour, service.NewMemoryRefreshTokenStore())
	authSvc := service.NewAuthService(logger, identity, users, jwtSvc)
	chatSvc := service.NewChatService(logger, repository.NewMemorySessionRepository(), completer, "")

	router := NewRouter(logger, RouterDeps{
		Auth:      NewAuthHandler(logger, authSvc, "client-id"),
		Chat:      NewChatHandler(logger, chatSvc),
		WebSocket: NewWebSocketHandler(logger, chatSvc, nil),
		Render:    NewRenderHandler(logger, render.NewHTMLRenderer("")),
		JWT:       jwtSvc,
	})

	if err := users.Save(context.Background(), user); err != nil {
		t.Fatalf("save user: %v", err)
	}
	pair, err := jwtSvc.GeneratePair(context.Background(), user)
	if err != nil {
		t.Fatalf("generate pair: %v", err)
	}

	return &testEnv{
		router:   router,
		jwt:      jwtSvc,
		chat:     chatSvc,
		users:    users,
		identity: identity,
		token:    pair.AccessToken,
		user:     user,
	}
}
