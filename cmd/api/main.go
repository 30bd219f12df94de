package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chat-llm/internal/config"
	apihttp "chat-llm/internal/http"
	"chat-llm/internal/identity"
	"chat-llm/internal/llm"
	"chat-llm/internal/render"
	"chat-llm/internal/repository"
	"chat-llm/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	var (
		userStore  = repository.NewMemoryUserStore()
		tokenStore = service.NewMemoryRefreshTokenStore()
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory stores", zap.Error(err))
		} else {
			userStore = repository.NewRedisUserStore(redisClient, cfg.RefreshTTL())
			tokenStore = service.NewRedisRefreshTokenStore(redisClient)
		}
		cancel()
	}

	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, logger,
		llm.WithSampling(cfg.LLMTemperature, cfg.LLMMaxTokens),
	)
	jwtSvc := service.NewJWTServiceWithStore(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL(), tokenStore)
	googleProvider := identity.NewGoogleProvider(identity.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		UserInfoURL:  cfg.GoogleUserInfoURL,
		TokenInfoURL: cfg.GoogleTokenInfoURL,
	}, nil, logger)

	authSvc := service.NewAuthService(logger, googleProvider, userStore, jwtSvc)
	chatSvc := service.NewChatService(logger, repository.NewMemorySessionRepository(), llmClient, cfg.DefaultSessionTitle)

	router := apihttp.NewRouter(logger, apihttp.RouterDeps{
		Auth:        apihttp.NewAuthHandler(logger, authSvc, cfg.GoogleClientID),
		Chat:        apihttp.NewChatHandler(logger, chatSvc),
		WebSocket:   apihttp.NewWebSocketHandler(logger, chatSvc, cfg.CORSOrigins),
		Render:      apihttp.NewRenderHandler(logger, render.NewHTMLRenderer("")),
		JWT:         jwtSvc,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("model", cfg.LLMModel))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}
