package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"chat-llm/internal/domain"
	"chat-llm/internal/identity"
	"chat-llm/internal/repository"
)

var (
	ErrAuthServiceNotConfigured = errors.New("auth service not configured")
	ErrInvalidCredentials       = errors.New("invalid credentials")
)

// IdentityProvider resuelve el perfil del usuario a partir del token del proveedor externo.
type IdentityProvider interface {
	UserInfo(ctx context.Context, accessToken string) (domain.User, error)
}

type AuthResult struct {
	User   domain.User `json:"user"`
	Tokens TokenPair   `json:"tokens"`
}

// AuthService resuelve el login con Google y la sesion de la app.
type AuthService struct {
	logger   *zap.Logger
	identity IdentityProvider
	users    repository.UserStore
	tokens   *JWTService
}

func NewAuthService(logger *zap.Logger, identity IdentityProvider, users repository.UserStore, tokens *JWTService) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{logger: logger, identity: identity, users: users, tokens: tokens}
}

func (s *AuthService) SignInWithGoogle(ctx context.Context, accessToken string) (AuthResult, error) {
	if s == nil || s.identity == nil || s.users == nil || s.tokens == nil {
		return AuthResult{}, ErrAuthServiceNotConfigured
	}
	user, err := s.identity.UserInfo(ctx, accessToken)
	if err != nil {
		if errors.Is(err, identity.ErrTokenRejected) || errors.Is(err, identity.ErrTokenRequired) {
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return AuthResult{}, err
	}
	pair, err := s.tokens.GeneratePair(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}
	s.logger.Info("user signed in", zap.String("user_id", user.ID))
	return AuthResult{User: user, Tokens: pair}, nil
}

// CurrentUser recarga el usuario guardado al iniciar sesion.
func (s *AuthService) CurrentUser(ctx context.Context, userID string) (domain.User, error) {
	if s == nil || s.users == nil {
		return domain.User{}, ErrAuthServiceNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return domain.User{}, repository.ErrUserNotFound
	}
	return s.users.Load(ctx, userID)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if s == nil || s.tokens == nil {
		return TokenPair{}, ErrAuthServiceNotConfigured
	}
	return s.tokens.RefreshPair(ctx, refreshToken)
}

// SignOut borra el usuario guardado y revoca el refresh token. Un refresh token
// invalido no impide el cierre de sesion.
func (s *AuthService) SignOut(ctx context.Context, userID, refreshToken string) error {
	if s == nil || s.users == nil || s.tokens == nil {
		return ErrAuthServiceNotConfigured
	}
	if err := s.users.Clear(ctx, userID); err != nil {
		return err
	}
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}
	if err := s.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
		if errors.Is(err, ErrJWTInvalid) || errors.Is(err, ErrJWTExpired) {
			s.logger.Debug("logout with unusable refresh token", zap.String("user_id", userID), zap.Error(err))
			return nil
		}
		return err
	}
	return nil
}
