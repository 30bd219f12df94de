package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"chat-llm/internal/domain"
)

const (
	// DefaultUserInfoURL es el endpoint OIDC de Google que devuelve el perfil del token.
	DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	// DefaultTokenInfoURL describe un access token: cliente emisor, sub y expiracion.
	DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"
)

var (
	ErrTokenRequired         = errors.New("access token required")
	ErrTokenRejected         = errors.New("google rejected the access token")
	ErrClientIDNotConfigured = errors.New("google client id not configured")
)

// GoogleConfig agrupa el client ID esperado y los endpoints de Google.
type GoogleConfig struct {
	ClientID     string
	UserInfoURL  string
	TokenInfoURL string
}

// GoogleProvider intercambia un access token de Google por el perfil del usuario.
// Solo acepta tokens emitidos para ClientID.
type GoogleProvider struct {
	clientID     string
	userInfoURL  string
	tokenInfoURL string
	client       *http.Client
	logger       *zap.Logger
}

func NewGoogleProvider(cfg GoogleConfig, client *http.Client, logger *zap.Logger) *GoogleProvider {
	if strings.TrimSpace(cfg.UserInfoURL) == "" {
		cfg.UserInfoURL = DefaultUserInfoURL
	}
	if strings.TrimSpace(cfg.TokenInfoURL) == "" {
		cfg.TokenInfoURL = DefaultTokenInfoURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoogleProvider{
		clientID:     strings.TrimSpace(cfg.ClientID),
		userInfoURL:  cfg.UserInfoURL,
		tokenInfoURL: cfg.TokenInfoURL,
		client:       client,
		logger:       logger,
	}
}

type tokenInfo struct {
	Aud string `json:"aud"`
	Azp string `json:"azp"`
	Sub string `json:"sub"`
}

type userInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// UserInfo verifica que accessToken fue emitido para el client ID configurado y
// consulta el perfil asociado.
func (p *GoogleProvider) UserInfo(ctx context.Context, accessToken string) (domain.User, error) {
	if p == nil {
		return domain.User{}, errors.New("google provider not configured")
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return domain.User{}, ErrTokenRequired
	}
	if p.clientID == "" {
		return domain.User{}, ErrClientIDNotConfigured
	}

	ti, err := p.tokenInfo(ctx, accessToken)
	if err != nil {
		return domain.User{}, err
	}
	if ti.Aud != p.clientID && ti.Azp != p.clientID {
		p.logger.Warn("google token issued to another client", zap.String("aud", ti.Aud), zap.String("azp", ti.Azp))
		return domain.User{}, ErrTokenRejected
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return domain.User{}, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return domain.User{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return domain.User{}, ErrTokenRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.Warn("userinfo error status", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return domain.User{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return domain.User{}, fmt.Errorf("decode userinfo: %w", err)
	}
	if strings.TrimSpace(info.Sub) == "" {
		return domain.User{}, ErrTokenRejected
	}
	if ti.Sub != "" && ti.Sub != info.Sub {
		p.logger.Warn("google token subject mismatch")
		return domain.User{}, ErrTokenRejected
	}
	return domain.User{
		ID:      info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}

func (p *GoogleProvider) tokenInfo(ctx context.Context, accessToken string) (tokenInfo, error) {
	form := url.Values{"access_token": {accessToken}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenInfoURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenInfo{}, fmt.Errorf("create tokeninfo request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return tokenInfo{}, fmt.Errorf("fetch tokeninfo: %w", err)
	}
	defer resp.Body.Close()

	// Google responde 400 para tokens invalidos o expirados.
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return tokenInfo{}, ErrTokenRejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		p.logger.Warn("tokeninfo error status", zap.Int("status", resp.StatusCode), zap.String("body", string(body)))
		return tokenInfo{}, fmt.Errorf("tokeninfo status %d", resp.StatusCode)
	}

	var ti tokenInfo
	if err := json.NewDecoder(resp.Body).Decode(&ti); err != nil {
		return tokenInfo{}, fmt.Errorf("decode tokeninfo: %w", err)
	}
	return ti, nil
}
