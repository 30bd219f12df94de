package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultBaseURL     = "https://api.groq.com/openai/v1"
	DefaultModel       = "llama-3.2-90b-text-preview"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096

	maxErrorBody = 1 << 20
)

// HTTPClient implementa Completer contra un endpoint chat/completions compatible con OpenAI.
type HTTPClient struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	client      *http.Client
	logger      *zap.Logger
}

// Option ajusta un HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient reemplaza el *http.Client usado para las requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithSampling fija temperature y max_tokens. Valores no positivos conservan el default.
func WithSampling(temperature float64, maxTokens int) Option {
	return func(c *HTTPClient) {
		if temperature > 0 {
			c.temperature = temperature
		}
		if maxTokens > 0 {
			c.maxTokens = maxTokens
		}
	}
}

// NewHTTPClient construye un cliente de streaming. La API key se valida en cada Complete.
func NewHTTPClient(baseURL, apiKey, model string, logger *zap.Logger, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
		// Sin Timeout global: el stream puede durar minutos y se corta via contexto.
		client: &http.Client{
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 60 * time.Second,
			},
		},
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete envia el historial y devuelve el stream de fragmentos. Falla antes de
// producir fragmentos si falta la API key o si el handshake no es exitoso.
func (c *HTTPClient) Complete(ctx context.Context, messages []Message) (FragmentStream, error) {
	if c == nil || strings.TrimSpace(c.apiKey) == "" {
		return nil, &ConfigurationError{Message: "API key is not configured. Please add LLM_API_KEY to your environment variables."}
	}

	stream, err := c.open(ctx, messages)
	if err != nil {
		c.logger.Error("stream completion failed", zap.Error(err))
		if isClientError(err) {
			return nil, err
		}
		return nil, &UpstreamError{Message: err.Error(), Status: http.StatusInternalServerError}
	}
	return stream, nil
}

func (c *HTTPClient) open(ctx context.Context, messages []Message) (*Stream, error) {
	reqBody := completionRequest{
		Messages:    messages,
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Stream:      true,
	}
	if reqBody.Messages == nil {
		reqBody.Messages = []Message{}
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}

	c.logger.Debug("completion response", zap.Int("status", resp.StatusCode), zap.String("model", c.model))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		upstream := parseUpstreamError(resp.StatusCode, raw)
		c.logger.Warn("llm error status",
			zap.Int("status", resp.StatusCode),
			zap.String("code", upstream.Code),
			zap.String("message", upstream.Message),
		)
		return nil, upstream
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		if resp.Body != nil {
			resp.Body.Close()
		}
		return nil, &TransportError{Message: "response body is not available"}
	}

	return NewStream(resp.Body, c.logger), nil
}

// parseUpstreamError interpreta {"error":{"message","code"}}; si el cuerpo falta
// o no es parseable usa un mensaje generico con el status.
func parseUpstreamError(status int, raw []byte) *UpstreamError {
	out := &UpstreamError{
		Message: fmt.Sprintf("request failed with status %d", status),
		Status:  status,
	}

	var body errorResponse
	if len(bytes.TrimSpace(raw)) == 0 || json.Unmarshal(raw, &body) != nil || body.Error == nil {
		return out
	}
	if body.Error.Message != "" {
		out.Message = body.Error.Message
	}
	out.Code = decodeErrorCode(body.Error.Code)
	return out
}

// decodeErrorCode acepta codigos string o numericos.
func decodeErrorCode(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

type completionRequest struct {
	Messages    []Message `json:"messages"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
	Stream      bool      `json:"stream"`
}

type errorResponse struct {
	Error *struct {
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
	} `json:"error"`
}
