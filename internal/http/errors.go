package http

import (
	"context"
	"errors"
	"net/http"

	"chat-llm/internal/llm"
	"chat-llm/internal/repository"
	"chat-llm/internal/service"
)

// errorStatus traduce errores del dominio a status HTTP y mensaje publico.
func errorStatus(err error) (int, string) {
	var (
		cfgErr       *llm.ConfigurationError
		upstreamErr  *llm.UpstreamError
		transportErr *llm.TransportError
		emptyErr     *llm.EmptyResponseError
	)
	switch {
	case errors.Is(err, service.ErrEmptyContent):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrRequestInFlight),
		errors.Is(err, service.ErrCurrentSessionEmpty):
		return http.StatusConflict, err.Error()
	case errors.Is(err, repository.ErrSessionNotFound):
		return http.StatusNotFound, "session not found"
	case errors.Is(err, repository.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.As(err, &cfgErr):
		return http.StatusInternalServerError, cfgErr.Message
	case errors.As(err, &upstreamErr):
		if upstreamErr.Status < http.StatusBadRequest {
			return http.StatusBadGateway, upstreamErr.Message
		}
		return upstreamErr.Status, upstreamErr.Message
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, transportErr.Error()
	case errors.As(err, &emptyErr):
		return http.StatusBadGateway, emptyErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "request timed out"
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
