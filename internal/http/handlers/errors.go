package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
)

// ErrorResponse is the error body of every endpoint.
type ErrorResponse struct {
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	RequestID string            `json:"request_id,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details map[string]string) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Message:   message,
		Code:      code,
		RequestID: middleware.GetRequestID(c),
		Details:   details,
	})
}

const genericFailure = "Oops! Something went wrong. Please try again in a moment."

// RespondDomainError maps domain errors to HTTP responses. Backend 4xx
// statuses pass through; backend 5xx become 500.
func RespondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "invalid_input", err.Error(), domain.ValidationDetails(err))
	case domain.IsUnauthorized(err):
		respondError(c, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsUpstream(err):
		status := domain.UpstreamStatus(err)
		if status < 400 || status >= 500 {
			status = http.StatusInternalServerError
		}
		respondError(c, status, "upstream_error", err.Error(), nil)
	case domain.IsInternal(err):
		respondError(c, http.StatusInternalServerError, "internal_error", err.Error(), nil)
	default:
		respondError(c, http.StatusInternalServerError, "internal_error", genericFailure, nil)
	}
}
