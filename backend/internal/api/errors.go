package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "lastfm-graph/backend/pkg/errors"
)

// statusClientClosedRequest is reported when the caller went away before
// the operation finished.
const statusClientClosedRequest = 499

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Stage     string `json:"stage,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor maps the typed error set onto HTTP status codes and a short
// machine readable code.
func statusFor(err error) (int, string) {
	var cancelled *apperrors.ErrContextCancelled
	switch {
	case apperrors.IsInvalidRequest(err):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case apperrors.IsNotFound(err):
		return http.StatusNotFound, "NOT_FOUND"
	case apperrors.IsTimeout(err):
		return http.StatusGatewayTimeout, "TIMEOUT"
	case errors.As(err, &cancelled):
		return statusClientClosedRequest, "CANCELLED"
	case apperrors.IsCollaboratorFailure(err):
		return http.StatusBadGateway, "COLLABORATOR_FAILURE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func (h *Handlers) writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	requestID := c.GetString(requestIDKey)

	fields := []zap.Field{
		zap.Error(err),
		zap.Int("status", status),
		zap.String("path", c.FullPath()),
		zap.String("request_id", requestID),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
	} else {
		h.logger.Debug("Request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:     err.Error(),
		Code:      code,
		Stage:     apperrors.Stage(err),
		RequestID: requestID,
	})
}
