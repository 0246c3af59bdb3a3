package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/pkg/logger"
)

// BaseHandler provides common functionality for HTTP handlers
type BaseHandler struct {
	Logger *slog.Logger
}

// NewBaseHandler creates a base handler with logger
func NewBaseHandler(lg *slog.Logger) *BaseHandler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &BaseHandler{Logger: lg}
}

// WriteJSON writes a JSON response
func (h *BaseHandler) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", "error", err)
	}
}

// WriteAppError renders err in the standard error envelope.
func (h *BaseHandler) WriteAppError(w http.ResponseWriter, err *internal.AppError) {
	status, body := err.ToHTTPResponse()
	h.WriteJSON(w, status, body)
}

// WriteError writes an error response for failures that have no AppError of their own.
func (h *BaseHandler) WriteError(w http.ResponseWriter, status int, message string) {
	h.WriteAppError(w, &internal.AppError{
		Type:       errorTypeForStatus(status),
		Code:       internal.ErrorCode(strings.ToUpper(strings.ReplaceAll(http.StatusText(status), " ", "_"))),
		Message:    message,
		StatusCode: status,
	})
}

// HandleServiceError maps a service error onto the response. Internal failures are logged with
// their cause and rendered with a generic message.
func (h *BaseHandler) HandleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	lg := logger.From(r.Context())

	appErr, ok := internal.IsAppError(err)
	if !ok {
		lg.Error("unhandled service error", "error", err, "method", r.Method, "path", r.URL.Path)
		h.WriteAppError(w, internal.NewInternalError("Internal server error", nil))
		return
	}

	if appErr.Internal() {
		attrs := []any{"error", err, "code", appErr.Code, "method", r.Method, "path", r.URL.Path}
		if errors.Is(appErr, internal.ErrDecryption) || errors.Is(appErr, internal.ErrKeyUnwrap) {
			attrs = append(attrs, "alert", true)
		}
		lg.Error("request failed", attrs...)
		h.WriteAppError(w, &internal.AppError{
			Type:       appErr.Type,
			Code:       appErr.Code,
			Message:    appErr.Message,
			StatusCode: appErr.StatusCode,
		})
		return
	}

	lg.Debug("request rejected", "code", appErr.Code, "status", appErr.StatusCode)
	h.WriteAppError(w, appErr)
}

// DecodeJSON reads a JSON body into dst, rendering a 400 on failure.
func (h *BaseHandler) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.WriteAppError(w, internal.NewValidationError("Invalid request body", internal.ErrCodeValidationFailed))
		return false
	}
	return true
}

// ExtractTokenFromHeader extracts Bearer token from Authorization header
func (h *BaseHandler) ExtractTokenFromHeader(r *http.Request) string {
	return BearerToken(r)
}

func BearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

func errorTypeForStatus(status int) internal.ErrorType {
	switch status {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return internal.ErrorTypeValidation
	case http.StatusUnauthorized:
		return internal.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return internal.ErrorTypeForbidden
	case http.StatusNotFound:
		return internal.ErrorTypeNotFound
	case http.StatusConflict:
		return internal.ErrorTypeConflict
	default:
		return internal.ErrorTypeInternal
	}
}
