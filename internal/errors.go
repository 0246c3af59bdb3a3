package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
	ErrorTypeTimeout      ErrorType = "TIMEOUT"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidTitle     ErrorCode = "INVALID_TITLE"
	ErrCodeInvalidTags      ErrorCode = "INVALID_TAGS"
	ErrCodeEmptyContent     ErrorCode = "EMPTY_CONTENT"
	ErrCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
	ErrCodeSelfGrant        ErrorCode = "SELF_GRANT"

	ErrCodeDocumentNotFound ErrorCode = "DOCUMENT_NOT_FOUND"
	ErrCodeAccessDenied     ErrorCode = "ACCESS_DENIED"
	ErrCodeAlreadyGranted   ErrorCode = "ALREADY_GRANTED"
	ErrCodeGrantNotFound    ErrorCode = "GRANT_NOT_FOUND"
	ErrCodeUnknownUser      ErrorCode = "UNKNOWN_USER"

	ErrCodeStorageFailed   ErrorCode = "STORAGE_FAILED"
	ErrCodeDecryptFailed   ErrorCode = "DECRYPTION_FAILED"
	ErrCodeKeyUnwrapFailed ErrorCode = "KEY_UNWRAP_FAILED"
	ErrCodeRegistryTimeout ErrorCode = "REGISTRY_TIMEOUT"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeEmailTaken         ErrorCode = "EMAIL_TAKEN"
	ErrCodeUsernameTaken      ErrorCode = "USERNAME_TAKEN"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on code so copies produced by Wrap still compare equal to their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Type == t.Type
}

// Wrap returns a copy of e carrying cause. Sentinels are shared, so they are never mutated.
func (e *AppError) Wrap(cause error) *AppError {
	c := *e
	c.Cause = cause
	return &c
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	c := *e
	c.Details = details
	return &c
}

// Internal reports whether the error should be hidden behind a generic message.
func (e *AppError) Internal() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewExternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func NewTimeoutError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeTimeout,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusGatewayTimeout,
	}
}

var (
	ErrDocumentNotFound = NewNotFoundError("Document not found", ErrCodeDocumentNotFound)
	ErrForbidden        = NewForbiddenError("You do not have access to this document", ErrCodeAccessDenied)
	ErrAlreadyGranted   = NewConflictError("User already has access to this document", ErrCodeAlreadyGranted)
	ErrGrantNotFound    = NewNotFoundError("Access grant not found", ErrCodeGrantNotFound)
	ErrUnknownUser      = NewNotFoundError("User not found", ErrCodeUnknownUser)
	ErrSelfGrant        = NewValidationError("Owner already has access to their own document", ErrCodeSelfGrant)
	ErrEmptyContent     = NewValidationError("File is required", ErrCodeEmptyContent)
	ErrPayloadTooLarge  = &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodePayloadTooLarge,
		Message:    "File exceeds the upload size limit",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	ErrStorage         = NewExternalError("Content storage is unavailable", ErrCodeStorageFailed)
	ErrDecryption      = newCryptoError("Document could not be decrypted", ErrCodeDecryptFailed)
	ErrKeyUnwrap       = newCryptoError("Document key could not be unwrapped", ErrCodeKeyUnwrapFailed)
	ErrRegistryTimeout = NewTimeoutError("Registry did not respond in time", ErrCodeRegistryTimeout)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrEmailTaken         = NewConflictError("Email is already registered", ErrCodeEmailTaken)
	ErrUsernameTaken      = NewConflictError("Username is already taken", ErrCodeUsernameTaken)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
	ErrUnauthenticated    = NewUnauthorizedError("Authentication required", ErrCodeUnauthenticated)
)

func newCryptoError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
