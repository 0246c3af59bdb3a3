package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/transport"
	"github.com/frahmantamala/research-vault/pkg/logger"
)

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

// Register handles POST /auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var dto RegisterDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	result, err := h.Service.Register(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

// Login handles POST /auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var dto LoginDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}

	result, err := h.Service.Authenticate(r.Context(), dto)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// RefreshToken handles POST /auth/refresh
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var dto RefreshTokenDTO
	if !h.DecodeJSON(w, r, &dto) {
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteAppError(w, err)
		return
	}

	result, err := h.Service.RefreshTokens(r.Context(), dto.RefreshToken)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Authenticate rejects requests without a valid access token.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, internal.ErrUnauthenticated)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			logger.From(r.Context()).Warn("token validation failed", "error", err)
			h.HandleServiceError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
	})
}

// OptionalAuthenticate lets anonymous requests through, but a token that is present must be valid.
func (h *Handler) OptionalAuthenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := h.Service.ValidateAccessToken(token)
		if err != nil {
			logger.From(r.Context()).Warn("optional token validation failed", "error", err)
			h.HandleServiceError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(withClaims(r, claims)))
	})
}

func withClaims(r *http.Request, claims *Claims) context.Context {
	ctx := internal.ContextWithUserID(r.Context(), claims.UserID)
	return logger.With(ctx, "userID", claims.UserID)
}
