package research

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/access"
	"github.com/frahmantamala/research-vault/internal/transport"
)

// ServiceAPI is what the HTTP layer needs from the protection service.
type ServiceAPI interface {
	Publish(ctx context.Context, ownerID string, content []byte, in PublishInput) (*Document, error)
	Fetch(ctx context.Context, documentID, requesterID string) (*Document, []byte, error)
	GetDetail(ctx context.Context, documentID, requesterID string) (*DocumentDetail, error)
	List(ctx context.Context, filter ListFilter) (*Page, error)
	ListMine(ctx context.Context, ownerID string) ([]*Document, error)
	ListShared(ctx context.Context, userID string) ([]*Document, error)
	Grant(ctx context.Context, requesterID, documentID, granteeEmail string) (*access.Grant, error)
	Revoke(ctx context.Context, requesterID, documentID, targetUserID string) error
	AccessList(ctx context.Context, requesterID, documentID string) ([]*access.Grant, error)
	Delete(ctx context.Context, requesterID, documentID string) error
}

type Handler struct {
	*transport.BaseHandler
	Service       ServiceAPI
	maxUploadSize int64
}

func NewHandler(svc ServiceAPI, maxUploadSize int64, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler:   transport.NewBaseHandler(lg),
		Service:       svc,
		maxUploadSize: maxUploadSize,
	}
}

// Upload handles POST /research/upload
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())

	content, in, err := ParseUpload(w, r, h.maxUploadSize)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	doc, err := h.Service.Publish(r.Context(), userID, content, in)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Research uploaded successfully",
		"research": UploadResponse{Document: doc, ContentRef: doc.ContentRef},
	})
}

// List handles GET /research
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := ParseListQuery(r)
	filter.ViewerID = internal.UserIDFromContext(r.Context())

	page, err := h.Service.List(r.Context(), filter)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, page)
}

// ListMine handles GET /research/my
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.ListMine(r.Context(), internal.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"researches": docs})
}

// ListShared handles GET /research/shared
func (h *Handler) ListShared(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Service.ListShared(r.Context(), internal.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"researches": docs})
}

// Get handles GET /research/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.Service.GetDetail(r.Context(), chi.URLParam(r, "id"), internal.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"research": detail})
}

// Download handles GET /research/{id}/download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	doc, content, err := h.Service.Fetch(r.Context(), chi.URLParam(r, "id"), internal.UserIDFromContext(r.Context()))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	name := doc.FileName
	if name == "" {
		name = doc.Title
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		h.Logger.Warn("failed to write download", "document_id", doc.ID, "error", err)
	}
}

// Delete handles DELETE /research/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Research deleted successfully"})
}

// Grant handles POST /research/{id}/grant
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req GrantRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	grant, err := h.Service.Grant(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.UserEmail)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Access granted successfully",
		"access":  grant,
	})
}

// Revoke handles POST /research/{id}/revoke
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	var req RevokeRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	if err := h.Service.Revoke(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id"), req.UserID); err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"message": "Access revoked successfully"})
}

// AccessList handles GET /research/{id}/access-list
func (h *Handler) AccessList(w http.ResponseWriter, r *http.Request) {
	grants, err := h.Service.AccessList(r.Context(), internal.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{"accessList": grants})
}
