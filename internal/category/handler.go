package category

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/research-vault/internal"
	"github.com/frahmantamala/research-vault/internal/transport"
)

type ServiceAPI interface {
	GetCategories(ctx context.Context, viewerID string) ([]*Category, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
	viewerID := internal.UserIDFromContext(r.Context())

	categories, err := h.Service.GetCategories(r.Context(), viewerID)
	if err != nil {
		h.HandleServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, CategoriesResponse{
		Categories: categories,
	})
}
