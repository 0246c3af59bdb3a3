package rest

import (
	"net/http"

	"github.com/go-chi/chi"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/research-vault/api"
	"github.com/frahmantamala/research-vault/internal/auth"
	"github.com/frahmantamala/research-vault/internal/category"
	"github.com/frahmantamala/research-vault/internal/research"
	"github.com/frahmantamala/research-vault/internal/transport/middleware"
	"github.com/frahmantamala/research-vault/internal/transport/swagger"
	"github.com/frahmantamala/research-vault/internal/user"
)

const APIPrefix = "/api/v1"

type Handlers struct {
	DB             *sqlx.DB
	StorageBackend string
	AllowedOrigins string
	Auth           *auth.Handler
	User           *user.Handler
	Research       *research.Handler
	Category       *category.Handler
	Routes         []api.Route
	MetricsEnabled bool
	MetricsPath    string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers) {
	health := NewHealthHandler(h.DB, h.StorageBackend)

	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware)
	router.Use(middleware.LoggingMiddleware)
	router.Use(middleware.Metrics)

	router.Get("/", serviceInfo(h.Routes))
	router.Handle("/openapi.yml", api.Handler())
	router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	if h.MetricsEnabled {
		router.Handle(h.MetricsPath, promhttp.Handler())
	}

	mountAPI(router, h, health)
	router.Route(APIPrefix, func(r chi.Router) {
		mountAPI(r, h, health)
	})
}

// mountAPI registers the API under r. It is mounted at the root and mirrored under APIPrefix.
func mountAPI(r chi.Router, h Handlers, health *HealthHandler) {
	r.Get("/health", health.Health)
	r.Get("/ping", health.Ping)

	r.Route("/auth", func(ar chi.Router) {
		ar.Post("/register", h.Auth.Register)
		ar.Post("/login", h.Auth.Login)
		ar.Post("/refresh", h.Auth.RefreshToken)
		ar.With(h.Auth.Authenticate).Get("/me", h.User.GetCurrentUser)
	})

	r.Route("/research", func(rr chi.Router) {
		rr.Group(func(pr chi.Router) {
			pr.Use(h.Auth.Authenticate)
			pr.Post("/upload", h.Research.Upload)
			pr.Get("/my", h.Research.ListMine)
			pr.Get("/shared", h.Research.ListShared)
			pr.Delete("/{id}", h.Research.Delete)
			pr.Post("/{id}/grant", h.Research.Grant)
			pr.Post("/{id}/revoke", h.Research.Revoke)
			pr.Get("/{id}/access-list", h.Research.AccessList)
		})

		rr.Group(func(opt chi.Router) {
			opt.Use(h.Auth.OptionalAuthenticate)
			opt.Get("/", h.Research.List)
			opt.Get("/categories", h.Category.GetCategories)
			opt.Get("/{id}", h.Research.Get)
			opt.Get("/{id}/download", h.Research.Download)
		})
	})
}

func serviceInfo(routes []api.Route) http.HandlerFunc {
	body := map[string]interface{}{
		"name":    "research-vault",
		"message": "Research Vault API",
		"docs":    "/swagger/index.html",
		"routes":  routes,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, body)
	}
}
