package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/koneque/marketplace-escrow/pkg/api"
	"github.com/koneque/marketplace-escrow/pkg/handlers/respond"
	"github.com/koneque/marketplace-escrow/pkg/metrics"
	"github.com/koneque/marketplace-escrow/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps are the pieces NewRouter mounts. Limiter, Metrics and
// Websocket are optional.
type RouterDeps struct {
	Handler   *ApiHandler
	Auth      *middleware.Authenticator
	Limiter   *middleware.RateLimiter
	Metrics   *metrics.Metrics
	Websocket http.Handler
	Logger    *slog.Logger
}

// NewRouter builds the chi router for the HTTP API. Bearer tokens are
// verified when present; operations that act as a caller reject anonymous
// requests themselves.
func NewRouter(deps RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.NewStructuredLogger(logger, deps.Metrics))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if deps.Metrics != nil {
		router.Handle("/metrics", promhttp.Handler())
	}
	if deps.Websocket != nil {
		router.Handle("/ws", deps.Websocket)
	}

	router.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(deps.Limiter.Middleware)
		}
		r.Use(deps.Auth.Middleware(true))
		api.HandlerWithOptions(deps.Handler, api.ChiServerOptions{
			BaseRouter:       r,
			ErrorHandlerFunc: respond.ParamError,
		})
	})

	return router
}
