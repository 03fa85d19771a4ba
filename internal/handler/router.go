package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/user-directory/backend/internal/handler/directory"
	"github.com/zhouzirui/user-directory/backend/internal/handler/live"
	middlewarePkg "github.com/zhouzirui/user-directory/backend/internal/middleware"
	"github.com/zhouzirui/user-directory/backend/internal/service/session"
	"github.com/zhouzirui/user-directory/backend/pkg/utils"
)

// LivePath is where the page script opens its websocket.
const LivePath = "/ws"

// Options selects optional endpoints.
type Options struct {
	Metrics bool
}

// NewRouter wires HTTP routes to core services.
func NewRouter(sessions *session.Registry, logger zerolog.Logger, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	directoryHandler := directory.New(sessions, LivePath)
	liveHandler := live.New(sessions, logger)

	directoryHandler.RegisterPageRoutes(r)
	liveHandler.RegisterRoutes(r)

	r.Route("/api", func(api chi.Router) {
		directoryHandler.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]any{
			"status":       "ok",
			"mountedViews": sessions.Count(),
		})
	})

	if opts.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}
