package httpserver

import (
	"net/http"
	"time"

	"mirror-sync-go/internal/config"
	"mirror-sync-go/internal/transport/httpserver/handler"
	"mirror-sync-go/internal/transport/httpserver/middleware"
	"mirror-sync-go/pkg/logger"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func NewRouter(cfg config.Config, handlers *handler.Handlers, metrics http.Handler, log logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/records", handlers.ListRecords)
		r.Get("/records/{name}", handlers.GetRecord)

		admin := middleware.NewAdminToken(cfg.AdminToken, log)
		r.With(admin.Middleware).Post("/scan", handlers.TriggerScan)
	})

	return r
}
