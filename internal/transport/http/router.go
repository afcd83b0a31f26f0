// Package http wires the gate's HTTP surface: the trial page, the
// step-1 API, the bot fetch API, admin operations and the debug probe.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trialgate/internal/platform/health"
	"trialgate/internal/platform/middleware"
	adminmw "trialgate/pkg/platform/middleware/admin"
	"trialgate/pkg/platform/middleware/metadata"
)

// RouterConfig carries the transport-level settings the router needs.
type RouterConfig struct {
	// AdminJWTSecret signs admin tokens; empty disables admin routes.
	AdminJWTSecret string
	// DebugEndpoints exposes /debug-ip when true.
	DebugEndpoints bool
	// Metadata extracts the client IP behind trusted proxies.
	Metadata *metadata.Middleware
}

// NewRouter assembles the full HTTP handler.
func NewRouter(h *Handler, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(15 * time.Second))
	if cfg.Metadata != nil {
		r.Use(cfg.Metadata.Handler)
	}

	healthHandler.Register(r)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("trial verification gate is running, see /trial"))
	})

	r.Get("/trial", h.HandleTrialPage)
	r.Post("/trial", h.HandleTrialSubmit)
	r.Get("/check-step1", h.HandleCheckStep1)
	r.Post("/check-step1", h.HandleCheckStep1)

	r.Get("/api/get-verification", h.HandleGetVerification)

	if cfg.AdminJWTSecret != "" {
		r.Group(func(r chi.Router) {
			r.Use(adminmw.RequireAdminJWT(cfg.AdminJWTSecret, logger))
			r.Delete("/admin/verification/{tg_id}", h.HandleClearVerification)
			r.Get("/admin/trial-log", h.HandleTrialLog)
		})
	}

	if cfg.DebugEndpoints {
		r.Get("/debug-ip", h.HandleDebugIP)
	}

	return r
}
