package httpapi

import (
	"net/http"

	"brewdesk-alert-services/internal/bridge"
	"brewdesk-alert-services/internal/config"
	"brewdesk-alert-services/internal/http/handlers"
	"brewdesk-alert-services/internal/middleware"
	"brewdesk-alert-services/internal/session"
	"brewdesk-alert-services/pkg/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

func NewRouter(logger *zap.Logger, cfg config.Config, sessions *session.Manager, hub *bridge.Hub) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Telemetry(logger))

	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}
		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}
		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{Logger: logger, Config: cfg, Sessions: sessions, Bridge: hub}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/console", func(r chi.Router) {
		r.Post("/sessions", h.SessionCreate)
		r.Get("/sessions/{sessionId}", h.SessionGet)
		r.Post("/sessions/{sessionId}/gesture", h.SessionGesture)
		r.Post("/sessions/{sessionId}/orders/{orderId}/disposition", h.SessionDispose)
		r.Delete("/sessions/{sessionId}", h.SessionClose)
		r.Get("/telemetry", func(w http.ResponseWriter, _ *http.Request) {
			response.Success(w, middleware.Snapshot())
		})
	})

	r.Route("/api/host", func(r chi.Router) {
		r.Post("/push", h.HostPush)
	})

	r.Get("/ws/host", hub.ServeHost(cfg.WSHeartbeatInterval))

	return r
}
