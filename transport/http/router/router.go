package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"voyago/config"
	"voyago/internal/handlers/auth"
	"voyago/internal/handlers/booking"
	"voyago/internal/handlers/payment"
	"voyago/transport/http/middleware"
	"voyago/transport/http/response"
)

type DomainHandlers struct {
	Auth    auth.Handler
	Booking booking.Handler
	Payment payment.Handler
}

type Router struct {
	DomainHandlers DomainHandlers
	appMiddleware  middleware.AppMiddleware
	authMiddleware middleware.AuthRole
	cfg            *config.Config
}

func New(domainHandlers DomainHandlers, appMiddleware middleware.AppMiddleware, authMiddleware middleware.AuthRole, cfg *config.Config) Router {
	return Router{
		DomainHandlers: domainHandlers,
		appMiddleware:  appMiddleware,
		authMiddleware: authMiddleware,
		cfg:            cfg,
	}
}

func (r *Router) SetupRoutes(router chi.Router) {
	router.Use(r.appMiddleware.Tracing)
	router.Use(r.appMiddleware.RateLimit())

	if r.cfg.App.CORS.Enable {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   r.cfg.App.CORS.AllowedOrigins,
			AllowedMethods:   r.cfg.App.CORS.AllowedMethods,
			AllowedHeaders:   r.cfg.App.CORS.AllowedHeaders,
			AllowCredentials: r.cfg.App.CORS.AllowCredentials,
			MaxAge:           r.cfg.App.CORS.MaxAgeSeconds,
		}))
	}

	router.Get("/health", r.health)

	router.Route("/v1", func(routerGroup chi.Router) {
		routerGroup.Use(r.authMiddleware.Auth)
		routerGroup.Use(r.authMiddleware.RBAC)

		r.DomainHandlers.Auth.Router(routerGroup)
		r.DomainHandlers.Booking.Router(routerGroup)
		r.DomainHandlers.Payment.Router(routerGroup)
	})
}

func (r *Router) health(w http.ResponseWriter, _ *http.Request) {
	response.WithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
