package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-auth-service/internal/config"
	"go-auth-service/internal/handler"
	"go-auth-service/internal/metrics"
	"go-auth-service/internal/middleware"
	"go-auth-service/internal/service"
)

type Handlers struct {
	Auth  *handler.AuthHandler
	User  *handler.UserHandler
	Audit *handler.AuditHandler
	Docs  *handler.DocsHandler
}

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	handlers Handlers,
	m *metrics.Metrics,
	health http.HandlerFunc,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM, cfg.TrustProxy)

	r.Use(middleware.Logging)
	r.Use(middleware.Recovery)
	r.Use(m.Middleware)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", health)
	r.Handle("/metrics", m.Handler())
	r.Get("/openapi.yaml", handlers.Docs.OpenAPI)
	r.Get("/swagger", handlers.Docs.SwaggerUI)

	requireAdmin := authMiddleware.RequireRole(service.RequireAdmin)
	requireElevated := authMiddleware.RequireRole(service.RequireElevated)

	authRoutes := func(auth chi.Router) {
		auth.Use(middleware.Timeout(cfg.RequestTimeout))
		auth.Post("/registration", handlers.Auth.Register)
		auth.Post("/login", handlers.Auth.Login)
		auth.With(authMiddleware.RequireAuth).Get("/me", handlers.Auth.Me)
	}

	// Unversioned alias for clients that address /auth directly.
	r.Route("/auth", authRoutes)

	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/auth", authRoutes)

		api.Group(func(protected chi.Router) {
			protected.Use(middleware.Timeout(cfg.RequestTimeout))
			protected.With(authMiddleware.RequireAuth, requireElevated).Get("/users", handlers.User.List)
			protected.With(authMiddleware.RequireAuth, requireAdmin).Get("/users/{id}", handlers.User.Get)
			protected.With(authMiddleware.RequireAuth, requireAdmin).Get("/audit", handlers.Audit.List)
		})
	})

	return r
}
