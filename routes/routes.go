package routes

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/upb/catalog-inventory/app"
	"github.com/upb/catalog-inventory/handlers"
	"github.com/upb/catalog-inventory/models"
	"github.com/upb/catalog-inventory/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "WWW-Authenticate", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Every request gets a security context; role checks happen per route
	authz := deps.AuthMiddleware
	r.Use(authz.Authenticate)

	var sqlDB *sql.DB
	if deps.DB != nil {
		sqlDB = deps.DB.DB
	}
	health := handlers.NewHealthHandler(sqlDB, deps.Config.Environment, deps.AuditService, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.Logger)
	bookHandler := handlers.NewBookHandler(deps.BookService, deps.Logger)
	auditHandler := handlers.NewAuditHandler(deps.AuditService, deps.Logger)

	// Health check endpoints
	r.Get("/health", health.HandleHealth)
	r.Get("/health/ready", health.HandleReadiness)
	r.Get("/status", health.HandleStatus)

	if deps.Config.Observability.MetricsEnabled {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/logout", authHandler.HandleLogout)
		r.Get("/health", authHandler.HandleHealth)
		r.With(authz.RequireAuth).Post("/refresh", authHandler.HandleRefresh)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/books", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(authz.RequireRoles(models.RoleAdmin, models.RoleUser))
				r.Get("/", bookHandler.HandleList)
				r.Post("/search", bookHandler.HandleSearch)
				r.Get("/in-stock", bookHandler.HandleInStock)
				r.Get("/genre/{genreName}", bookHandler.HandleByGenre)
				r.Get("/author/{authorName}", bookHandler.HandleByAuthor)
				r.Get("/publisher/{publisher}", bookHandler.HandleByPublisher)
				r.Get("/price-range", bookHandler.HandlePriceRange)
				r.Get("/year-range", bookHandler.HandleYearRange)
				r.Get("/isbn/{isbn}", bookHandler.HandleGetByISBN)
				r.Get("/{id}", bookHandler.HandleGet)
			})

			r.Group(func(r chi.Router) {
				r.Use(authz.RequireRoles(models.RoleAdmin))
				r.Post("/", bookHandler.HandleCreate)
				r.Get("/out-of-stock", bookHandler.HandleOutOfStock)
				r.Get("/low-stock", bookHandler.HandleLowStock)
				r.Get("/statistics", bookHandler.HandleStatistics)
				r.Get("/check-isbn/{isbn}", bookHandler.HandleCheckISBN)
				r.Put("/{id}", bookHandler.HandleUpdate)
				r.Delete("/{id}", bookHandler.HandleDelete)
				r.Post("/{id}/restore", bookHandler.HandleRestore)
				r.Put("/{id}/stock", bookHandler.HandleUpdateStock)
			})
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(authz.RequireRoles(models.RoleAdmin, models.RoleUser))
			r.Get("/me", handlers.GetCurrentUserHandler(deps.Logger))
		})

		// Audit logs (require admin role)
		r.Route("/audit", func(r chi.Router) {
			r.Use(authz.RequireRoles(models.RoleAdmin))
			r.Get("/logs", auditHandler.HandleListLogs)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
