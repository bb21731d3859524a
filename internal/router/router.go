package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go-file-guard/internal/config"
	"go-file-guard/internal/handler"
	"go-file-guard/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	operationsHandler *handler.OperationsHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitGeneralRPM, cfg.RateLimitAuthRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)
			auth.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Post("/register", authHandler.Register)
			auth.Post("/refresh", authHandler.Refresh)
			auth.With(authMiddleware.RequireAuth).Post("/logout", authHandler.Logout)
			auth.With(authMiddleware.RequireAuth).Get("/me", authHandler.Me)
		})

		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("operator", "admin")).Post("/operations", operationsHandler.Submit)
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("operator", "admin")).Post("/transactions/{id}/confirm", operationsHandler.Confirm)
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("operator", "admin")).Post("/transactions/{id}/rollback", operationsHandler.Rollback)
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("operator", "admin")).Post("/transactions/{id}/restore", operationsHandler.RestoreTransaction)
		api.With(authMiddleware.RequireAuth).Get("/transactions/{id}", operationsHandler.GetTransaction)
		api.With(authMiddleware.RequireAuth).Get("/transactions", operationsHandler.ListTransactions)
		api.With(authMiddleware.RequireAuth).Get("/trash", operationsHandler.ListTrash)
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("operator", "admin")).Post("/trash/{id}/restore", operationsHandler.RestoreTrashEntry)
		api.With(authMiddleware.RequireAuth, authMiddleware.RequireRoles("admin")).Post("/trash/sweep", operationsHandler.Sweep)
	})

	return r
}
