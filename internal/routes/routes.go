package routes

import (
	"net/http"

	"github.com/AnshRaj112/visitor-backend/internal/handlers"
	"github.com/AnshRaj112/visitor-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// Options carries what the route table needs besides the handlers.
type Options struct {
	// Redis backs the public form rate limit; nil disables it
	Redis          *redis.Client
	Sessions       middleware.SessionValidator
	AllowedOrigins []string
	// AllowEmptyOrigin lets non-browser clients open the live feed; development only
	AllowEmptyOrigin bool
}

func SetupRoutes(r chi.Router, h *handlers.Handlers, opts Options) {
	r.Get("/health", handlers.Health)

	// Public: visitor form, status page, guard panel
	r.With(formRateLimit(opts)).Post("/visitor", h.CreateVisitor)
	r.Get("/visitors/today", h.ListTodayVisitors)
	r.Get("/visitors/{id}", h.GetVisitor)
	r.Patch("/visitor/{id}/checkout", h.Checkout)
	r.Post("/subscribe", h.Subscribe)

	r.With(middleware.LoginRateLimit).Post("/admin/login", h.AdminLogin)
	r.With(middleware.RequireAdminSocket(opts.Sessions)).
		Get("/ws/visitors", h.LiveFeed(opts.AllowedOrigins, opts.AllowEmptyOrigin))

	// Admin
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin(opts.Sessions))

		r.Post("/admin/logout", h.AdminLogout)
		r.Get("/visitors", h.ListVisitors)
		r.Patch("/visitor/{id}/status", h.UpdateStatus)
		r.Delete("/visitor/{id}", h.DeleteVisitor)
		r.Get("/visitors/{id}/events", h.VisitorEvents)
		r.Get("/export", h.Export)
	})
}

func formRateLimit(opts Options) func(http.Handler) http.Handler {
	if opts.Redis == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return middleware.RedisRateLimit(opts.Redis, middleware.VisitorFormRateLimit)
}
