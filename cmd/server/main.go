package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/AnshRaj112/visitor-backend/internal/app"
	"github.com/AnshRaj112/visitor-backend/internal/config"
	"github.com/AnshRaj112/visitor-backend/internal/logging"
	"github.com/AnshRaj112/visitor-backend/internal/middleware"
	"github.com/AnshRaj112/visitor-backend/internal/routes"
	"github.com/go-chi/chi/v5"
)

func main() {
	// Load env
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found")
	}
	cfg := config.Load()
	logging.InitLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	a.Live.Start(ctx)
	a.Scheduler.Start()
	defer a.Scheduler.Stop()

	// Setup router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLog)
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	// Production: SecurityHeaders → HostCheck → GlobalRateLimit
	if cfg.IsProduction() {
		for _, mw := range middleware.ProductionSecurity(cfg.AllowedHost) {
			r.Use(mw)
		}
		slog.Info("✅ Production security enabled", "allowed_host", cfg.AllowedHost)
	}

	routes.SetupRoutes(r, a.Handlers, routes.Options{
		Redis:            a.Redis,
		Sessions:         a.Auth,
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowEmptyOrigin: !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("🚀 Visitor backend running", "port", cfg.Port, "env", cfg.Environment, "timezone", cfg.Timezone)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("graceful shutdown failed", "error", err)
		}
	}
}
