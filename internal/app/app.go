package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/AnshRaj112/visitor-backend/internal/config"
	"github.com/AnshRaj112/visitor-backend/internal/database"
	"github.com/AnshRaj112/visitor-backend/internal/handlers"
	"github.com/AnshRaj112/visitor-backend/internal/services"
	"github.com/AnshRaj112/visitor-backend/internal/store/mongodb"
	"github.com/AnshRaj112/visitor-backend/internal/store/postgres"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// App is the process-wide set of connections and services. Everything is
// built once in New and passed down explicitly.
type App struct {
	Config *config.Config

	Mongo    *mongo.Client
	DB       *mongo.Database
	Postgres *sql.DB
	Redis    *redis.Client

	Engine    *services.LifecycleEngine
	Tokens    *services.TokenRegistry
	Reports   *services.ReportGenerator
	Scheduler *services.ExportScheduler
	Auth      *services.AdminAuth
	Live      *services.LiveHub
	Handlers  *handlers.Handlers
}

// New connects to every backing store and wires the services. On error the
// connections opened so far are closed.
func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	slog.Info("connecting to MongoDB", "uri", database.MaskURI(cfg.MongoURI))
	if a.Mongo, a.DB, err = database.Connect(cfg.MongoURI); err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err = mongodb.EnsureIndexes(ctx, a.DB, cfg.TokenRetention); err != nil {
		return nil, fmt.Errorf("failed to ensure MongoDB indexes: %w", err)
	}
	slog.Info("✅ MongoDB indexes ensured")
	if n, cerr := mongodb.CountLegacyVisitors(ctx, a.DB); cerr == nil && n > 0 {
		slog.Warn("legacy visitor documents found, run `visitorctl migrate-legacy`", "count", n)
	}
	if n, cerr := mongodb.CountLegacyTokens(ctx, a.DB); cerr == nil && n > 0 {
		slog.Warn("legacy push tokens found, run `visitorctl migrate-legacy`", "count", n)
	}

	slog.Info("connecting to PostgreSQL")
	if a.Postgres, err = database.ConnectPostgres(cfg.PostgresURI); err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	slog.Info("connecting to Redis")
	if a.Redis, err = database.ConnectRedis(cfg.RedisURI); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	photos, err := services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	slog.Info("✅ Cloudinary service initialized")

	sender, err := newPushSender(ctx, cfg)
	if err != nil {
		return nil, err
	}

	clock := services.RealClock{}
	a.Tokens = services.NewTokenRegistry(mongodb.NewTokenStore(a.DB), clock, cfg.TokenRetention)
	a.Live = services.NewLiveHub(a.Redis)
	a.Engine = services.NewLifecycleEngine(services.LifecycleDeps{
		Visitors:  mongodb.NewVisitorStore(a.DB),
		Events:    mongodb.NewEventStore(a.DB),
		Notifier:  services.NewDispatcher(a.Tokens, sender, cfg.PushConcurrency, cfg.PushTimeout),
		Publisher: a.Live,
		Clock:     clock,
		Location:  cfg.Location,
	})
	a.Reports = services.NewReportGenerator(a.Engine, cfg.Location, cfg.ExportTimeout)
	a.Auth = services.NewAdminAuth(postgres.NewAdminStore(a.Postgres), a.Redis, clock)

	var archiver services.Archiver
	if cfg.ExportS3Bucket != "" {
		if archiver, err = services.NewS3Archive(ctx, cfg.ExportS3Bucket); err != nil {
			return nil, fmt.Errorf("failed to initialize S3 archive: %w", err)
		}
		slog.Info("✅ Export archive enabled", "bucket", cfg.ExportS3Bucket)
	}
	if a.Scheduler, err = services.NewExportScheduler(a.Reports, cfg.ExportDir, cfg.ExportSchedule, cfg.Location, archiver, clock); err != nil {
		return nil, err
	}

	a.Handlers = &handlers.Handlers{
		Engine:  a.Engine,
		Tokens:  a.Tokens,
		Photos:  photos,
		Reports: a.Reports,
		Auth:    a.Auth,
		Live:    a.Live,
	}
	return a, nil
}

func newPushSender(ctx context.Context, cfg *config.Config) (services.PushSender, error) {
	if !cfg.FirebaseEnabled() {
		slog.Warn("Firebase credentials not set, push notifications will only be logged")
		return services.LogSender{}, nil
	}
	sender, err := services.NewFCMSender(ctx, cfg.FirebaseCredentialsFile, cfg.FirebaseProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase messaging: %w", err)
	}
	slog.Info("✅ Firebase messaging initialized")
	return sender, nil
}

// Close waits for background notifications and releases every connection.
func (a *App) Close() {
	if a.Engine != nil {
		a.Engine.Wait()
	}
	if err := database.DisconnectRedis(a.Redis); err != nil {
		slog.Error("failed to close Redis", "error", err)
	}
	if err := database.DisconnectPostgres(a.Postgres); err != nil {
		slog.Error("failed to close PostgreSQL", "error", err)
	}
	if err := database.Disconnect(a.Mongo); err != nil {
		slog.Error("failed to disconnect MongoDB", "error", err)
	}
}
