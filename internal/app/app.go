package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/tripweaver/tripweaver-backend/internal/data/db"
	httpserver "github.com/tripweaver/tripweaver-backend/internal/http"
	"github.com/tripweaver/tripweaver-backend/internal/observability"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
	"github.com/tripweaver/tripweaver-backend/internal/services"
)

const otelShutdownTimeout = 5 * time.Second

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Repos    Repos
	Services Services
	Server   *httpserver.Server
	Metrics  *observability.Metrics

	ctx          context.Context
	cancel       context.CancelFunc
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	ctx, cancel := context.WithCancel(context.Background())

	metrics := observability.Init(log)
	otelShutdown := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "tripweaver-backend",
		Environment: cfg.Environment,
		Version:     cfg.Version,
	})

	pg, err := db.NewPostgresService(log)
	if err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		cancel()
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	reposet := wireRepos(theDB, log)

	serviceset, err := wireServices(theDB, log, cfg, reposet, metrics)
	if err != nil {
		cancel()
		log.Sync()
		return nil, err
	}

	handlerset := wireHandlers(log, serviceset, ctx)
	middleware := wireMiddleware(log, cfg)

	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:             log,
		Metrics:         metrics,
		AuthMiddleware:  middleware.Auth,
		TripPlanHandler: handlerset.TripPlan,
		SyncHandler:     handlerset.Sync,
		HealthHandler:   handlerset.Health,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Cfg:          cfg,
		Repos:        reposet,
		Services:     serviceset,
		Server:       server,
		Metrics:      metrics,
		ctx:          ctx,
		cancel:       cancel,
		otelShutdown: otelShutdown,
	}, nil
}

// Start launches the background pieces: the metrics endpoint, the db and
// redis collectors, and the plan event forwarder.
func (a *App) Start() {
	if a == nil {
		return
	}
	if a.Metrics != nil {
		a.Metrics.StartServer(a.ctx, a.Log, a.Cfg.MetricsAddr)
		a.Metrics.StartPostgresCollector(a.ctx, a.Log, a.DB)
		if addr := os.Getenv("REDIS_ADDR"); addr != "" {
			a.Metrics.StartRedisCollector(a.ctx, a.Log, addr)
		}
	}
	if a.Services.PlanEvents != nil {
		err := a.Services.PlanEvents.StartForwarder(a.ctx, func(ev services.PlanEvent) {
			a.Log.Debug("Plan event received", "type", ev.Type, "trip_id", ev.TripID, "version", ev.Version, "status", ev.Status)
		})
		if err != nil {
			a.Log.Warn("Plan event forwarder failed to start", "error", err)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.PlanEvents != nil {
		_ = a.Services.PlanEvents.Close()
	}
	if a.otelShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
		defer cancel()
		if err := a.otelShutdown(shutdownCtx); err != nil {
			a.Log.Warn("Trace exporter shutdown failed", "error", err)
		}
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
