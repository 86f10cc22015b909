package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/tripweaver/tripweaver-backend/internal/http/handlers"
	httpMW "github.com/tripweaver/tripweaver-backend/internal/http/middleware"
	"github.com/tripweaver/tripweaver-backend/internal/observability"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	AuthMiddleware *httpMW.AuthMiddleware

	TripPlanHandler *httpH.TripPlanHandler
	SyncHandler     *httpH.SyncHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("tripweaver-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.TripPlanHandler != nil {
			protected.PUT("/trips/:id/plan", cfg.TripPlanHandler.SavePlan)
			protected.GET("/trips/:id/plan", cfg.TripPlanHandler.GetPlan)
			protected.POST("/trips/:id/stops/ops", cfg.TripPlanHandler.ApplyStopOp)
			protected.GET("/trips/:id/revisions", cfg.TripPlanHandler.ListRevisions)
			protected.POST("/trips/:id/revisions/:revisionId/restore", cfg.TripPlanHandler.RestoreRevision)
		}

		if cfg.SyncHandler != nil {
			protected.POST("/trips/:id/sync", cfg.SyncHandler.Track)
			protected.GET("/trips/:id/sync", cfg.SyncHandler.State)
		}
	}

	return r
}
