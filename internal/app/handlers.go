package app

import (
	"context"

	httpH "github.com/tripweaver/tripweaver-backend/internal/http/handlers"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

type Handlers struct {
	TripPlan *httpH.TripPlanHandler
	Sync     *httpH.SyncHandler
	Health   *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services, baseCtx context.Context) Handlers {
	log.Info("Wiring handlers...")
	h := Handlers{
		TripPlan: httpH.NewTripPlanHandler(services.TripPlan),
		Health:   httpH.NewHealthHandler(),
	}
	if services.SyncManager != nil {
		h.Sync = httpH.NewSyncHandler(services.TripPlan, services.SyncManager, baseCtx)
	}
	return h
}
