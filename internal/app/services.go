package app

import (
	"gorm.io/gorm"

	"github.com/tripweaver/tripweaver-backend/internal/data/aggregates"
	"github.com/tripweaver/tripweaver-backend/internal/jobsync"
	"github.com/tripweaver/tripweaver-backend/internal/observability"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
	"github.com/tripweaver/tripweaver-backend/internal/services"
)

type Services struct {
	PlanEvents  services.PlanEventBus
	TripPlan    *services.TripPlanService
	SyncManager *jobsync.Manager
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, repos Repos, metrics *observability.Metrics) (Services, error) {
	log.Info("Wiring services...")

	hooks := aggregates.NewObservabilityHooks(metrics)
	planAgg := aggregates.NewTripPlanAggregate(db, log, repos.Trip, repos.TripRevision, hooks)

	events, err := services.NewPlanEventBus(log)
	if err != nil {
		log.Warn("Plan event bus unavailable, events will not fan out", "error", err)
		events = services.NewNoopPlanEventBus()
	}

	planService := services.NewTripPlanService(log, repos.Trip, repos.TripRevision, planAgg, services.NewNoopBookingSource(), events)

	var manager *jobsync.Manager
	if cfg.PlannerBaseURL == "" {
		log.Warn("PLANNER_BASE_URL not set, plan generation sync disabled")
	} else {
		client, err := jobsync.NewHTTPClient(cfg.PlannerBaseURL, log)
		if err != nil {
			return Services{}, err
		}
		manager = jobsync.NewManager(log, client, planService, events, metrics, jobsync.Config{
			PollInterval:    cfg.PollInterval,
			MaxPollDuration: cfg.MaxPollDuration,
		})
	}

	return Services{
		PlanEvents:  events,
		TripPlan:    planService,
		SyncManager: manager,
	}, nil
}
