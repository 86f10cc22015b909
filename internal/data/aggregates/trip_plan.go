package aggregates

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tripweaver/tripweaver-backend/internal/data/repos/trip"
	"github.com/tripweaver/tripweaver-backend/internal/domain"
	domainagg "github.com/tripweaver/tripweaver-backend/internal/domain/aggregates"
	"github.com/tripweaver/tripweaver-backend/internal/plan"
	"github.com/tripweaver/tripweaver-backend/internal/platform/dbctx"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

// SaveCommand is one full-rewrite plan write.
type SaveCommand struct {
	TripID              uuid.UUID
	Mode                WriteMode
	UserID              uuid.UUID
	ExpectedOwnerUserID *uuid.UUID
	ExpectedVersion     *int
	Payload             plan.WritePayload
	Source              string
	Actor               string
	Reason              string
	JobID               string
	GenerationID        string
	RestoredFromVersion *int
}

// SaveResult reports the committed version and the dayIndex→durable day id
// mapping so in-flight client state can be re-pointed at the new rows.
type SaveResult struct {
	TripID        uuid.UUID
	Version       int
	DayIDsByIndex map[int]uuid.UUID
}

// TripPlanAggregate owns the transactional write path for trip plans:
// authorization, optimistic concurrency, delete-then-recreate persistence and
// the paired revision record.
type TripPlanAggregate struct {
	db        *gorm.DB
	log       *logger.Logger
	runner    TxRunner
	hooks     Hooks
	trips     trip.TripRepo
	revisions trip.TripRevisionRepo
	schema    *plan.SchemaCache
}

func NewTripPlanAggregate(db *gorm.DB, baseLog *logger.Logger, trips trip.TripRepo, revisions trip.TripRevisionRepo, hooks Hooks) *TripPlanAggregate {
	if hooks == nil {
		hooks = NoopHooks()
	}
	return &TripPlanAggregate{
		db:        db,
		log:       baseLog.With("aggregate", "TripPlanAggregate"),
		runner:    NewGormTxRunner(db),
		hooks:     hooks,
		trips:     trips,
		revisions: revisions,
		schema:    plan.NewSchemaCache(),
	}
}

// SchemaCache exposes the validator cache so tests can reset it.
func (a *TripPlanAggregate) SchemaCache() *plan.SchemaCache { return a.schema }

// Save executes one plan write as a single transaction. Authorization,
// payload validation and the expected-version check all run before any row
// is touched; a failure anywhere rolls the whole write back.
func (a *TripPlanAggregate) Save(ctx context.Context, cmd SaveCommand) (*SaveResult, error) {
	const op = "trip_plan.save"
	start := time.Now()

	var result *SaveResult
	err := a.runner.InTx(ctx, func(dbc dbctx.Context) error {
		t, err := a.trips.GetByIDForUpdate(dbc, cmd.TripID)
		if err != nil {
			return err
		}
		if err := AuthorizeTripWrite(cmd.Mode, t, cmd.UserID, cmd.ExpectedOwnerUserID); err != nil {
			return err
		}
		if err := a.schema.Validate(cmd.Payload); err != nil {
			return domainagg.Wrap(domainagg.CodeValidation, op, err)
		}
		if cmd.ExpectedVersion != nil {
			if err := RequireVersionMatch(t.CurrentVersion, *cmd.ExpectedVersion); err != nil {
				return err
			}
		}

		if err := a.trips.DeletePlanTree(dbc, t.ID); err != nil {
			return err
		}

		dayIDs, err := a.recreate(dbc, t.ID, cmd.Payload)
		if err != nil {
			return err
		}

		newVersion := t.CurrentVersion + 1
		updates := map[string]interface{}{
			"status":          domain.TripStatusPlanned,
			"current_version": newVersion,
			"updated_at":      time.Now().UTC(),
		}
		if cmd.Payload.Title != nil && strings.TrimSpace(*cmd.Payload.Title) != "" {
			updates["title"] = strings.TrimSpace(*cmd.Payload.Title)
		}
		if cmd.Payload.Preferences != nil {
			merged, err := mergePreferences(t.Preferences, cmd.Payload.Preferences)
			if err != nil {
				return err
			}
			updates["preferences"] = merged
		}
		ok, err := a.trips.UpdateFieldsByVersion(dbc, t.ID, t.CurrentVersion, updates)
		if err != nil {
			return err
		}
		if err := RequireCASSuccess(ok, "trip version moved during write"); err != nil {
			return err
		}

		payloadJSON, err := json.Marshal(cmd.Payload)
		if err != nil {
			return err
		}
		rev := &domain.TripRevision{
			TripID:              t.ID,
			Version:             newVersion,
			Source:              cmd.Source,
			Actor:               cmd.Actor,
			Reason:              cmd.Reason,
			JobID:               cmd.JobID,
			GenerationID:        cmd.GenerationID,
			RestoredFromVersion: cmd.RestoredFromVersion,
			Payload:             datatypes.JSON(payloadJSON),
		}
		if err := a.revisions.Create(dbc, rev); err != nil {
			return err
		}

		result = &SaveResult{TripID: t.ID, Version: newVersion, DayIDsByIndex: dayIDs}
		return nil
	})

	mapped := MapError(op, err)
	status := "success"
	if mapped != nil {
		status = string(domainagg.CodeOf(mapped))
		if domainagg.IsCode(mapped, domainagg.CodeConflict) {
			a.hooks.IncConflict(op)
		}
	}
	a.hooks.ObserveOperation(op, status, time.Since(start))
	if mapped != nil {
		return nil, mapped
	}
	return result, nil
}

// recreate rebuilds the stops→days→items tree in payload order and returns
// the dayIndex→day id map produced along the way.
func (a *TripPlanAggregate) recreate(dbc dbctx.Context, tripID uuid.UUID, payload plan.WritePayload) (map[int]uuid.UUID, error) {
	dayIDs := make(map[int]uuid.UUID)
	for si, ws := range payload.Stops {
		locs, err := json.Marshal(ws.Locations)
		if err != nil {
			return nil, err
		}
		stop := &domain.TripStop{
			ID:          uuid.New(),
			TripID:      tripID,
			Name:        strings.TrimSpace(ws.Name),
			Kind:        string(domain.NormalizeStopType(ws.Kind)),
			Description: ws.Description,
			Locations:   datatypes.JSON(locs),
			Order:       si + 1,
		}
		if err := a.trips.CreateStop(dbc, stop); err != nil {
			return nil, err
		}

		for _, wd := range ws.Days {
			day := &domain.TripDay{
				ID:       uuid.New(),
				StopID:   stop.ID,
				TripID:   tripID,
				DayIndex: wd.DayIndex,
				Title:    wd.Title,
			}
			if wd.Date != nil {
				if parsed, err := time.Parse("2006-01-02", *wd.Date); err == nil {
					day.Date = &parsed
				}
			}
			if err := a.trips.CreateDay(dbc, day); err != nil {
				return nil, err
			}
			dayIDs[wd.DayIndex] = day.ID

			items := make([]*domain.TripItem, 0, len(wd.Items))
			for ii, wi := range wd.Items {
				items = append(items, &domain.TripItem{
					ID:              uuid.New(),
					DayID:           day.ID,
					TripID:          tripID,
					Type:            string(domain.NormalizeItemType(wi.Type)),
					Title:           strings.TrimSpace(wi.Title),
					Description:     wi.Description,
					StartTime:       wi.StartTime,
					EndTime:         wi.EndTime,
					LocationName:    wi.LocationName,
					ExternalPlaceID: plan.NormalizePlaceID(wi.PlaceID),
					Lat:             wi.Lat,
					Lng:             wi.Lng,
					ExperienceID:    wi.ExperienceID,
					HostID:          wi.HostID,
					Status:          string(domain.NormalizeItemStatus(wi.Status)),
					OrderIndex:      ii,
				})
			}
			if err := a.trips.CreateItems(dbc, items); err != nil {
				return nil, err
			}
		}
	}
	return dayIDs, nil
}

// mergePreferences shallow-merges the incoming keys over the stored ones.
// Keys absent from the write are preserved.
func mergePreferences(existing datatypes.JSON, incoming map[string]interface{}) (datatypes.JSON, error) {
	merged := map[string]interface{}{}
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &merged); err != nil {
			merged = map[string]interface{}{}
		}
	}
	for k, v := range incoming {
		merged[k] = v
	}
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}
