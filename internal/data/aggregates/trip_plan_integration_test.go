package aggregates_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tripweaver/tripweaver-backend/internal/data/aggregates"
	"github.com/tripweaver/tripweaver-backend/internal/data/repos/testutil"
	triprepo "github.com/tripweaver/tripweaver-backend/internal/data/repos/trip"
	"github.com/tripweaver/tripweaver-backend/internal/domain"
	domainagg "github.com/tripweaver/tripweaver-backend/internal/domain/aggregates"
	"github.com/tripweaver/tripweaver-backend/internal/plan"
	"github.com/tripweaver/tripweaver-backend/internal/platform/dbctx"
)

// The aggregate commits its own transactions, so these tests seed committed
// rows and remove them afterwards instead of rolling a wrapper tx back.
func seedCommittedTrip(t *testing.T, db *gorm.DB) *domain.Trip {
	t.Helper()
	trip := &domain.Trip{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Title:          "Committed Trip",
		Status:         domain.TripStatusDraft,
		CurrentVersion: 0,
	}
	if err := db.Create(trip).Error; err != nil {
		t.Fatalf("seed trip: %v", err)
	}
	t.Cleanup(func() {
		db.Where("trip_id = ?", trip.ID).Delete(&domain.TripItem{})
		db.Where("trip_id = ?", trip.ID).Delete(&domain.TripDay{})
		db.Where("trip_id = ?", trip.ID).Delete(&domain.TripStop{})
		db.Where("trip_id = ?", trip.ID).Delete(&domain.TripRevision{})
		db.Unscoped().Where("id = ?", trip.ID).Delete(&domain.Trip{})
	})
	return trip
}

func newAggregate(t *testing.T, db *gorm.DB) *aggregates.TripPlanAggregate {
	t.Helper()
	log := testutil.Logger(t)
	trips := triprepo.NewTripRepo(db, log)
	revisions := triprepo.NewTripRevisionRepo(db, log)
	return aggregates.NewTripPlanAggregate(db, log, trips, revisions, aggregates.NoopHooks())
}

func twoDayPayload() plan.WritePayload {
	title := "Low Countries"
	return plan.WritePayload{
		Title: &title,
		Stops: []plan.WriteStop{
			{
				Name: "Amsterdam",
				Kind: "CITY",
				Days: []plan.WriteDay{
					{DayIndex: 1, Title: "Arrival", Items: []plan.WriteItem{
						{Type: "SIGHT", Title: "Rijksmuseum"},
						{Type: "FOOD", Title: "Foodhallen"},
					}},
					{DayIndex: 2, Title: "Canals", Items: []plan.WriteItem{
						{Type: "EXPERIENCE", Title: "Canal Cruise"},
					}},
				},
			},
		},
	}
}

func TestSaveCreatesVersionAndRevision(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)
	ctx := context.Background()

	res, err := agg.Save(ctx, aggregates.SaveCommand{
		TripID:  trip.ID,
		Mode:    aggregates.WriteModeUser,
		UserID:  trip.UserID,
		Payload: twoDayPayload(),
		Source:  domain.RevisionSourceAPI,
		Actor:   "user",
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if res.Version != 1 {
		t.Fatalf("first save must produce version 1, got %d", res.Version)
	}
	if len(res.DayIDsByIndex) != 2 {
		t.Fatalf("expected day ids for 2 days, got %d", len(res.DayIDsByIndex))
	}

	var reloaded domain.Trip
	if err := db.First(&reloaded, "id = ?", trip.ID).Error; err != nil {
		t.Fatalf("reload trip: %v", err)
	}
	if reloaded.CurrentVersion != 1 {
		t.Fatalf("trip version must be 1, got %d", reloaded.CurrentVersion)
	}
	if reloaded.Status != domain.TripStatusPlanned {
		t.Fatalf("trip status must be planned, got %q", reloaded.Status)
	}
	if reloaded.Title != "Low Countries" {
		t.Fatalf("title must update from payload, got %q", reloaded.Title)
	}

	revisions := triprepo.NewTripRevisionRepo(db, testutil.Logger(t))
	revs, err := revisions.ListByTrip(dbctx.Context{Ctx: ctx}, trip.ID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(revs) != 1 || revs[0].Version != 1 {
		t.Fatalf("expected one revision at v1, got %+v", revs)
	}
}

func TestSaveSequenceIsGapFree(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := agg.Save(ctx, aggregates.SaveCommand{
			TripID:  trip.ID,
			Mode:    aggregates.WriteModeUser,
			UserID:  trip.UserID,
			Payload: twoDayPayload(),
			Source:  domain.RevisionSourceAPI,
			Actor:   "user",
		})
		if err != nil {
			t.Fatalf("Save %d: %v", i, err)
		}
		if res.Version != i+1 {
			t.Fatalf("save %d must produce version %d, got %d", i, i+1, res.Version)
		}
	}

	revisions := triprepo.NewTripRevisionRepo(db, testutil.Logger(t))
	revs, err := revisions.ListByTrip(dbctx.Context{Ctx: ctx}, trip.ID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	for i, want := range []int{3, 2, 1} {
		if revs[i].Version != want {
			t.Fatalf("expected gap-free newest-first versions, position %d is v%d", i, revs[i].Version)
		}
	}
}

func TestSaveExpectedVersionConflict(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)
	ctx := context.Background()

	if _, err := agg.Save(ctx, aggregates.SaveCommand{
		TripID:  trip.ID,
		Mode:    aggregates.WriteModeUser,
		UserID:  trip.UserID,
		Payload: twoDayPayload(),
		Source:  domain.RevisionSourceAPI,
	}); err != nil {
		t.Fatalf("setup save: %v", err)
	}

	stale := 0
	_, err := agg.Save(ctx, aggregates.SaveCommand{
		TripID:          trip.ID,
		Mode:            aggregates.WriteModeUser,
		UserID:          trip.UserID,
		ExpectedVersion: &stale,
		Payload:         twoDayPayload(),
		Source:          domain.RevisionSourceAPI,
	})
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("stale expected version must conflict, got %v", err)
	}

	// The failed write must leave no trace.
	var reloaded domain.Trip
	if err := db.First(&reloaded, "id = ?", trip.ID).Error; err != nil {
		t.Fatalf("reload trip: %v", err)
	}
	if reloaded.CurrentVersion != 1 {
		t.Fatalf("conflicted save must not move version, got %d", reloaded.CurrentVersion)
	}
	var count int64
	if err := db.Model(&domain.TripItem{}).Where("trip_id = ?", trip.ID).Count(&count).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if count != 3 {
		t.Fatalf("conflicted save must leave the plan tree intact, got %d items", count)
	}
}

func TestSaveForbiddenForOtherUser(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)

	_, err := agg.Save(context.Background(), aggregates.SaveCommand{
		TripID:  trip.ID,
		Mode:    aggregates.WriteModeUser,
		UserID:  uuid.New(),
		Payload: twoDayPayload(),
		Source:  domain.RevisionSourceAPI,
	})
	if !domainagg.IsCode(err, domainagg.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestSaveUnknownTripNotFound(t *testing.T) {
	db := testutil.DB(t)
	agg := newAggregate(t, db)

	_, err := agg.Save(context.Background(), aggregates.SaveCommand{
		TripID:  uuid.New(),
		Mode:    aggregates.WriteModeUser,
		UserID:  uuid.New(),
		Payload: twoDayPayload(),
		Source:  domain.RevisionSourceAPI,
	})
	if !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("expected not_found, got %v", err)
	}
}

func TestSaveInvalidPayloadValidation(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)

	payload := twoDayPayload()
	payload.Stops[0].Name = " "

	_, err := agg.Save(context.Background(), aggregates.SaveCommand{
		TripID:  trip.ID,
		Mode:    aggregates.WriteModeUser,
		UserID:  trip.UserID,
		Payload: payload,
		Source:  domain.RevisionSourceAPI,
	})
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation, got %v", err)
	}
}

func TestSaveRecordsRestoreProvenance(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)
	ctx := context.Background()

	if _, err := agg.Save(ctx, aggregates.SaveCommand{
		TripID:  trip.ID,
		Mode:    aggregates.WriteModeUser,
		UserID:  trip.UserID,
		Payload: twoDayPayload(),
		Source:  domain.RevisionSourceAPI,
	}); err != nil {
		t.Fatalf("setup save: %v", err)
	}

	from := 1
	res, err := agg.Save(ctx, aggregates.SaveCommand{
		TripID:              trip.ID,
		Mode:                aggregates.WriteModeUser,
		UserID:              trip.UserID,
		Payload:             twoDayPayload(),
		Source:              domain.RevisionSourceAPI,
		Reason:              "restore",
		RestoredFromVersion: &from,
	})
	if err != nil {
		t.Fatalf("restore save: %v", err)
	}
	if res.Version != 2 {
		t.Fatalf("restore must mint a new version, got %d", res.Version)
	}

	var rev domain.TripRevision
	if err := db.First(&rev, "trip_id = ? AND version = ?", trip.ID, 2).Error; err != nil {
		t.Fatalf("load revision: %v", err)
	}
	if rev.RestoredFromVersion == nil || *rev.RestoredFromVersion != 1 {
		t.Fatalf("revision must record restore provenance, got %+v", rev.RestoredFromVersion)
	}
}

func TestSaveInternalModeWithJobProvenance(t *testing.T) {
	db := testutil.DB(t)
	trip := seedCommittedTrip(t, db)
	agg := newAggregate(t, db)
	ctx := context.Background()

	owner := trip.UserID
	res, err := agg.Save(ctx, aggregates.SaveCommand{
		TripID:              trip.ID,
		Mode:                aggregates.WriteModeInternal,
		ExpectedOwnerUserID: &owner,
		Payload:             twoDayPayload(),
		Source:              domain.RevisionSourcePlanner,
		Actor:               "planner",
		JobID:               "job-123",
		GenerationID:        "gen-1",
	})
	if err != nil {
		t.Fatalf("internal save: %v", err)
	}

	var rev domain.TripRevision
	if err := db.First(&rev, "trip_id = ? AND version = ?", trip.ID, res.Version).Error; err != nil {
		t.Fatalf("load revision: %v", err)
	}
	if rev.JobID != "job-123" || rev.GenerationID != "gen-1" {
		t.Fatalf("revision must carry job provenance, got job=%q gen=%q", rev.JobID, rev.GenerationID)
	}
	if rev.Source != domain.RevisionSourcePlanner {
		t.Fatalf("revision source must be planner, got %q", rev.Source)
	}
}
