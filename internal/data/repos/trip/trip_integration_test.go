package trip_test

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/data/repos/testutil"
	triprepo "github.com/tripweaver/tripweaver-backend/internal/data/repos/trip"
	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/platform/dbctx"
)

func TestTripRepoGetByID(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := triprepo.NewTripRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedTrip(t, tx)

	got, err := repo.GetByID(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got == nil || got.ID != seeded.ID {
		t.Fatalf("expected seeded trip back, got %+v", got)
	}

	missing, err := repo.GetByID(dbc, uuid.New())
	if err != nil {
		t.Fatalf("GetByID missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("missing trip must return nil, got %+v", missing)
	}
}

func TestTripRepoPlanTreeRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := triprepo.NewTripRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedTrip(t, tx)

	stop := &domain.TripStop{ID: uuid.New(), TripID: seeded.ID, Name: "Amsterdam", Kind: "CITY", Order: 1}
	if err := repo.CreateStop(dbc, stop); err != nil {
		t.Fatalf("CreateStop: %v", err)
	}
	day := &domain.TripDay{ID: uuid.New(), StopID: stop.ID, TripID: seeded.ID, DayIndex: 1, Title: "Arrival"}
	if err := repo.CreateDay(dbc, day); err != nil {
		t.Fatalf("CreateDay: %v", err)
	}
	items := []*domain.TripItem{
		{ID: uuid.New(), DayID: day.ID, TripID: seeded.ID, Type: "SIGHT", Title: "Rijksmuseum", Status: "DRAFT", OrderIndex: 0},
		{ID: uuid.New(), DayID: day.ID, TripID: seeded.ID, Type: "FOOD", Title: "Foodhallen", Status: "DRAFT", OrderIndex: 1},
	}
	if err := repo.CreateItems(dbc, items); err != nil {
		t.Fatalf("CreateItems: %v", err)
	}

	tree, err := repo.LoadPlanTree(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("LoadPlanTree: %v", err)
	}
	if len(tree.Stops) != 1 || len(tree.Days) != 1 || len(tree.Items) != 2 {
		t.Fatalf("unexpected tree shape: %d stops, %d days, %d items", len(tree.Stops), len(tree.Days), len(tree.Items))
	}
	if tree.Items[0].Title != "Rijksmuseum" {
		t.Fatalf("items must come back in order_index order, got %q first", tree.Items[0].Title)
	}

	if err := repo.DeletePlanTree(dbc, seeded.ID); err != nil {
		t.Fatalf("DeletePlanTree: %v", err)
	}
	tree, err = repo.LoadPlanTree(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("LoadPlanTree after delete: %v", err)
	}
	if len(tree.Stops)+len(tree.Days)+len(tree.Items) != 0 {
		t.Fatalf("tree must be empty after delete, got %+v", tree)
	}
}

func TestTripRepoUpdateFieldsByVersion(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := triprepo.NewTripRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedTrip(t, tx)

	ok, err := repo.UpdateFieldsByVersion(dbc, seeded.ID, seeded.CurrentVersion, map[string]interface{}{
		"current_version": seeded.CurrentVersion + 1,
		"status":          domain.TripStatusPlanned,
	})
	if err != nil {
		t.Fatalf("UpdateFieldsByVersion: %v", err)
	}
	if !ok {
		t.Fatal("CAS with correct version must succeed")
	}

	ok, err = repo.UpdateFieldsByVersion(dbc, seeded.ID, seeded.CurrentVersion, map[string]interface{}{
		"current_version": seeded.CurrentVersion + 2,
	})
	if err != nil {
		t.Fatalf("UpdateFieldsByVersion stale: %v", err)
	}
	if ok {
		t.Fatal("CAS with stale version must fail")
	}
}

func TestTripRevisionRepoOrderingAndLatest(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := triprepo.NewTripRevisionRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	seeded := testutil.SeedTrip(t, tx)

	for v := 1; v <= 3; v++ {
		rev := &domain.TripRevision{
			ID:      uuid.New(),
			TripID:  seeded.ID,
			Version: v,
			Source:  domain.RevisionSourceAPI,
			Actor:   "user",
			Payload: []byte(`{"stops":[]}`),
		}
		if err := repo.Create(dbc, rev); err != nil {
			t.Fatalf("Create v%d: %v", v, err)
		}
	}

	revs, err := repo.ListByTrip(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("ListByTrip: %v", err)
	}
	if len(revs) != 3 {
		t.Fatalf("expected 3 revisions, got %d", len(revs))
	}
	for i, want := range []int{3, 2, 1} {
		if revs[i].Version != want {
			t.Fatalf("revisions must list newest-first, position %d is v%d", i, revs[i].Version)
		}
	}

	latest, err := repo.LatestVersion(dbc, seeded.ID)
	if err != nil {
		t.Fatalf("LatestVersion: %v", err)
	}
	if latest != 3 {
		t.Fatalf("expected latest version 3, got %d", latest)
	}

	latest, err = repo.LatestVersion(dbc, uuid.New())
	if err != nil {
		t.Fatalf("LatestVersion empty: %v", err)
	}
	if latest != 0 {
		t.Fatalf("no revisions must report version 0, got %d", latest)
	}
}
