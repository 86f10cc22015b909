package plan

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

func dest(name string, dayIndex int, acts ...DisplayActivity) DisplayDestination {
	return DisplayDestination{
		DayID:      uuid.New(),
		DayIndex:   dayIndex,
		StopName:   name,
		StopKind:   "CITY",
		Lat:        1,
		Lng:        2,
		Activities: acts,
	}
}

func act(title, placeID string) DisplayActivity {
	return DisplayActivity{
		ID:     uuid.New(),
		Type:   domain.ItemSight,
		Title:  title,
		Status: domain.ItemStatusDraft,
		Place:  DisplayPlace{ID: placeID, Name: title},
	}
}

func TestBuildWritePayloadRevisitedCityGetsTwoStops(t *testing.T) {
	dests := []DisplayDestination{
		dest("Amsterdam", 1),
		dest("Amsterdam", 2),
		dest("Utrecht", 3),
		dest("Amsterdam", 4),
	}
	p := BuildWritePayload(dests)
	if len(p.Stops) != 3 {
		t.Fatalf("stops = %d, want 3 (A, U, A again)", len(p.Stops))
	}
	if p.Stops[0].Name != "Amsterdam" || p.Stops[1].Name != "Utrecht" || p.Stops[2].Name != "Amsterdam" {
		t.Fatalf("stop order wrong: %+v", p.Stops)
	}
	if len(p.Stops[0].Days) != 2 || len(p.Stops[2].Days) != 1 {
		t.Fatalf("consecutive days not grouped: %d / %d", len(p.Stops[0].Days), len(p.Stops[2].Days))
	}
}

func TestBuildWritePayloadStripsSyntheticPlaceIDs(t *testing.T) {
	a := act("Rijksmuseum", "gp:real-id")
	b := act("Loetje", "loc-"+uuid.New().String())
	c := act("Wander", PlaceUnknownID)
	d := act("Vondelpark", "fallback-123")
	e := act("Canal", "place-9")

	p := BuildWritePayload([]DisplayDestination{dest("Amsterdam", 1, a, b, c, d, e)})
	items := p.Stops[0].Days[0].Items
	if items[0].PlaceID == nil || *items[0].PlaceID != "gp:real-id" {
		t.Fatalf("real place id lost: %v", items[0].PlaceID)
	}
	for i, it := range items[1:] {
		if it.PlaceID != nil {
			t.Fatalf("synthetic id leaked at %d: %v", i+1, *it.PlaceID)
		}
	}
}

func TestBuildWritePayloadDefaultsAndDates(t *testing.T) {
	when := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	d := dest("Amsterdam", 1, DisplayActivity{ID: uuid.New(), Title: "Walk", Place: DisplayPlace{ID: PlaceUnknownID}})
	d.Date = &when
	p := BuildWritePayload([]DisplayDestination{d})
	day := p.Stops[0].Days[0]
	if day.Date == nil || *day.Date != "2026-05-04" {
		t.Fatalf("date = %v, want 2026-05-04", day.Date)
	}
	if day.Items[0].Type != string(domain.ItemSight) {
		t.Fatalf("missing type should default to SIGHT, got %q", day.Items[0].Type)
	}
}

func TestBuildWritePayloadDropsFallbackCoordinates(t *testing.T) {
	own := act("Rijksmuseum", "gp:real-id")
	own.Lat, own.Lng = 52.36, 4.885

	borrowed := act("Wander", PlaceUnknownID)
	borrowed.Lat, borrowed.Lng = 1, 2
	borrowed.UsedStopFallback = true

	p := BuildWritePayload([]DisplayDestination{dest("Amsterdam", 1, own, borrowed)})
	items := p.Stops[0].Days[0].Items
	if items[0].Lat == nil || *items[0].Lat != 52.36 {
		t.Fatalf("item-own coordinates lost: %v", items[0].Lat)
	}
	if items[1].Lat != nil || items[1].Lng != nil {
		t.Fatalf("stop-anchor fallback must not persist as item coordinates: %v/%v", items[1].Lat, items[1].Lng)
	}
}

func TestRoundTripPreservesIDsAndOrder(t *testing.T) {
	in := buildTree(t)
	dp := ToDisplay(in)
	p := BuildWritePayload(dp.Destinations)

	if len(p.Stops) != 2 {
		t.Fatalf("stops = %d, want 2", len(p.Stops))
	}
	day1 := p.Stops[0].Days[0]
	// display order (dense, re-derived) survives into the payload
	if day1.Items[0].Title != "Rijksmuseum" || day1.Items[1].Title != "Loetje" {
		t.Fatalf("item order lost: %+v", day1.Items)
	}
	if day1.Items[0].PlaceID == nil || *day1.Items[0].PlaceID != "gp:ChIJX" {
		t.Fatalf("external place id lost: %v", day1.Items[0].PlaceID)
	}
	if day1.Items[1].PlaceID != nil {
		t.Fatalf("synthesized loc- id must not persist: %v", *day1.Items[1].PlaceID)
	}
}

func TestNormalizePlaceID(t *testing.T) {
	real := "gp:abc"
	if got := NormalizePlaceID(&real); got == nil || *got != "gp:abc" {
		t.Fatalf("real id mangled: %v", got)
	}
	for _, bad := range []string{"unknown", "loc-x", "place-1", "fallback-z", "  ", ""} {
		v := bad
		if got := NormalizePlaceID(&v); got != nil {
			t.Fatalf("NormalizePlaceID(%q) = %q, want nil", bad, *got)
		}
	}
	if NormalizePlaceID(nil) != nil {
		t.Fatalf("nil in, nil out")
	}
}

func TestFromPlanInheritsExperienceHost(t *testing.T) {
	expHost := uuid.New()
	expID := uuid.New()
	p := FromPlan(&domain.Plan{Stops: []domain.PlanStop{{
		Title: "Porto",
		Days: []domain.PlanDay{{
			DayIndex: 1,
			Items: []domain.PlanItem{{
				Title:        "Wine cellar tour",
				Type:         "EXPERIENCE",
				ExperienceID: &expID,
				Experience:   &domain.ExperienceRef{ID: expID, HostID: &expHost},
				OrderIndex:   99, // never trusted
			}},
		}},
	}}})
	item := p.Stops[0].Days[0].Items[0]
	if item.HostID == nil || *item.HostID != expHost {
		t.Fatalf("host not inherited: %v", item.HostID)
	}
}

func TestValidateWritePayload(t *testing.T) {
	cache := NewSchemaCache()

	ok := WritePayload{Stops: []WriteStop{{
		Name: "Amsterdam",
		Days: []WriteDay{{DayIndex: 1, Items: []WriteItem{{Title: "Walk"}}}},
	}}}
	if err := cache.Validate(ok); err != nil {
		t.Fatalf("valid payload rejected: %v", err)
	}

	lat := 1.0
	bad := WritePayload{Stops: []WriteStop{{
		Name: " ",
		Days: []WriteDay{
			{DayIndex: 0, Items: []WriteItem{{Title: ""}}},
			{DayIndex: 2, Items: []WriteItem{{Title: "x", Lat: &lat}}},
		},
	}}}
	err := cache.Validate(bad)
	ve, okErr := err.(*ValidationError)
	if !okErr {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	if len(ve.Issues) != 4 {
		t.Fatalf("issues = %d (%v), want 4", len(ve.Issues), ve.Issues)
	}
	for _, iss := range ve.Issues {
		if iss.Path == "" {
			t.Fatalf("issue without path: %+v", iss)
		}
	}

	cache.Reset()
	if err := cache.Validate(ok); err != nil {
		t.Fatalf("validate after reset: %v", err)
	}
}

func TestValidateDuplicateDayIndex(t *testing.T) {
	cache := NewSchemaCache()
	p := WritePayload{Stops: []WriteStop{
		{Name: "A", Days: []WriteDay{{DayIndex: 1, Items: []WriteItem{{Title: "x"}}}}},
		{Name: "B", Days: []WriteDay{{DayIndex: 1, Items: []WriteItem{{Title: "y"}}}}},
	}}
	err := cache.Validate(p)
	if err == nil {
		t.Fatalf("duplicate day index accepted")
	}
}
