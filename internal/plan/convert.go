package plan

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

// PlaceUnknownID marks an activity whose place could not be identified.
// Synthetic ids (this sentinel and the loc-/place-/fallback- prefixes) exist
// only in the display model and are stripped before persistence.
const PlaceUnknownID = "unknown"

type DisplayPlace struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type DisplayActivity struct {
	ID               uuid.UUID         `json:"id"`
	Type             domain.ItemType   `json:"type"`
	Title            string            `json:"title"`
	Description      string            `json:"description,omitempty"`
	StartTime        string            `json:"startTime,omitempty"`
	EndTime          string            `json:"endTime,omitempty"`
	Status           domain.ItemStatus `json:"status"`
	CandidateID      *uuid.UUID        `json:"candidateId,omitempty"`
	HostID           *uuid.UUID        `json:"hostId,omitempty"`
	ExperienceID     *uuid.UUID        `json:"experienceId,omitempty"`
	Lat              float64           `json:"lat"`
	Lng              float64           `json:"lng"`
	UsedStopFallback bool              `json:"-"`
	Place            DisplayPlace      `json:"place"`
}

// DisplayDestination is one interactive map anchor: a single day, keyed by
// its durable day id, inheriting the parent stop's primary location.
type DisplayDestination struct {
	DayID      uuid.UUID         `json:"dayId"`
	DayIndex   int               `json:"dayIndex"`
	Date       *time.Time        `json:"date,omitempty"`
	Title      string            `json:"title,omitempty"`
	StopName   string            `json:"stopName"`
	StopKind   string            `json:"stopKind"`
	Lat        float64           `json:"lat"`
	Lng        float64           `json:"lng"`
	Activities []DisplayActivity `json:"activities"`
}

type DisplayPlan struct {
	Destinations []DisplayDestination `json:"destinations"`
}

// DisplayInput bundles the persisted trip tree with the read-only inputs the
// conversion needs: booking snapshots per item (newest-first) and the host id
// of any linked experience.
type DisplayInput struct {
	Stops            []domain.TripStop
	Days             []domain.TripDay
	Items            []domain.TripItem
	BookingsByItem   map[uuid.UUID][]domain.BookingSnapshot
	HostByExperience map[uuid.UUID]uuid.UUID
}

// ToDisplay flattens the persisted stops→days→items tree into one destination
// per day. Within a day items are ordered by OrderIndex ascending with ties
// broken by original array position; destinations come back sorted by day
// index ascending.
func ToDisplay(in DisplayInput) DisplayPlan {
	stopsByID := make(map[uuid.UUID]domain.TripStop, len(in.Stops))
	for _, s := range in.Stops {
		stopsByID[s.ID] = s
	}
	itemsByDay := make(map[uuid.UUID][]domain.TripItem, len(in.Days))
	for _, it := range in.Items {
		itemsByDay[it.DayID] = append(itemsByDay[it.DayID], it)
	}

	dests := make([]DisplayDestination, 0, len(in.Days))
	for _, day := range in.Days {
		stop := stopsByID[day.StopID]
		anchor, hasAnchor := primaryLocation(stop)

		dest := DisplayDestination{
			DayID:    day.ID,
			DayIndex: day.DayIndex,
			Date:     day.Date,
			Title:    day.Title,
			StopName: stop.Name,
			StopKind: stop.Kind,
		}
		if hasAnchor {
			dest.Lat = anchor.Lat
			dest.Lng = anchor.Lng
		}

		items := append([]domain.TripItem(nil), itemsByDay[day.ID]...)
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].OrderIndex < items[j].OrderIndex
		})
		dest.Activities = make([]DisplayActivity, 0, len(items))
		for _, it := range items {
			dest.Activities = append(dest.Activities, toActivity(it, anchor, hasAnchor, in))
		}
		dests = append(dests, dest)
	}

	sort.SliceStable(dests, func(i, j int) bool {
		return dests[i].DayIndex < dests[j].DayIndex
	})
	return DisplayPlan{Destinations: dests}
}

func toActivity(it domain.TripItem, anchor domain.PlanLocation, hasAnchor bool, in DisplayInput) DisplayActivity {
	status, candidateID := DeriveItemStatus(in.BookingsByItem[it.ID], it.Status)

	act := DisplayActivity{
		ID:           it.ID,
		Type:         domain.NormalizeItemType(it.Type),
		Title:        it.Title,
		Description:  it.Description,
		StartTime:    it.StartTime,
		EndTime:      it.EndTime,
		Status:       status,
		CandidateID:  candidateID,
		ExperienceID: it.ExperienceID,
	}

	// Own hostId wins; a linked experience's host is the fallback.
	if it.HostID != nil {
		act.HostID = it.HostID
	} else if it.ExperienceID != nil {
		if hostID, ok := in.HostByExperience[*it.ExperienceID]; ok {
			h := hostID
			act.HostID = &h
		}
	}

	if it.Lat != nil && it.Lng != nil {
		act.Lat = *it.Lat
		act.Lng = *it.Lng
	} else if hasAnchor {
		act.Lat = anchor.Lat
		act.Lng = anchor.Lng
		act.UsedStopFallback = true
	}

	act.Place = DisplayPlace{
		ID:   PlaceUnknownID,
		Name: it.LocationName,
		Lat:  act.Lat,
		Lng:  act.Lng,
	}
	switch {
	case it.ExternalPlaceID != nil && *it.ExternalPlaceID != "":
		act.Place.ID = *it.ExternalPlaceID
	case it.LocationName != "":
		act.Place.ID = fmt.Sprintf("loc-%s", it.ID)
	}
	return act
}

func primaryLocation(stop domain.TripStop) (domain.PlanLocation, bool) {
	locs := ParseLocations(stop.Locations)
	if len(locs) == 0 {
		return domain.PlanLocation{}, false
	}
	return locs[0], true
}
