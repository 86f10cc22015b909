package plan

import (
	"strings"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

// WritePayload is the full-rewrite persistence shape for a trip plan. A write
// replaces every stop, day and item of the trip in one transaction.
type WritePayload struct {
	Title       *string                `json:"title,omitempty"`
	Preferences map[string]interface{} `json:"preferences,omitempty"`
	Stops       []WriteStop            `json:"stops"`
}

type WriteStop struct {
	Name        string                `json:"name"`
	Kind        string                `json:"kind,omitempty"`
	Description string                `json:"description,omitempty"`
	Locations   []domain.PlanLocation `json:"locations,omitempty"`
	Days        []WriteDay            `json:"days"`
}

type WriteDay struct {
	DayIndex int         `json:"dayIndex"`
	Date     *string     `json:"date,omitempty"`
	Title    string      `json:"title,omitempty"`
	Items    []WriteItem `json:"items"`
}

type WriteItem struct {
	Type         string     `json:"type,omitempty"`
	Title        string     `json:"title"`
	Description  string     `json:"description,omitempty"`
	StartTime    string     `json:"startTime,omitempty"`
	EndTime      string     `json:"endTime,omitempty"`
	LocationName string     `json:"locationName,omitempty"`
	PlaceID      *string    `json:"placeId,omitempty"`
	Lat          *float64   `json:"lat,omitempty"`
	Lng          *float64   `json:"lng,omitempty"`
	ExperienceID *uuid.UUID `json:"experienceId,omitempty"`
	HostID       *uuid.UUID `json:"hostId,omitempty"`
	Status       string     `json:"status,omitempty"`
}

// syntheticPlacePrefixes are sentinel ids produced by ToDisplay or by
// unresolved geocoding. They must never reach durable storage.
var syntheticPlacePrefixes = []string{"fallback-", "place-", "loc-"}

// NormalizePlaceID strips synthetic and sentinel place ids to nil so only
// real external place ids are persisted.
func NormalizePlaceID(id *string) *string {
	if id == nil {
		return nil
	}
	v := strings.TrimSpace(*id)
	if v == "" || v == PlaceUnknownID {
		return nil
	}
	for _, p := range syntheticPlacePrefixes {
		if strings.HasPrefix(v, p) {
			return nil
		}
	}
	return &v
}

// BuildWritePayload folds display destinations back into the persistence
// shape. Consecutive destinations sharing a stop name become one stop; a new
// stop boundary opens whenever the name changes, so a route that revisits a
// city later yields two stops. Route order beats city de-duplication.
func BuildWritePayload(dests []DisplayDestination) WritePayload {
	payload := WritePayload{Stops: []WriteStop{}}

	var current *WriteStop
	currentKey := ""
	for _, dest := range dests {
		key := Normalize(dest.StopName)
		if current == nil || key != currentKey {
			payload.Stops = append(payload.Stops, WriteStop{
				Name: strings.TrimSpace(dest.StopName),
				Kind: string(domain.NormalizeStopType(dest.StopKind)),
			})
			current = &payload.Stops[len(payload.Stops)-1]
			currentKey = key
			if dest.Lat != 0 || dest.Lng != 0 {
				current.Locations = []domain.PlanLocation{{
					Name: strings.TrimSpace(dest.StopName),
					Lat:  dest.Lat,
					Lng:  dest.Lng,
				}}
			}
		}

		day := WriteDay{
			DayIndex: dest.DayIndex,
			Title:    dest.Title,
			Items:    make([]WriteItem, 0, len(dest.Activities)),
		}
		if dest.Date != nil {
			d := dest.Date.Format("2006-01-02")
			day.Date = &d
		}
		for _, act := range dest.Activities {
			placeID := act.Place.ID
			item := WriteItem{
				Type:         string(domain.NormalizeItemType(string(act.Type))),
				Title:        act.Title,
				Description:  act.Description,
				StartTime:    act.StartTime,
				EndTime:      act.EndTime,
				LocationName: act.Place.Name,
				PlaceID:      NormalizePlaceID(&placeID),
				ExperienceID: act.ExperienceID,
				HostID:       act.HostID,
				Status:       string(act.Status),
			}
			// Stop-anchor fallback coordinates are a read-time diagnostic;
			// writing them back would turn the fallback into item-own data.
			if !act.UsedStopFallback && (act.Lat != 0 || act.Lng != 0) {
				lat, lng := act.Lat, act.Lng
				item.Lat = &lat
				item.Lng = &lng
			}
			day.Items = append(day.Items, item)
		}
		current.Days = append(current.Days, day)
	}
	return payload
}

// FromPlan converts a canonical planner Plan into the persistence shape.
// Item order indexes are re-derived from array position; incoming values are
// discarded.
func FromPlan(p *domain.Plan) WritePayload {
	payload := WritePayload{Stops: []WriteStop{}}
	if p == nil {
		return payload
	}
	for _, stop := range p.Stops {
		ws := WriteStop{
			Name:        strings.TrimSpace(stop.Title),
			Kind:        string(domain.NormalizeStopType(stop.Type)),
			Description: stop.Description,
			Locations:   stop.Locations,
		}
		for _, day := range stop.Days {
			wd := WriteDay{
				DayIndex: day.DayIndex,
				Date:     day.Date,
				Items:    make([]WriteItem, 0, len(day.Items)),
			}
			if day.Title != nil {
				wd.Title = *day.Title
			}
			for _, it := range day.Items {
				hostID := it.HostID
				if hostID == nil && it.Experience != nil {
					hostID = it.Experience.HostID
				}
				wd.Items = append(wd.Items, WriteItem{
					Type:         string(domain.NormalizeItemType(it.Type)),
					Title:        strings.TrimSpace(it.Title),
					Description:  it.Description,
					StartTime:    it.StartTime,
					EndTime:      it.EndTime,
					LocationName: it.LocationName,
					PlaceID:      NormalizePlaceID(it.ExternalPlaceID),
					Lat:          it.Lat,
					Lng:          it.Lng,
					ExperienceID: it.ExperienceID,
					HostID:       hostID,
					Status:       it.Status,
				})
			}
			ws.Days = append(ws.Days, wd)
		}
		payload.Stops = append(payload.Stops, ws)
	}
	return payload
}
