package plan

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
)

// ParseLocations decodes a stop's stored locations column. Malformed or
// empty JSON yields an empty slice, never an error: stored shapes are a
// loose boundary and callers want a well-defined default.
func ParseLocations(raw datatypes.JSON) []domain.PlanLocation {
	if len(raw) == 0 {
		return []domain.PlanLocation{}
	}
	var locs []domain.PlanLocation
	if err := json.Unmarshal(raw, &locs); err != nil {
		return []domain.PlanLocation{}
	}
	out := locs[:0]
	for _, l := range locs {
		if l.Name == "" && l.Lat == 0 && l.Lng == 0 {
			continue
		}
		out = append(out, l)
	}
	return out
}

// ParseBookings decodes a loose booking snapshot array. Entries without an id
// are dropped; malformed input yields an empty slice. Snapshot order is
// preserved as supplied (newest-first by contract).
func ParseBookings(raw []byte) []domain.BookingSnapshot {
	if len(raw) == 0 {
		return []domain.BookingSnapshot{}
	}
	var snaps []domain.BookingSnapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		return []domain.BookingSnapshot{}
	}
	out := snaps[:0]
	for _, s := range snaps {
		if s.ID == uuid.Nil {
			continue
		}
		out = append(out, s)
	}
	return out
}
