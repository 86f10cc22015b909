package domain

import (
	"strings"

	"github.com/google/uuid"
)

// StopType classifies the geographic shape of a plan stop.
type StopType string

const (
	StopCity     StopType = "CITY"
	StopRegion   StopType = "REGION"
	StopRoadTrip StopType = "ROAD_TRIP"
	StopTrail    StopType = "TRAIL"
)

// NormalizeStopType maps unknown or missing values to CITY.
func NormalizeStopType(v string) StopType {
	switch StopType(strings.ToUpper(strings.TrimSpace(v))) {
	case StopCity, StopRegion, StopRoadTrip, StopTrail:
		return StopType(strings.ToUpper(strings.TrimSpace(v)))
	default:
		return StopCity
	}
}

// ItemType classifies a single itinerary activity.
type ItemType string

const (
	ItemSight      ItemType = "SIGHT"
	ItemExperience ItemType = "EXPERIENCE"
	ItemMeal       ItemType = "MEAL"
	ItemFreeTime   ItemType = "FREE_TIME"
	ItemTransport  ItemType = "TRANSPORT"
	ItemNote       ItemType = "NOTE"
	ItemLodging    ItemType = "LODGING"
)

// NormalizeItemType maps unknown or missing values to SIGHT.
func NormalizeItemType(v string) ItemType {
	switch ItemType(strings.ToUpper(strings.TrimSpace(v))) {
	case ItemSight, ItemExperience, ItemMeal, ItemFreeTime, ItemTransport, ItemNote, ItemLodging:
		return ItemType(strings.ToUpper(strings.TrimSpace(v)))
	default:
		return ItemSight
	}
}

// ItemStatus is the derived fulfillment state of an item. It is never stored;
// it is recomputed from booking snapshots at read time.
type ItemStatus string

const (
	ItemStatusDraft   ItemStatus = "DRAFT"
	ItemStatusPending ItemStatus = "PENDING"
	ItemStatusBooked  ItemStatus = "BOOKED"
	ItemStatusFailed  ItemStatus = "FAILED"
)

// NormalizeItemStatus maps unknown persisted values to DRAFT.
func NormalizeItemStatus(v string) ItemStatus {
	switch ItemStatus(strings.ToUpper(strings.TrimSpace(v))) {
	case ItemStatusDraft, ItemStatusPending, ItemStatusBooked, ItemStatusFailed:
		return ItemStatus(strings.ToUpper(strings.TrimSpace(v)))
	default:
		return ItemStatusDraft
	}
}

// Plan is the canonical day-indexed itinerary produced by the planner.
type Plan struct {
	Stops []PlanStop `json:"stops"`
}

type PlanStop struct {
	Title       string         `json:"title"`
	Type        string         `json:"type,omitempty"`
	Description string         `json:"description,omitempty"`
	Locations   []PlanLocation `json:"locations"`
	Days        []PlanDay      `json:"days"`
}

type PlanLocation struct {
	Name            string  `json:"name"`
	Lat             float64 `json:"lat"`
	Lng             float64 `json:"lng"`
	ExternalPlaceID *string `json:"externalPlaceId,omitempty"`
}

type PlanDay struct {
	DayIndex int        `json:"dayIndex"`
	Date     *string    `json:"date,omitempty"`
	Title    *string    `json:"title,omitempty"`
	Items    []PlanItem `json:"items"`
}

type PlanItem struct {
	Type            string            `json:"type,omitempty"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	StartTime       string            `json:"startTime,omitempty"`
	EndTime         string            `json:"endTime,omitempty"`
	LocationName    string            `json:"locationName,omitempty"`
	ExternalPlaceID *string           `json:"externalPlaceId,omitempty"`
	Lat             *float64          `json:"lat,omitempty"`
	Lng             *float64          `json:"lng,omitempty"`
	ExperienceID    *uuid.UUID        `json:"experienceId,omitempty"`
	HostID          *uuid.UUID        `json:"hostId,omitempty"`
	Experience      *ExperienceRef    `json:"experience,omitempty"`
	Status          string            `json:"status,omitempty"`
	OrderIndex      int               `json:"orderIndex"`
	Bookings        []BookingSnapshot `json:"bookings,omitempty"`
}

// ExperienceRef is the subset of a linked experience this engine reads.
// An item without its own hostId inherits the experience host.
type ExperienceRef struct {
	ID     uuid.UUID  `json:"id"`
	HostID *uuid.UUID `json:"hostId,omitempty"`
}
