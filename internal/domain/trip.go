package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	TripStatusDraft   = "draft"
	TripStatusPlanned = "planned"
)

type Trip struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	Title          string         `gorm:"column:title;not null" json:"title"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	Preferences    datatypes.JSON `gorm:"column:preferences;type:jsonb" json:"preferences"`
	CurrentVersion int            `gorm:"column:current_version;not null;default:0" json:"current_version"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now();index" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Trip) TableName() string { return "trip" }

// TripStop is a geographic anchor grouping one or more days. Stops carry no
// identity across plan writes; every write recreates them.
type TripStop struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TripID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"trip_id"`
	Name        string         `gorm:"column:name;not null" json:"name"`
	Kind        string         `gorm:"column:kind;not null" json:"kind"`
	Description string         `gorm:"column:description" json:"description,omitempty"`
	Locations   datatypes.JSON `gorm:"column:locations;type:jsonb" json:"locations"`
	Order       int            `gorm:"column:order_index;not null" json:"order"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (TripStop) TableName() string { return "trip_stop" }

type TripDay struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StopID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"stop_id"`
	TripID    uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:uniq_trip_day_index" json:"trip_id"`
	DayIndex  int        `gorm:"column:day_index;not null;uniqueIndex:uniq_trip_day_index" json:"day_index"`
	Date      *time.Time `gorm:"column:date" json:"date,omitempty"`
	Title     string     `gorm:"column:title" json:"title,omitempty"`
	CreatedAt time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (TripDay) TableName() string { return "trip_day" }

type TripItem struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	DayID           uuid.UUID  `gorm:"type:uuid;not null;index" json:"day_id"`
	TripID          uuid.UUID  `gorm:"type:uuid;not null;index" json:"trip_id"`
	Type            string     `gorm:"column:type;not null" json:"type"`
	Title           string     `gorm:"column:title;not null" json:"title"`
	Description     string     `gorm:"column:description" json:"description,omitempty"`
	StartTime       string     `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime         string     `gorm:"column:end_time" json:"end_time,omitempty"`
	LocationName    string     `gorm:"column:location_name" json:"location_name,omitempty"`
	ExternalPlaceID *string    `gorm:"column:external_place_id" json:"external_place_id,omitempty"`
	Lat             *float64   `gorm:"column:lat" json:"lat,omitempty"`
	Lng             *float64   `gorm:"column:lng" json:"lng,omitempty"`
	ExperienceID    *uuid.UUID `gorm:"type:uuid;column:experience_id;index" json:"experience_id,omitempty"`
	HostID          *uuid.UUID `gorm:"type:uuid;column:host_id;index" json:"host_id,omitempty"`
	Status          string     `gorm:"column:status;not null;default:DRAFT" json:"status"`
	OrderIndex      int        `gorm:"column:order_index;not null" json:"order_index"`
	CreatedAt       time.Time  `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (TripItem) TableName() string { return "trip_item" }

const (
	RevisionSourceAPI     = "api"
	RevisionSourcePlanner = "planner"
)

// TripRevision is an immutable audit record of one successful plan write.
// Versions are strictly increasing and gap-free per trip.
type TripRevision struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	TripID              uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:uniq_trip_revision_version" json:"trip_id"`
	Version             int            `gorm:"column:version;not null;uniqueIndex:uniq_trip_revision_version" json:"version"`
	Source              string         `gorm:"column:source;not null" json:"source"`
	Actor               string         `gorm:"column:actor;not null" json:"actor"`
	Reason              string         `gorm:"column:reason" json:"reason,omitempty"`
	JobID               string         `gorm:"column:job_id;index" json:"job_id,omitempty"`
	GenerationID        string         `gorm:"column:generation_id" json:"generation_id,omitempty"`
	RestoredFromVersion *int           `gorm:"column:restored_from_version" json:"restored_from_version,omitempty"`
	Payload             datatypes.JSON `gorm:"column:payload;type:jsonb;not null" json:"payload"`
	CreatedAt           time.Time      `gorm:"not null;default:now();index" json:"created_at"`
}

func (TripRevision) TableName() string { return "trip_revision" }
