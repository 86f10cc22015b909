package domain

import (
	"strings"

	"github.com/google/uuid"
)

// JobStatus is the polled state of an asynchronous plan generation job.
type JobStatus string

const (
	JobStatusDraft    JobStatus = "draft"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusError    JobStatus = "error"
)

type GenerationMode string

const (
	GenerationDraft  GenerationMode = "draft"
	GenerationRefine GenerationMode = "refine"
)

// Known progress stages. Anything else reported by the planner is normalized
// to StageWorking rather than propagated verbatim.
const (
	StageQueued    = "queued"
	StageResearch  = "research"
	StageDrafting  = "drafting"
	StageRefining  = "refining"
	StageFinishing = "finishing"
	StageWorking   = "working"
)

func NormalizeStage(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case StageQueued, StageResearch, StageDrafting, StageRefining, StageFinishing, StageWorking:
		return strings.ToLower(strings.TrimSpace(v))
	default:
		return StageWorking
	}
}

type JobProgress struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Current *int   `json:"current,omitempty"`
	Total   *int   `json:"total,omitempty"`
}

// HostMarker is a map pin for an experience host surfaced by the planner.
// Passed through to the display layer opaquely.
type HostMarker struct {
	HostID uuid.UUID `json:"hostId"`
	Name   string    `json:"name"`
	Lat    float64   `json:"lat"`
	Lng    float64   `json:"lng"`
}

// JobSnapshot is one poll of a generation job. A single job id may span
// multiple generations; GenerationID disambiguates which plan content is
// current for the job.
type JobSnapshot struct {
	JobID          string         `json:"jobId"`
	TripID         *uuid.UUID     `json:"tripId,omitempty"`
	Status         JobStatus      `json:"status"`
	GenerationID   string         `json:"generationId"`
	GenerationMode GenerationMode `json:"generationMode"`
	Progress       JobProgress    `json:"progress"`
	Plan           *Plan          `json:"plan,omitempty"`
	HostMarkers    []HostMarker   `json:"hostMarkers,omitempty"`
	Error          string         `json:"error,omitempty"`
}
