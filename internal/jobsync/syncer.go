package jobsync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/observability"
	"github.com/tripweaver/tripweaver-backend/internal/platform/httpx"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

// ErrPollDeadlineExceeded reports that MaxPollDuration elapsed before the job
// reached a terminal status.
var ErrPollDeadlineExceeded = errors.New("job poll deadline exceeded")

// Listener receives the syncer's state transitions.
type Listener interface {
	Started(tripID uuid.UUID, jobID, generationID string)
	DraftApplied(tripID uuid.UUID, jobID, generationID string, snap *domain.JobSnapshot)
	CompleteApplied(tripID uuid.UUID, jobID, generationID string, version int, snap *domain.JobSnapshot)
	JobFailed(tripID uuid.UUID, jobID, message string)
	PollError(tripID uuid.UUID, jobID string, err error)
}

// PlanWriter persists a completed planner plan. Implemented by the trip plan
// service's internal write path.
type PlanWriter interface {
	WritePlannerPlan(ctx context.Context, tripID uuid.UUID, p *domain.Plan, jobID, generationID string) (int, error)
}

// Config controls poll cadence. MaxPollDuration zero means poll until a
// terminal status arrives, however long that takes.
type Config struct {
	PollInterval    time.Duration
	MaxPollDuration time.Duration
}

const defaultPollInterval = 3 * time.Second

// SyncState is a point-in-time view of one tracked job, safe to hand out.
type SyncState struct {
	TripID       uuid.UUID          `json:"tripId"`
	JobID        string             `json:"jobId"`
	GenerationID string             `json:"generationId,omitempty"`
	Status       domain.JobStatus   `json:"status,omitempty"`
	Stage        string             `json:"stage,omitempty"`
	Message      string             `json:"message,omitempty"`
	Error        string             `json:"error,omitempty"`
	LastVersion  int                `json:"lastVersion,omitempty"`
	HostMarkers  []domain.HostMarker `json:"hostMarkers,omitempty"`
	Terminal     bool               `json:"terminal"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Syncer polls one (trip, job) slot until the job terminates. The idempotency
// guards live on the struct, keyed jobID|generationID, so re-running the loop
// after a disconnect never re-fires started or re-applies a finished result.
type Syncer struct {
	log      *logger.Logger
	client   Client
	writer   PlanWriter
	listener Listener
	metrics  *observability.Metrics
	cfg      Config

	tripID uuid.UUID
	jobID  string

	mu              sync.Mutex
	inFlight        bool
	terminal        bool
	started         map[string]struct{}
	draftApplied    map[string]struct{}
	completeApplied map[string]struct{}
	state           SyncState
}

func NewSyncer(baseLog *logger.Logger, client Client, writer PlanWriter, listener Listener, metrics *observability.Metrics, tripID uuid.UUID, jobID string, cfg Config) *Syncer {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Syncer{
		log:             baseLog.With("component", "JobSyncer", "trip_id", tripID, "job_id", jobID),
		client:          client,
		writer:          writer,
		listener:        listener,
		metrics:         metrics,
		cfg:             cfg,
		tripID:          tripID,
		jobID:           jobID,
		started:         map[string]struct{}{},
		draftApplied:    map[string]struct{}{},
		completeApplied: map[string]struct{}{},
		state:           SyncState{TripID: tripID, JobID: jobID},
	}
}

// State returns a copy of the current sync state.
func (s *Syncer) State() SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Terminal reports whether the job reached complete or error.
func (s *Syncer) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// Reactivate clears the terminal flag so a finished slot can be polled again,
// e.g. when a regeneration reuses the same job id. The per-generation guards
// are kept: an already-applied result is neither re-persisted nor
// re-announced.
func (s *Syncer) Reactivate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terminal = false
	s.state.Terminal = false
}

// Run polls until the job terminates or ctx is cancelled. It may be called
// again after returning; the guard maps persist across runs, so a second Run
// on a finished job exits immediately without replaying transitions.
func (s *Syncer) Run(ctx context.Context) error {
	if s.Terminal() {
		return nil
	}
	s.metrics.SyncJobStarted()
	defer s.metrics.SyncJobFinished()

	var deadline time.Time
	if s.cfg.MaxPollDuration > 0 {
		deadline = time.Now().Add(s.cfg.MaxPollDuration)
	}

	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	s.poll(ctx)
	for {
		if s.Terminal() {
			return nil
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			s.listener.PollError(s.tripID, s.jobID, ErrPollDeadlineExceeded)
			return ErrPollDeadlineExceeded
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll issues a single job fetch. A tick that lands while a previous poll is
// still outstanding is dropped, not queued.
func (s *Syncer) poll(ctx context.Context) {
	s.mu.Lock()
	if s.inFlight || s.terminal {
		s.mu.Unlock()
		return
	}
	s.inFlight = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight = false
		s.mu.Unlock()
	}()

	snap, err := s.client.GetJob(ctx, s.jobID)
	if err != nil {
		if httpx.IsRetryableError(err) {
			s.metrics.ObserveSyncPoll("retryable")
		} else {
			s.metrics.ObserveSyncPoll("error")
		}
		s.log.Warn("job poll failed", "error", err)
		s.listener.PollError(s.tripID, s.jobID, err)
		return
	}
	s.metrics.ObserveSyncPoll("ok")
	s.handle(ctx, snap)
}

func (s *Syncer) handle(ctx context.Context, snap *domain.JobSnapshot) {
	if snap == nil {
		return
	}
	// A stale background job for another trip must never touch this one.
	if snap.TripID != nil && *snap.TripID != s.tripID {
		s.log.Debug("ignoring snapshot for different trip", "snapshot_trip_id", *snap.TripID)
		return
	}

	genKey := s.jobID + "|" + snap.GenerationID

	s.mu.Lock()
	_, startedBefore := s.started[genKey]
	if !startedBefore {
		s.started[genKey] = struct{}{}
	}
	s.state.GenerationID = snap.GenerationID
	s.state.Status = snap.Status
	s.state.Stage = snap.Progress.Stage
	s.state.Message = snap.Progress.Message
	s.state.HostMarkers = snap.HostMarkers
	s.state.UpdatedAt = time.Now().UTC()
	s.mu.Unlock()

	if !startedBefore {
		s.listener.Started(s.tripID, s.jobID, snap.GenerationID)
	}

	switch snap.Status {
	case domain.JobStatusComplete:
		s.applyComplete(ctx, genKey, snap)
	case domain.JobStatusError:
		s.mu.Lock()
		alreadyTerminal := s.terminal
		s.terminal = true
		s.state.Terminal = true
		s.state.Error = snap.Error
		s.mu.Unlock()
		if !alreadyTerminal {
			s.listener.JobFailed(s.tripID, s.jobID, snap.Error)
		}
	default:
		if snap.Plan == nil {
			return
		}
		s.mu.Lock()
		_, applied := s.draftApplied[genKey]
		if !applied {
			s.draftApplied[genKey] = struct{}{}
		}
		s.mu.Unlock()
		if !applied {
			s.listener.DraftApplied(s.tripID, s.jobID, snap.GenerationID, snap)
		}
	}
}

// applyComplete applies the terminal result at most once per generation,
// persists the finished plan, and stops polling.
func (s *Syncer) applyComplete(ctx context.Context, genKey string, snap *domain.JobSnapshot) {
	s.mu.Lock()
	_, applied := s.completeApplied[genKey]
	if !applied {
		s.completeApplied[genKey] = struct{}{}
	}
	s.terminal = true
	s.state.Terminal = true
	s.mu.Unlock()

	if applied {
		return
	}

	version := 0
	if s.writer != nil && snap.Plan != nil {
		v, err := s.writer.WritePlannerPlan(ctx, s.tripID, snap.Plan, s.jobID, snap.GenerationID)
		if err != nil {
			s.log.Error("persisting completed plan failed", "generation_id", snap.GenerationID, "error", err)
			s.listener.PollError(s.tripID, s.jobID, err)
		} else {
			version = v
		}
	}

	s.mu.Lock()
	s.state.LastVersion = version
	s.mu.Unlock()

	s.listener.CompleteApplied(s.tripID, s.jobID, snap.GenerationID, version, snap)
}
