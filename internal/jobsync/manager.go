package jobsync

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/observability"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
	"github.com/tripweaver/tripweaver-backend/internal/services"
)

// Manager owns the active syncers, one per (trip, job) slot. Track is
// idempotent: re-tracking a slot that is already polling is a no-op, and
// re-tracking a finished slot resumes the existing syncer rather than
// starting a fresh one, so finished generations are never re-applied.
type Manager struct {
	log     *logger.Logger
	client  Client
	writer  PlanWriter
	events  services.PlanEventBus
	metrics *observability.Metrics
	cfg     Config

	mu      sync.Mutex
	syncers map[string]*Syncer
}

func NewManager(baseLog *logger.Logger, client Client, writer PlanWriter, events services.PlanEventBus, metrics *observability.Metrics, cfg Config) *Manager {
	if events == nil {
		events = services.NewNoopPlanEventBus()
	}
	return &Manager{
		log:     baseLog.With("component", "JobSyncManager"),
		client:  client,
		writer:  writer,
		events:  events,
		metrics: metrics,
		cfg:     cfg,
		syncers: map[string]*Syncer{},
	}
}

func slotKey(tripID uuid.UUID, jobID string) string {
	return tripID.String() + "|" + jobID
}

// Track starts polling jobID for the trip. The ctx governs the background
// loop; it should outlive the originating request.
func (m *Manager) Track(ctx context.Context, tripID uuid.UUID, jobID string) SyncState {
	key := slotKey(tripID, jobID)

	m.mu.Lock()
	s, ok := m.syncers[key]
	if ok && !s.Terminal() {
		state := s.State()
		m.mu.Unlock()
		return state
	}
	if ok {
		// Re-tracking a finished slot keeps the same syncer so the
		// per-generation guards survive; only the terminal flag is cleared.
		s.Reactivate()
	} else {
		s = NewSyncer(m.log, m.client, m.writer, &broadcastListener{m: m}, m.metrics, tripID, jobID, m.cfg)
		m.syncers[key] = s
	}
	m.mu.Unlock()

	go func() {
		if err := s.Run(ctx); err != nil && err != context.Canceled {
			m.log.Warn("job sync loop ended", "trip_id", tripID, "job_id", jobID, "error", err)
		}
	}()
	return s.State()
}

// State returns the current state of one tracked slot.
func (m *Manager) State(tripID uuid.UUID, jobID string) (SyncState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.syncers[slotKey(tripID, jobID)]
	if !ok {
		return SyncState{}, false
	}
	return s.State(), true
}

// StatesForTrip returns the states of every slot tracked for the trip.
func (m *Manager) StatesForTrip(tripID uuid.UUID) []SyncState {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []SyncState{}
	for _, s := range m.syncers {
		st := s.State()
		if st.TripID == tripID {
			out = append(out, st)
		}
	}
	return out
}

// broadcastListener forwards syncer transitions onto the plan event bus so
// every API instance can push them to its connected clients.
type broadcastListener struct {
	m *Manager
}

func (l *broadcastListener) publish(tripID uuid.UUID, jobID, generationID, status string, version int) {
	ev := services.PlanEvent{
		Type:         services.PlanEventSyncStatus,
		TripID:       tripID,
		JobID:        jobID,
		GenerationID: generationID,
		Status:       status,
		Version:      version,
	}
	if err := l.m.events.Publish(context.Background(), ev); err != nil {
		l.m.log.Warn("sync event publish failed", "trip_id", tripID, "job_id", jobID, "error", err)
	}
}

func (l *broadcastListener) Started(tripID uuid.UUID, jobID, generationID string) {
	l.publish(tripID, jobID, generationID, "started", 0)
}

func (l *broadcastListener) DraftApplied(tripID uuid.UUID, jobID, generationID string, _ *domain.JobSnapshot) {
	l.publish(tripID, jobID, generationID, "draft", 0)
}

func (l *broadcastListener) CompleteApplied(tripID uuid.UUID, jobID, generationID string, version int, _ *domain.JobSnapshot) {
	l.publish(tripID, jobID, generationID, "complete", version)
}

func (l *broadcastListener) JobFailed(tripID uuid.UUID, jobID, message string) {
	l.publish(tripID, jobID, "", "error", 0)
	l.m.log.Info("generation job failed", "trip_id", tripID, "job_id", jobID, "message", message)
}

func (l *broadcastListener) PollError(tripID uuid.UUID, jobID string, err error) {
	l.m.log.Debug("job poll error", "trip_id", tripID, "job_id", jobID, "error", err)
}
