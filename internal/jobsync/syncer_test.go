package jobsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

type scriptedClient struct {
	mu    sync.Mutex
	snaps []*domain.JobSnapshot
	errs  []error
	idx   int
}

func (c *scriptedClient) GetJob(_ context.Context, _ string) (*domain.JobSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.idx
	if i >= len(c.snaps) {
		i = len(c.snaps) - 1
	}
	c.idx++
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	return c.snaps[i], nil
}

type recordingListener struct {
	mu         sync.Mutex
	transitions []string
	pollErrs   []error
}

func (l *recordingListener) record(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transitions = append(l.transitions, s)
}

func (l *recordingListener) Started(_ uuid.UUID, _, generationID string) {
	l.record("started:" + generationID)
}

func (l *recordingListener) DraftApplied(_ uuid.UUID, _, generationID string, _ *domain.JobSnapshot) {
	l.record("draft:" + generationID)
}

func (l *recordingListener) CompleteApplied(_ uuid.UUID, _, generationID string, version int, _ *domain.JobSnapshot) {
	l.record(fmt.Sprintf("complete:%s:v%d", generationID, version))
}

func (l *recordingListener) JobFailed(_ uuid.UUID, _, message string) {
	l.record("failed:" + message)
}

func (l *recordingListener) PollError(_ uuid.UUID, _ string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pollErrs = append(l.pollErrs, err)
}

func (l *recordingListener) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.transitions...)
}

type countingWriter struct {
	mu      sync.Mutex
	calls   int
	version int
	err     error
}

func (w *countingWriter) WritePlannerPlan(_ context.Context, _ uuid.UUID, _ *domain.Plan, _, _ string) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls++
	if w.err != nil {
		return 0, w.err
	}
	w.version++
	return w.version, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func snap(tripID uuid.UUID, status domain.JobStatus, genID string, withPlan bool) *domain.JobSnapshot {
	s := &domain.JobSnapshot{
		JobID:        "job-1",
		TripID:       &tripID,
		Status:       status,
		GenerationID: genID,
	}
	if withPlan {
		s.Plan = &domain.Plan{Stops: []domain.PlanStop{{Title: "Amsterdam"}}}
	}
	return s
}

func newTestSyncer(t *testing.T, client Client, writer PlanWriter, listener Listener, tripID uuid.UUID) *Syncer {
	t.Helper()
	return NewSyncer(testLogger(t), client, writer, listener, nil, tripID, "job-1", Config{})
}

func TestStartedEmittedOncePerGeneration(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	s := newTestSyncer(t, nil, nil, listener, tripID)
	ctx := context.Background()

	running := snap(tripID, domain.JobStatusRunning, "g1", false)
	s.handle(ctx, running)
	s.handle(ctx, running)
	s.handle(ctx, running)

	got := listener.all()
	if len(got) != 1 || got[0] != "started:g1" {
		t.Fatalf("started must fire exactly once, got %v", got)
	}
}

func TestDraftAppliedOncePerGeneration(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	s := newTestSyncer(t, nil, nil, listener, tripID)
	ctx := context.Background()

	draft := snap(tripID, domain.JobStatusDraft, "g1", true)
	s.handle(ctx, draft)
	s.handle(ctx, draft)

	got := listener.all()
	want := []string{"started:g1", "draft:g1"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestCompleteAppliedOnceAndPersists(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	writer := &countingWriter{}
	s := newTestSyncer(t, nil, writer, listener, tripID)
	ctx := context.Background()

	complete := snap(tripID, domain.JobStatusComplete, "g1", true)
	s.handle(ctx, complete)
	s.handle(ctx, complete)

	if writer.calls != 1 {
		t.Fatalf("persistence must run exactly once, got %d calls", writer.calls)
	}
	got := listener.all()
	want := []string{"started:g1", "complete:g1:v1"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !s.Terminal() {
		t.Fatal("complete must be terminal")
	}
}

func TestGuardsSurviveRerun(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	writer := &countingWriter{}
	client := &scriptedClient{snaps: []*domain.JobSnapshot{
		snap(tripID, domain.JobStatusComplete, "g1", true),
	}}
	s := newTestSyncer(t, client, writer, listener, tripID)
	ctx := context.Background()

	if err := s.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	// Re-subscription after the job finished must not replay transitions.
	if err := s.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if writer.calls != 1 {
		t.Fatalf("re-run must not re-persist, got %d calls", writer.calls)
	}
	got := listener.all()
	if len(got) != 2 {
		t.Fatalf("re-run must not replay transitions, got %v", got)
	}
}

func TestGenerationSequence(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	writer := &countingWriter{}
	s := newTestSyncer(t, nil, writer, listener, tripID)
	ctx := context.Background()

	// g1 draft, g1 complete, then a regeneration lands on the same job slot.
	s.handle(ctx, snap(tripID, domain.JobStatusDraft, "g1", true))
	s.handle(ctx, snap(tripID, domain.JobStatusComplete, "g1", true))

	// The slot is re-tracked for the regeneration.
	s.Reactivate()

	s.handle(ctx, snap(tripID, domain.JobStatusDraft, "g2", true))

	got := listener.all()
	want := []string{"started:g1", "draft:g1", "complete:g1:v1", "started:g2", "draft:g2"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestSnapshotForOtherTripIgnored(t *testing.T) {
	tripID := uuid.New()
	otherTrip := uuid.New()
	listener := &recordingListener{}
	s := newTestSyncer(t, nil, nil, listener, tripID)

	s.handle(context.Background(), snap(otherTrip, domain.JobStatusComplete, "g1", true))

	if got := listener.all(); len(got) != 0 {
		t.Fatalf("snapshot for another trip must be ignored, got %v", got)
	}
	if s.Terminal() {
		t.Fatal("foreign snapshot must not terminate the syncer")
	}
}

func TestErrorStatusIsTerminal(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	s := newTestSyncer(t, nil, nil, listener, tripID)

	failed := snap(tripID, domain.JobStatusError, "g1", false)
	failed.Error = "planner exploded"
	s.handle(context.Background(), failed)

	got := listener.all()
	if len(got) != 2 || got[1] != "failed:planner exploded" {
		t.Fatalf("expected started then failed, got %v", got)
	}
	if !s.Terminal() {
		t.Fatal("error status must be terminal")
	}
}

func TestPollErrorDoesNotStopLoop(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	client := &scriptedClient{
		snaps: []*domain.JobSnapshot{
			nil,
			snap(tripID, domain.JobStatusComplete, "g1", false),
		},
		errs: []error{errors.New("network down"), nil},
	}
	s := newTestSyncer(t, client, nil, listener, tripID)
	ctx := context.Background()

	s.poll(ctx)
	if s.Terminal() {
		t.Fatal("a poll error must not terminate the syncer")
	}
	s.poll(ctx)
	if !s.Terminal() {
		t.Fatal("the following successful poll must still complete the job")
	}
	listener.mu.Lock()
	errCount := len(listener.pollErrs)
	listener.mu.Unlock()
	if errCount != 1 {
		t.Fatalf("poll error must be surfaced, got %d", errCount)
	}
}

func TestRunningSnapshotWithoutPlanEmitsNothing(t *testing.T) {
	tripID := uuid.New()
	listener := &recordingListener{}
	s := newTestSyncer(t, nil, nil, listener, tripID)

	s.handle(context.Background(), snap(tripID, domain.JobStatusRunning, "g1", false))

	got := listener.all()
	if len(got) != 1 || got[0] != "started:g1" {
		t.Fatalf("running without plan emits only started, got %v", got)
	}
}
