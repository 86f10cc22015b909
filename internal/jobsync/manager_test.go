package jobsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/domain"
	"github.com/tripweaver/tripweaver-backend/internal/services"
)

type recordingBus struct {
	mu     sync.Mutex
	events []services.PlanEvent
}

func (b *recordingBus) Publish(_ context.Context, ev services.PlanEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) StartForwarder(context.Context, func(services.PlanEvent)) error { return nil }
func (b *recordingBus) Close() error                                                  { return nil }

func (b *recordingBus) statuses() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, ev := range b.events {
		out = append(out, ev.Status+":"+ev.GenerationID)
	}
	return out
}

func (b *recordingBus) waitFor(t *testing.T, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, s := range b.statuses() {
			if s == want {
				return
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %q, got %v", want, b.statuses())
}

func countStatus(statuses []string, want string) int {
	n := 0
	for _, s := range statuses {
		if s == want {
			n++
		}
	}
	return n
}

func waitTerminal(t *testing.T, m *Manager, tripID uuid.UUID, jobID string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if st, ok := m.State(tripID, jobID); ok && st.Terminal {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for terminal state")
}

func TestRetrackFinishedJobDoesNotReapply(t *testing.T) {
	tripID := uuid.New()
	writer := &countingWriter{}
	bus := &recordingBus{}
	client := &scriptedClient{snaps: []*domain.JobSnapshot{
		snap(tripID, domain.JobStatusComplete, "g1", true),
	}}
	m := NewManager(testLogger(t), client, writer, bus, nil, Config{PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Track(ctx, tripID, "job-1")
	bus.waitFor(t, "complete:g1")

	// A page reload re-subscribes to the already-finished slot.
	st := m.Track(ctx, tripID, "job-1")
	if st.JobID != "job-1" {
		t.Fatalf("re-track must return the tracked slot, got %+v", st)
	}
	waitTerminal(t, m, tripID, "job-1")
	time.Sleep(50 * time.Millisecond)

	writer.mu.Lock()
	calls := writer.calls
	writer.mu.Unlock()
	if calls != 1 {
		t.Fatalf("re-track of a finished job must not re-persist, got %d writes", calls)
	}
	got := bus.statuses()
	if countStatus(got, "complete:g1") != 1 {
		t.Fatalf("complete must broadcast once per generation, got %v", got)
	}
	if countStatus(got, "started:g1") != 1 {
		t.Fatalf("started must broadcast once per generation, got %v", got)
	}
}

func TestRetrackObservesRegeneration(t *testing.T) {
	tripID := uuid.New()
	writer := &countingWriter{}
	bus := &recordingBus{}
	client := &scriptedClient{snaps: []*domain.JobSnapshot{
		snap(tripID, domain.JobStatusDraft, "g1", true),
		snap(tripID, domain.JobStatusComplete, "g1", true),
		snap(tripID, domain.JobStatusDraft, "g2", true),
		snap(tripID, domain.JobStatusComplete, "g2", true),
	}}
	m := NewManager(testLogger(t), client, writer, bus, nil, Config{PollInterval: 10 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Track(ctx, tripID, "job-1")
	bus.waitFor(t, "complete:g1")

	// The planner starts a regeneration under the same job id; the client
	// re-tracks the slot.
	m.Track(ctx, tripID, "job-1")
	bus.waitFor(t, "complete:g2")

	want := []string{"started:g1", "draft:g1", "complete:g1", "started:g2", "draft:g2", "complete:g2"}
	got := bus.statuses()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}

	writer.mu.Lock()
	calls := writer.calls
	writer.mu.Unlock()
	if calls != 2 {
		t.Fatalf("each generation must persist exactly once, got %d writes", calls)
	}
}
