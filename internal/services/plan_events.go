package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

// Plan event types published on the bus.
const (
	PlanEventUpdated    = "plan.updated"
	PlanEventSyncStatus = "plan.sync_status"
)

// PlanEvent is the cross-instance notification for plan changes. Other API
// instances forward these to their connected clients.
type PlanEvent struct {
	Type         string    `json:"type"`
	TripID       uuid.UUID `json:"tripId"`
	UserID       uuid.UUID `json:"userId,omitempty"`
	Version      int       `json:"version,omitempty"`
	JobID        string    `json:"jobId,omitempty"`
	GenerationID string    `json:"generationId,omitempty"`
	Status       string    `json:"status,omitempty"`
	At           time.Time `json:"at"`
}

type PlanEventBus interface {
	Publish(ctx context.Context, ev PlanEvent) error
	StartForwarder(ctx context.Context, onEvent func(ev PlanEvent)) error
	Close() error
}

type redisPlanEventBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

// NewPlanEventBus connects to redis using REDIS_ADDR. REDIS_PLAN_CHANNEL
// overrides the pub/sub channel name.
func NewPlanEventBus(log *logger.Logger) (PlanEventBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("REDIS_PLAN_CHANNEL"))
	if ch == "" {
		ch = "plan_events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &redisPlanEventBus{
		log:     log.With("service", "PlanEventBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *redisPlanEventBus) Publish(ctx context.Context, ev PlanEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("plan event bus not initialized")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *redisPlanEventBus) StartForwarder(ctx context.Context, onEvent func(ev PlanEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("plan event bus not initialized")
	}
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var ev PlanEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad plan event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()

	return nil
}

func (b *redisPlanEventBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

type noopPlanEventBus struct{}

// NewNoopPlanEventBus is the fallback when redis is not configured.
func NewNoopPlanEventBus() PlanEventBus { return noopPlanEventBus{} }

func (noopPlanEventBus) Publish(context.Context, PlanEvent) error              { return nil }
func (noopPlanEventBus) StartForwarder(context.Context, func(PlanEvent)) error { return nil }
func (noopPlanEventBus) Close() error                                          { return nil }
