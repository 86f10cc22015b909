package services

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/data/aggregates"
	triprepo "github.com/tripweaver/tripweaver-backend/internal/data/repos/trip"
	"github.com/tripweaver/tripweaver-backend/internal/domain"
	domainagg "github.com/tripweaver/tripweaver-backend/internal/domain/aggregates"
	"github.com/tripweaver/tripweaver-backend/internal/plan"
	"github.com/tripweaver/tripweaver-backend/internal/platform/dbctx"
	"github.com/tripweaver/tripweaver-backend/internal/platform/logger"
)

// BookingSource supplies booking snapshots and experience host ids for the
// display conversion. Bookings are owned by a separate system; snapshots must
// come back newest-first per item.
type BookingSource interface {
	BookingsForItems(ctx context.Context, itemIDs []uuid.UUID) (map[uuid.UUID][]domain.BookingSnapshot, error)
	HostsForExperiences(ctx context.Context, experienceIDs []uuid.UUID) (map[uuid.UUID]uuid.UUID, error)
}

type noopBookingSource struct{}

// NewNoopBookingSource returns a source with no booking data. Items fall back
// to their persisted status.
func NewNoopBookingSource() BookingSource { return noopBookingSource{} }

func (noopBookingSource) BookingsForItems(context.Context, []uuid.UUID) (map[uuid.UUID][]domain.BookingSnapshot, error) {
	return map[uuid.UUID][]domain.BookingSnapshot{}, nil
}

func (noopBookingSource) HostsForExperiences(context.Context, []uuid.UUID) (map[uuid.UUID]uuid.UUID, error) {
	return map[uuid.UUID]uuid.UUID{}, nil
}

// StopOp is one named mutation against the trip's stop list.
type StopOp struct {
	Op          string   `json:"op"`
	Target      string   `json:"target,omitempty"`
	NewName     *string  `json:"newName,omitempty"`
	Description *string  `json:"description,omitempty"`
	Order       []string `json:"order,omitempty"`
	Name        string   `json:"name,omitempty"`
	Lat         float64  `json:"lat,omitempty"`
	Lng         float64  `json:"lng,omitempty"`
}

const (
	StopOpUpdate  = "update"
	StopOpRemove  = "remove"
	StopOpReorder = "reorder"
	StopOpAppend  = "append"
)

// RevisionSummary omits the payload; full payloads surface only through restore.
type RevisionSummary struct {
	ID                  uuid.UUID `json:"id"`
	Version             int       `json:"version"`
	Source              string    `json:"source"`
	Actor               string    `json:"actor,omitempty"`
	Reason              string    `json:"reason,omitempty"`
	JobID               string    `json:"jobId,omitempty"`
	GenerationID        string    `json:"generationId,omitempty"`
	RestoredFromVersion *int      `json:"restoredFromVersion,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

type RevisionList struct {
	TripID         uuid.UUID         `json:"tripId"`
	CurrentVersion int               `json:"currentVersion"`
	Revisions      []RevisionSummary `json:"revisions"`
}

type RestoreResult struct {
	RestoredVersion     int `json:"restoredVersion"`
	RestoredFromVersion int `json:"restoredFromVersion"`
}

// TripPlanService is the application-facing surface over the plan write
// aggregate: authorization-aware reads, revision history, restore, and the
// name-based stop mutation entry points.
type TripPlanService struct {
	log       *logger.Logger
	trips     triprepo.TripRepo
	revisions triprepo.TripRevisionRepo
	agg       *aggregates.TripPlanAggregate
	bookings  BookingSource
	events    PlanEventBus
}

func NewTripPlanService(
	baseLog *logger.Logger,
	trips triprepo.TripRepo,
	revisions triprepo.TripRevisionRepo,
	agg *aggregates.TripPlanAggregate,
	bookings BookingSource,
	events PlanEventBus,
) *TripPlanService {
	if bookings == nil {
		bookings = NewNoopBookingSource()
	}
	if events == nil {
		events = NewNoopPlanEventBus()
	}
	return &TripPlanService{
		log:       baseLog.With("service", "TripPlanService"),
		trips:     trips,
		revisions: revisions,
		agg:       agg,
		bookings:  bookings,
		events:    events,
	}
}

// SaveAsUser is the end-user write path. expectedVersion nil skips the
// optimistic check.
func (s *TripPlanService) SaveAsUser(ctx context.Context, tripID, userID uuid.UUID, payload plan.WritePayload, expectedVersion *int) (*aggregates.SaveResult, error) {
	res, err := s.agg.Save(ctx, aggregates.SaveCommand{
		TripID:          tripID,
		Mode:            aggregates.WriteModeUser,
		UserID:          userID,
		ExpectedVersion: expectedVersion,
		Payload:         payload,
		Source:          domain.RevisionSourceAPI,
		Actor:           "user",
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, tripID, userID, res.Version)
	return res, nil
}

// SaveInternal is the planner/system write path. expectedOwner, when set,
// must match the trip's actual owner.
func (s *TripPlanService) SaveInternal(ctx context.Context, tripID uuid.UUID, expectedOwner *uuid.UUID, payload plan.WritePayload, jobID, generationID, reason string) (*aggregates.SaveResult, error) {
	res, err := s.agg.Save(ctx, aggregates.SaveCommand{
		TripID:              tripID,
		Mode:                aggregates.WriteModeInternal,
		ExpectedOwnerUserID: expectedOwner,
		Payload:             payload,
		Source:              domain.RevisionSourcePlanner,
		Actor:               "planner",
		Reason:              reason,
		JobID:               jobID,
		GenerationID:        generationID,
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, tripID, uuid.Nil, res.Version)
	return res, nil
}

// AuthorizeRead checks trip existence and ownership without loading the tree.
func (s *TripPlanService) AuthorizeRead(ctx context.Context, tripID, userID uuid.UUID) error {
	const op = "trip_plan.authorize_read"
	t, err := s.trips.GetByID(dbctx.Context{Ctx: ctx}, tripID)
	if err != nil {
		return aggregates.MapError(op, err)
	}
	return aggregates.AuthorizeTripWrite(aggregates.WriteModeUser, t, userID, nil)
}

// GetDisplayPlan loads the persisted tree plus booking snapshots and converts
// to the display model.
func (s *TripPlanService) GetDisplayPlan(ctx context.Context, tripID, userID uuid.UUID) (*plan.DisplayPlan, *domain.Trip, error) {
	const op = "trip_plan.get_display"
	dbc := dbctx.Context{Ctx: ctx}

	t, err := s.trips.GetByID(dbc, tripID)
	if err != nil {
		return nil, nil, aggregates.MapError(op, err)
	}
	if err := aggregates.AuthorizeTripWrite(aggregates.WriteModeUser, t, userID, nil); err != nil {
		return nil, nil, err
	}

	tree, err := s.trips.LoadPlanTree(dbc, tripID)
	if err != nil {
		return nil, nil, aggregates.MapError(op, err)
	}

	itemIDs := make([]uuid.UUID, 0, len(tree.Items))
	expIDs := make([]uuid.UUID, 0)
	for _, it := range tree.Items {
		itemIDs = append(itemIDs, it.ID)
		if it.ExperienceID != nil {
			expIDs = append(expIDs, *it.ExperienceID)
		}
	}
	bookings, err := s.bookings.BookingsForItems(ctx, itemIDs)
	if err != nil {
		s.log.Warn("booking lookup failed, rendering without booking status", "trip_id", tripID, "error", err)
		bookings = map[uuid.UUID][]domain.BookingSnapshot{}
	}
	hosts, err := s.bookings.HostsForExperiences(ctx, expIDs)
	if err != nil {
		s.log.Warn("experience host lookup failed", "trip_id", tripID, "error", err)
		hosts = map[uuid.UUID]uuid.UUID{}
	}

	display := plan.ToDisplay(plan.DisplayInput{
		Stops:            tree.Stops,
		Days:             tree.Days,
		Items:            tree.Items,
		BookingsByItem:   bookings,
		HostByExperience: hosts,
	})
	return &display, t, nil
}

// ListRevisions returns the trip's revision history newest-first.
func (s *TripPlanService) ListRevisions(ctx context.Context, tripID, userID uuid.UUID) (*RevisionList, error) {
	const op = "trip_plan.list_revisions"
	dbc := dbctx.Context{Ctx: ctx}

	t, err := s.trips.GetByID(dbc, tripID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if err := aggregates.AuthorizeTripWrite(aggregates.WriteModeUser, t, userID, nil); err != nil {
		return nil, err
	}

	revs, err := s.revisions.ListByTrip(dbc, tripID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	out := &RevisionList{
		TripID:         tripID,
		CurrentVersion: t.CurrentVersion,
		Revisions:      make([]RevisionSummary, 0, len(revs)),
	}
	for _, r := range revs {
		out.Revisions = append(out.Revisions, RevisionSummary{
			ID:                  r.ID,
			Version:             r.Version,
			Source:              r.Source,
			Actor:               r.Actor,
			Reason:              r.Reason,
			JobID:               r.JobID,
			GenerationID:        r.GenerationID,
			RestoredFromVersion: r.RestoredFromVersion,
			CreatedAt:           r.CreatedAt,
		})
	}
	return out, nil
}

// RestoreRevision replays a stored payload as a new forward write. The stored
// payload is re-validated against the current write schema on the way in; it
// is never trusted blindly.
func (s *TripPlanService) RestoreRevision(ctx context.Context, tripID, userID, revisionID uuid.UUID, expectedVersion *int) (*RestoreResult, error) {
	const op = "trip_plan.restore"
	dbc := dbctx.Context{Ctx: ctx}

	rev, err := s.revisions.GetByID(dbc, revisionID)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if rev == nil || rev.TripID != tripID {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, "revision not found", nil)
	}

	var payload plan.WritePayload
	if err := json.Unmarshal(rev.Payload, &payload); err != nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "stored revision payload is unreadable", err)
	}

	from := rev.Version
	res, err := s.agg.Save(ctx, aggregates.SaveCommand{
		TripID:              tripID,
		Mode:                aggregates.WriteModeUser,
		UserID:              userID,
		ExpectedVersion:     expectedVersion,
		Payload:             payload,
		Source:              domain.RevisionSourceAPI,
		Actor:               "user",
		Reason:              "restore",
		RestoredFromVersion: &from,
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, tripID, userID, res.Version)
	return &RestoreResult{RestoredVersion: res.Version, RestoredFromVersion: from}, nil
}

// ApplyStopOp resolves the trip's current stops by name, applies one mutation
// and persists the result as a normal forward write. Days and items of
// surviving stops ride along; day indexes are renumbered densely in the new
// route order.
func (s *TripPlanService) ApplyStopOp(ctx context.Context, tripID, userID uuid.UUID, op StopOp, expectedVersion *int) (*aggregates.SaveResult, error) {
	const opName = "trip_plan.stop_op"
	dbc := dbctx.Context{Ctx: ctx}

	t, err := s.trips.GetByID(dbc, tripID)
	if err != nil {
		return nil, aggregates.MapError(opName, err)
	}
	if err := aggregates.AuthorizeTripWrite(aggregates.WriteModeUser, t, userID, nil); err != nil {
		return nil, err
	}

	tree, err := s.trips.LoadPlanTree(dbc, tripID)
	if err != nil {
		return nil, aggregates.MapError(opName, err)
	}

	stops := routeStops(tree)
	mutated, err := applyStopOp(stops, op)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, opName, "stop mutation rejected", err)
	}

	payload := rebuildPayload(t, tree, mutated)
	res, err := s.agg.Save(ctx, aggregates.SaveCommand{
		TripID:          tripID,
		Mode:            aggregates.WriteModeUser,
		UserID:          userID,
		ExpectedVersion: expectedVersion,
		Payload:         payload,
		Source:          domain.RevisionSourceAPI,
		Actor:           "user",
		Reason:          "stops." + op.Op,
	})
	if err != nil {
		return nil, err
	}
	s.publishUpdated(ctx, tripID, userID, res.Version)
	return res, nil
}

func applyStopOp(stops []plan.Stop, op StopOp) ([]plan.Stop, error) {
	switch op.Op {
	case StopOpUpdate:
		return plan.ApplyUpdateByName(stops, plan.UpdateRequest{
			TargetName:  op.Target,
			NewName:     op.NewName,
			Description: op.Description,
		})
	case StopOpRemove:
		return plan.ApplyRemovalByName(stops, op.Target)
	case StopOpReorder:
		return plan.ApplyReorderByNames(stops, op.Order)
	case StopOpAppend:
		return plan.ApplyAppend(stops, plan.AppendRequest{
			Name:        op.Name,
			Lat:         op.Lat,
			Lng:         op.Lng,
			Description: op.Description,
		}), nil
	default:
		return nil, &plan.NameResolutionError{Name: op.Op, Outcome: plan.ResolveUnmatched}
	}
}

// routeStops projects the persisted stops into the mutation engine's shape.
func routeStops(tree *triprepo.PlanTree) []plan.Stop {
	out := make([]plan.Stop, 0, len(tree.Stops))
	for _, st := range tree.Stops {
		s := plan.Stop{
			ID:          st.ID,
			Name:        st.Name,
			Description: st.Description,
			Order:       st.Order,
		}
		if locs := plan.ParseLocations(st.Locations); len(locs) > 0 {
			s.Lat = locs[0].Lat
			s.Lng = locs[0].Lng
		}
		out = append(out, s)
	}
	return out
}

// rebuildPayload folds the mutated stop list back into a full write payload.
// A mutated stop that still exists keeps its persisted days and items; an
// appended stop starts empty.
func rebuildPayload(t *domain.Trip, tree *triprepo.PlanTree, mutated []plan.Stop) plan.WritePayload {
	stopsByID := make(map[uuid.UUID]domain.TripStop, len(tree.Stops))
	for _, st := range tree.Stops {
		stopsByID[st.ID] = st
	}
	daysByStop := make(map[uuid.UUID][]domain.TripDay, len(tree.Days))
	for _, d := range tree.Days {
		daysByStop[d.StopID] = append(daysByStop[d.StopID], d)
	}
	itemsByDay := make(map[uuid.UUID][]domain.TripItem, len(tree.Items))
	for _, it := range tree.Items {
		itemsByDay[it.DayID] = append(itemsByDay[it.DayID], it)
	}

	payload := plan.WritePayload{Stops: make([]plan.WriteStop, 0, len(mutated))}
	nextDayIndex := 1
	for _, ms := range mutated {
		ws := plan.WriteStop{
			Name:        ms.Name,
			Description: ms.Description,
		}
		orig, existed := stopsByID[ms.ID]
		if existed {
			ws.Kind = orig.Kind
			ws.Locations = plan.ParseLocations(orig.Locations)
		} else {
			ws.Kind = string(domain.StopCity)
			if ms.Lat != 0 || ms.Lng != 0 {
				ws.Locations = []domain.PlanLocation{{Name: ms.Name, Lat: ms.Lat, Lng: ms.Lng}}
			}
		}

		days := append([]domain.TripDay(nil), daysByStop[ms.ID]...)
		sort.SliceStable(days, func(i, j int) bool { return days[i].DayIndex < days[j].DayIndex })
		for _, d := range days {
			wd := plan.WriteDay{
				DayIndex: nextDayIndex,
				Title:    d.Title,
			}
			nextDayIndex++
			if d.Date != nil {
				formatted := d.Date.Format("2006-01-02")
				wd.Date = &formatted
			}
			for _, it := range itemsByDay[d.ID] {
				wd.Items = append(wd.Items, plan.WriteItem{
					Type:         it.Type,
					Title:        it.Title,
					Description:  it.Description,
					StartTime:    it.StartTime,
					EndTime:      it.EndTime,
					LocationName: it.LocationName,
					PlaceID:      plan.NormalizePlaceID(it.ExternalPlaceID),
					Lat:          it.Lat,
					Lng:          it.Lng,
					ExperienceID: it.ExperienceID,
					HostID:       it.HostID,
					Status:       it.Status,
				})
			}
			ws.Days = append(ws.Days, wd)
		}
		payload.Stops = append(payload.Stops, ws)
	}
	return payload
}

// WritePlannerPlan persists a completed planner plan through the internal
// write path. It is the job sync loop's persistence hook.
func (s *TripPlanService) WritePlannerPlan(ctx context.Context, tripID uuid.UUID, p *domain.Plan, jobID, generationID string) (int, error) {
	payload := plan.FromPlan(p)
	res, err := s.SaveInternal(ctx, tripID, nil, payload, jobID, generationID, "generation complete")
	if err != nil {
		return 0, err
	}
	return res.Version, nil
}

func (s *TripPlanService) publishUpdated(ctx context.Context, tripID, userID uuid.UUID, version int) {
	ev := PlanEvent{
		Type:    PlanEventUpdated,
		TripID:  tripID,
		UserID:  userID,
		Version: version,
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("plan event publish failed", "trip_id", tripID, "version", version, "error", err)
	}
}
