package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver-backend/internal/http/response"
	"github.com/tripweaver/tripweaver-backend/internal/plan"
	"github.com/tripweaver/tripweaver-backend/internal/platform/ctxutil"
	"github.com/tripweaver/tripweaver-backend/internal/services"
)

type TripPlanHandler struct {
	plans *services.TripPlanService
}

func NewTripPlanHandler(plans *services.TripPlanService) *TripPlanHandler {
	return &TripPlanHandler{plans: plans}
}

type savePlanRequest struct {
	Title           *string                `json:"title,omitempty"`
	Preferences     map[string]interface{} `json:"preferences,omitempty"`
	Stops           []plan.WriteStop       `json:"stops"`
	ExpectedVersion *int                   `json:"expectedVersion,omitempty"`
}

// PUT /api/trips/:id/plan
func (h *TripPlanHandler) SavePlan(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	var req savePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	payload := plan.WritePayload{
		Title:       req.Title,
		Preferences: req.Preferences,
		Stops:       req.Stops,
	}
	res, err := h.plans.SaveAsUser(c.Request.Context(), tripID, userID, payload, req.ExpectedVersion)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"version": res.Version,
		"dayIds":  res.DayIDsByIndex,
	})
}

// GET /api/trips/:id/plan
func (h *TripPlanHandler) GetPlan(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	display, trip, err := h.plans.GetDisplayPlan(c.Request.Context(), tripID, userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"tripId":         trip.ID,
		"title":          trip.Title,
		"status":         trip.Status,
		"currentVersion": trip.CurrentVersion,
		"plan":           display,
	})
}

type stopOpRequest struct {
	services.StopOp
	ExpectedVersion *int `json:"expectedVersion,omitempty"`
}

// POST /api/trips/:id/stops/ops
func (h *TripPlanHandler) ApplyStopOp(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	var req stopOpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.plans.ApplyStopOp(c.Request.Context(), tripID, userID, req.StopOp, req.ExpectedVersion)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{
		"version": res.Version,
		"dayIds":  res.DayIDsByIndex,
	})
}

// GET /api/trips/:id/revisions
func (h *TripPlanHandler) ListRevisions(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	list, err := h.plans.ListRevisions(c.Request.Context(), tripID, userID)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, list)
}

type restoreRequest struct {
	ExpectedVersion *int `json:"expectedVersion,omitempty"`
}

// POST /api/trips/:id/revisions/:revisionId/restore
func (h *TripPlanHandler) RestoreRevision(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	revisionID, err := uuid.Parse(c.Param("revisionId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_revision_id", err)
		return
	}
	var req restoreRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	res, err := h.plans.RestoreRevision(c.Request.Context(), tripID, userID, revisionID, req.ExpectedVersion)
	if err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, res)
}

// tripAndUser pulls the trip id from the path and the caller from the request
// context. A false return means a response has already been written.
func tripAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	tripID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_trip_id", err)
		return uuid.Nil, uuid.Nil, false
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return uuid.Nil, uuid.Nil, false
	}
	return tripID, rd.UserID, true
}
