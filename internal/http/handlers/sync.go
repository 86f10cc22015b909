package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tripweaver/tripweaver-backend/internal/http/response"
	"github.com/tripweaver/tripweaver-backend/internal/jobsync"
	"github.com/tripweaver/tripweaver-backend/internal/services"
)

// SyncHandler exposes generation job tracking. The polling loops run on the
// background context so they outlive the request that started them.
type SyncHandler struct {
	plans   *services.TripPlanService
	manager *jobsync.Manager
	baseCtx context.Context
}

func NewSyncHandler(plans *services.TripPlanService, manager *jobsync.Manager, baseCtx context.Context) *SyncHandler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &SyncHandler{plans: plans, manager: manager, baseCtx: baseCtx}
}

type trackRequest struct {
	JobID string `json:"jobId"`
}

// POST /api/trips/:id/sync
func (h *SyncHandler) Track(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	req.JobID = strings.TrimSpace(req.JobID)
	if req.JobID == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_job_id", nil)
		return
	}

	// Ownership check before spinning up a tracker for the trip.
	if err := h.plans.AuthorizeRead(c.Request.Context(), tripID, userID); err != nil {
		response.RespondAggregateError(c, err)
		return
	}

	state := h.manager.Track(h.baseCtx, tripID, req.JobID)
	response.RespondOK(c, gin.H{"sync": state})
}

// GET /api/trips/:id/sync
func (h *SyncHandler) State(c *gin.Context) {
	tripID, userID, ok := tripAndUser(c)
	if !ok {
		return
	}
	if err := h.plans.AuthorizeRead(c.Request.Context(), tripID, userID); err != nil {
		response.RespondAggregateError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"syncs": h.manager.StatesForTrip(tripID)})
}
