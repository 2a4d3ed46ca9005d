package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hourglass-hq/timesheet-approvals/internal/application/service"
	"github.com/hourglass-hq/timesheet-approvals/internal/domain/approval"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	approvalService   service.ApprovalService
	visibilityService service.VisibilityService
	logger            Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	approvalService service.ApprovalService,
	visibilityService service.VisibilityService,
	logger Logger,
) *Handlers {
	return &Handlers{
		approvalService:   approvalService,
		visibilityService: visibilityService,
		logger:            logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// DecisionRequest represents the body of a single decision
type DecisionRequest struct {
	ActorID  string `json:"actor_id" binding:"required"`
	Revision int    `json:"revision"`
	Action   string `json:"action" binding:"required"`
	Tier     string `json:"tier"`
	Reason   string `json:"reason"`
}

// BulkDecisionRequest represents the body of a batch decision
type BulkDecisionRequest struct {
	RecordIDs []string `json:"record_ids" binding:"required"`
	ActorID   string   `json:"actor_id" binding:"required"`
	Action    string   `json:"action" binding:"required"`
	Tier      string   `json:"tier"`
	Reason    string   `json:"reason"`
}

// writeError maps domain errors onto HTTP status codes
func (h *Handlers) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, approval.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, approval.ErrDenied):
		status = http.StatusForbidden
	case errors.Is(err, approval.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, approval.ErrConflict):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", "path", c.Request.URL.Path, "error", err)
		c.JSON(status, Response{Success: false, Error: "internal error"})
		return
	}
	c.JSON(status, Response{Success: false, Error: err.Error()})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitForReview handles POST /api/v1/submissions/:id/submit
func (h *Handlers) SubmitForReview(c *gin.Context) {
	ids, err := h.approvalService.SubmitForReview(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    gin.H{"record_ids": ids},
	})
}

// Resubmit handles POST /api/v1/submissions/:id/resubmit
func (h *Handlers) Resubmit(c *gin.Context) {
	ids, err := h.approvalService.Resubmit(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Data:    gin.H{"record_ids": ids},
	})
}

// Decide handles POST /api/v1/records/:id/decision
func (h *Handlers) Decide(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}

	rec, err := h.approvalService.Decide(c.Request.Context(), service.DecideParams{
		RecordID: c.Param("id"),
		ActorID:  req.ActorID,
		Revision: req.Revision,
		Action: approval.Action{
			Type:   approval.ActionType(req.Action),
			Tier:   approval.Tier(req.Tier),
			Reason: req.Reason,
		},
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// DecideBulk handles POST /api/v1/records/decisions
func (h *Handlers) DecideBulk(c *gin.Context) {
	var req BulkDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body"})
		return
	}
	if len(req.RecordIDs) == 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "record_ids must not be empty"})
		return
	}

	outcomes := h.approvalService.DecideBulk(c.Request.Context(), req.RecordIDs, req.ActorID, approval.Action{
		Type:   approval.ActionType(req.Action),
		Tier:   approval.Tier(req.Tier),
		Reason: req.Reason,
	})

	// The batch itself always succeeds; per-item failures ride inside.
	c.JSON(http.StatusMultiStatus, Response{Success: true, Data: outcomes})
}

// GetRecord handles GET /api/v1/records/:id
func (h *Handlers) GetRecord(c *gin.Context) {
	rec, err := h.approvalService.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: rec})
}

// ListEvents handles GET /api/v1/records/:id/events
func (h *Handlers) ListEvents(c *gin.Context) {
	events, err := h.approvalService.ListEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: events})
}

// VisibleRequest represents query parameters for the review queue
type VisibleRequest struct {
	ViewerID    string `form:"viewer_id" binding:"required"`
	ViewerRole  string `form:"viewer_role" binding:"required"`
	PeriodStart string `form:"period_start" binding:"required"`
	PeriodEnd   string `form:"period_end" binding:"required"`
}

// ListVisible handles GET /api/v1/review/visible
func (h *Handlers) ListVisible(c *gin.Context) {
	var req VisibleRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid query parameters"})
		return
	}

	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "period_start must be YYYY-MM-DD"})
		return
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "period_end must be YYYY-MM-DD"})
		return
	}

	groups, err := h.visibilityService.ListVisible(c.Request.Context(), req.ViewerID, approval.Role(req.ViewerRole), start, end)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: groups})
}
