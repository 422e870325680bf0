package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/portal/backend/internal/domain/sync"
	"github.com/portal/backend/internal/interfaces/http/dto"
)

// SyncHandler exposes the sync audit trail: correlation chains, aggregated
// summaries and per-customer conflict history
type SyncHandler struct {
	BaseHandler
	logs      sync.LogRepository
	conflicts sync.ConflictRepository
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(logs sync.LogRepository, conflicts sync.ConflictRepository) *SyncHandler {
	return &SyncHandler{logs: logs, conflicts: conflicts}
}

// RegisterRoutes registers sync audit routes
func (h *SyncHandler) RegisterRoutes(rg *gin.RouterGroup) {
	syncGroup := rg.Group("/sync")
	{
		syncGroup.GET("/logs/:correlation_id", h.GetByCorrelation)
		syncGroup.GET("/summary", h.GetSummary)
	}
	rg.GET("/customers/:id/conflicts", h.GetConflicts)
}

// GetByCorrelation returns the full log chain for one correlation id,
// oldest entry first
func (h *SyncHandler) GetByCorrelation(c *gin.Context) {
	correlationID := c.Param("correlation_id")
	if correlationID == "" {
		h.BadRequest(c, "correlation_id is required")
		return
	}

	entries, err := h.logs.FindByCorrelation(c.Request.Context(), correlationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := make([]dto.SyncLogResponse, len(entries))
	for i, e := range entries {
		resp[i] = dto.FromSyncLog(e)
	}
	h.Success(c, resp)
}

// summaryRequest bounds the summary reporting window
type summaryRequest struct {
	From time.Time `form:"from" time_format:"2006-01-02"`
	To   time.Time `form:"to" time_format:"2006-01-02"`
}

// GetSummary returns sync-log counts grouped by operation and status.
// Defaults to the last 24 hours when no window is given.
func (h *SyncHandler) GetSummary(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "invalid reporting window")
		return
	}

	period := sync.SummaryPeriod{From: req.From, To: req.To}
	if period.To.IsZero() {
		period.To = time.Now()
	}
	if period.From.IsZero() {
		period.From = period.To.Add(-24 * time.Hour)
	}
	if period.From.After(period.To) {
		h.BadRequest(c, "from must not be after to")
		return
	}

	rows, err := h.logs.Summarize(c.Request.Context(), period)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := dto.SummaryResponse{
		From: period.From,
		To:   period.To,
		Rows: make([]dto.SummaryRowResponse, len(rows)),
	}
	for i, r := range rows {
		resp.Rows[i] = dto.SummaryRowResponse{
			OperationType: string(r.OperationType),
			Status:        string(r.Status),
			Count:         r.Count,
		}
	}
	h.Success(c, resp)
}

// GetConflicts returns the conflict history for one customer, newest first
func (h *SyncHandler) GetConflicts(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	customerID, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid customer ID")
		return
	}

	conflicts, err := h.conflicts.FindByCustomer(c.Request.Context(), customerID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := make([]dto.ConflictResponse, len(conflicts))
	for i, cf := range conflicts {
		resp[i] = dto.FromConflict(cf)
	}
	h.Success(c, resp)
}
