package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/portal/backend/internal/domain/shared"
	"github.com/portal/backend/internal/domain/sync"
	"github.com/portal/backend/internal/interfaces/http/dto"
	"github.com/portal/backend/internal/interfaces/http/middleware"
)

// ImportLauncher starts import sessions for the requested types
type ImportLauncher interface {
	Launch(ctx context.Context, types []sync.ImportType, archiveName, correlationID string) ([]*sync.ImportSession, error)
}

// ImportHandler exposes the import trigger and session polling endpoints
type ImportHandler struct {
	BaseHandler
	launcher ImportLauncher
	sessions sync.SessionRepository
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(launcher ImportLauncher, sessions sync.SessionRepository) *ImportHandler {
	return &ImportHandler{
		launcher: launcher,
		sessions: sessions,
	}
}

// RegisterRoutes registers import routes
func (h *ImportHandler) RegisterRoutes(rg *gin.RouterGroup) {
	imports := rg.Group("/imports")
	{
		imports.POST("", h.Launch)
		imports.GET("/sessions/:id", h.GetSession)
	}
}

// Launch triggers one import session per requested type. The work itself
// runs on the worker pool; the response only confirms the sessions were
// created and queued. Lock contention maps to 409, a missing catalog
// dependency to 422.
func (h *ImportHandler) Launch(c *gin.Context) {
	var req dto.LaunchImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	types := make([]sync.ImportType, len(req.Types))
	for i, t := range req.Types {
		types[i] = sync.ImportType(t)
	}

	correlationID := c.GetString("correlation_id")
	sessions, err := h.launcher.Launch(c.Request.Context(), types, req.ArchiveName, correlationID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	resp := dto.LaunchImportResponse{Sessions: make([]dto.SessionResponse, len(sessions))}
	for i, s := range sessions {
		resp.Sessions[i] = dto.FromSession(s)
	}
	h.Accepted(c, resp)
}

// GetSession returns one import session by id, for progress polling
func (h *ImportHandler) GetSession(c *gin.Context) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid session ID")
		return
	}

	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid session ID")
		return
	}

	session, err := h.sessions.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			h.NotFound(c, "Import session not found")
			return
		}
		h.HandleDomainError(c, err)
		return
	}
	h.Success(c, dto.FromSession(session))
}
