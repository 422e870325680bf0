package handler

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/portal/backend/internal/interfaces/http/dto"
)

const (
	// Maximum size for uploaded exchange archives (200MB)
	maxArchiveSize = 200 * 1024 * 1024
)

// ExchangeHandler receives 1C exchange archives. Upload only stores the
// archive under its own name; unpacking happens later inside the import
// worker.
type ExchangeHandler struct {
	BaseHandler
	uploadDir string
}

// NewExchangeHandler creates a new ExchangeHandler
func NewExchangeHandler(uploadDir string) *ExchangeHandler {
	return &ExchangeHandler{uploadDir: uploadDir}
}

// RegisterRoutes registers exchange routes
func (h *ExchangeHandler) RegisterRoutes(rg *gin.RouterGroup) {
	exchange := rg.Group("/exchange")
	{
		exchange.POST("/archives", h.Upload)
	}
}

// Upload stores an exchange archive in the upload directory
func (h *ExchangeHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "file is required")
		return
	}

	if file.Size > maxArchiveSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeValidation, "archive exceeds maximum size of 200MB")
		return
	}

	name := filepath.Base(file.Filename)
	if name == "." || name == ".." || !strings.HasSuffix(strings.ToLower(name), ".zip") {
		h.BadRequest(c, "file must be a .zip archive")
		return
	}

	if err := c.SaveUploadedFile(file, filepath.Join(h.uploadDir, name)); err != nil {
		h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, "failed to store archive")
		return
	}

	h.Created(c, dto.UploadResponse{ArchiveName: name, Size: file.Size})
}
