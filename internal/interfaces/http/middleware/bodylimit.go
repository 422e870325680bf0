package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/portal/backend/internal/interfaces/http/dto"
)

// BodyLimit caps request body size. Declared-too-large requests are rejected
// up front; chunked bodies are capped by a MaxBytesReader so a lying client
// cannot stream past the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponse(dto.ErrCodeBadRequest, "Request body exceeds maximum allowed size"))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
