package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/careloop/careline/internal/apperr"
)

// writeError is the one place the error taxonomy meets HTTP. Coded errors
// carry their stable reason to the client; anything unclassified is a
// persistence-layer (or similar) failure that gets logged in full and
// returned as an opaque 500 — internals never leak into responses.
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperr.CodeOf(err)

	var status int
	switch code {
	case apperr.CodeNotFound:
		status = http.StatusNotFound
	case apperr.CodeAccessDenied:
		status = http.StatusForbidden
	case apperr.CodeValidation:
		status = http.StatusBadRequest
	default:
		logger.Error("internal error", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
		"code":  apperr.ReasonOf(err),
	})
}
