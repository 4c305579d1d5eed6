package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/store"
)

// respondStoreError maps store errors onto HTTP responses with stable codes.
func respondStoreError(c *gin.Context, err error) {
	if ve, ok := store.AsValidation(err); ok {
		status := http.StatusBadRequest
		if ve.Code == store.CodeSessionNotFound {
			status = http.StatusNotFound
		}
		body := gin.H{"code": ve.Code, "error": ve.Message}
		if len(ve.Reasons) > 0 {
			body["reasons"] = ve.Reasons
		}
		c.JSON(status, body)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  store.CodeSessionNotFound,
			"error": "session not found",
		})
		return
	}
	if errors.Is(err, store.ErrTerminalConflict) {
		c.JSON(http.StatusConflict, gin.H{
			"code":  "TERMINAL_CONFLICT",
			"error": err.Error(),
		})
		return
	}
	slog.Error("Request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":  "INTERNAL",
		"error": "internal error",
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "error": message})
}
