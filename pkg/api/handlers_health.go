package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/database"
	"github.com/courtlive/courtd/pkg/version"
)

// Health handles GET /healthz. In-memory deployments report a plain ok; with
// a database attached the response carries pool statistics.
func (s *Server) Health(c *gin.Context) {
	body := gin.H{
		"status":  "healthy",
		"service": version.AppName,
		"version": version.Full(),
	}
	if s.runtime != nil {
		body["active_sessions"] = s.runtime.ActiveCount()
	}

	if s.db == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db.DB())
	body["database"] = dbHealth
	if err != nil {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
