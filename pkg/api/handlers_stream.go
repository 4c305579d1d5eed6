package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
)

// streamBuffer bounds the per-client event backlog. A client that cannot
// keep up loses events rather than stalling the bus drain goroutine.
const streamBuffer = 256

// StreamSession handles GET /api/court/sessions/{id}/stream: an SSE stream
// opening with a full session snapshot, followed by live events.
func (s *Server) StreamSession(c *gin.Context) {
	sessionID := c.Param("id")
	sess, err := s.store.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		respondStoreError(c, err)
		return
	}

	w := c.Writer
	flusher, ok := w.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":  "INTERNAL",
			"error": "streaming unsupported",
		})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	// Subscribe before emitting the snapshot so no event between the read
	// and the subscription is lost to this client. Events raced in between
	// may arrive after the snapshot that already reflects them; the
	// snapshot-first contract still holds.
	ch := make(chan models.Event, streamBuffer)
	unsub := s.store.Subscribe(sessionID, func(evt models.Event) {
		select {
		case ch <- evt:
		default:
			slog.Warn("Dropping event for slow SSE client",
				"session_id", sessionID, "event_type", evt.Type)
		}
	})
	defer unsub()

	writeSSE(w, "snapshot", map[string]any{"session": sess})
	flusher.Flush()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ch:
			writeSSE(w, evt.Type, evt)
			flusher.Flush()
			if events.IsTerminal(evt.Type) {
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, eventType string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Failed to marshal SSE frame", "event_type", eventType, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, raw)
}
