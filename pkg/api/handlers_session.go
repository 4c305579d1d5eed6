package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/store"
)

// CreateSession handles POST /api/court/sessions.
func (s *Server) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	metadata := models.Metadata{
		VerdictVoteWindowMs:  req.VerdictVoteWindowMs,
		SentenceVoteWindowMs: req.SentenceVoteWindowMs,
		SentenceOptions:      req.SentenceOptions,
	}
	if metadata.VerdictVoteWindowMs <= 0 {
		metadata.VerdictVoteWindowMs = defaultVerdictWindowMs
	}
	if metadata.SentenceVoteWindowMs <= 0 {
		metadata.SentenceVoteWindowMs = defaultSentenceWindowMs
	}
	if len(metadata.SentenceOptions) == 0 {
		metadata.SentenceOptions = append([]string(nil), defaultSentenceOptions...)
	}

	roles := defaultRoles()
	if req.Roles != nil {
		roles = req.Roles.Clone()
		if err := validateRoles(roles); err != nil {
			respondBadRequest(c, err.Error())
			return
		}
	}

	sess, err := s.store.CreateSession(c.Request.Context(), store.CreateSessionInput{
		Topic:    req.Topic,
		CaseType: models.CaseType(req.CaseType),
		Roles:    roles,
		Metadata: metadata,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}

	if s.recorder != nil {
		// The session_created event predates the subscription, so seed the
		// recording with an equivalent frame.
		seed, seedErr := events.New(sess.ID, events.TypeSessionCreated,
			events.SessionCreatedPayload(sess))
		if seedErr == nil {
			seedErr = s.recorder.Start(sess.ID, []models.Event{seed})
		}
		if seedErr != nil {
			slog.Warn("Failed to start session recording",
				"session_id", sess.ID, "error", seedErr)
		}
	}

	if req.Autostart && s.runtime != nil {
		if err := s.runtime.Launch(c.Request.Context(), sess.ID); err != nil {
			slog.Error("Failed to launch session driver",
				"session_id", sess.ID, "error", err)
		}
	}

	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

// GetSession handles GET /api/court/sessions/{id}.
func (s *Server) GetSession(c *gin.Context) {
	sess, err := s.store.GetSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

// ListSessions handles GET /api/court/sessions.
func (s *Server) ListSessions(c *gin.Context) {
	sessions, err := s.store.ListSessions(c.Request.Context())
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

// SetPhase handles POST /api/court/sessions/{id}/phase.
func (s *Server) SetPhase(c *gin.Context) {
	var req SetPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}
	sess, err := s.store.SetPhase(c.Request.Context(), c.Param("id"),
		models.Phase(req.Phase), req.PhaseDurationMs)
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}
