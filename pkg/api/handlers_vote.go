package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
	"github.com/courtlive/courtd/pkg/store"
	"github.com/courtlive/courtd/pkg/voteguard"
)

// Spam rejection codes surfaced on the vote route.
const (
	codeVoteDuplicate   = "VOTE_DUPLICATE"
	codeVoteRateLimited = "VOTE_RATE_LIMITED"
)

// CastVote handles POST /api/court/sessions/{id}/vote. The spam guard runs
// before the store so rejected attempts never touch session state.
func (s *Server) CastVote(c *gin.Context) {
	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	sessionID := c.Param("id")
	clientID := c.ClientIP()

	if s.guard != nil {
		decision := s.guard.Check(sessionID, clientID, req.Type, req.Choice)
		if !decision.Allowed {
			code := codeVoteRateLimited
			if decision.Reason == voteguard.ReasonDuplicateVote {
				code = codeVoteDuplicate
			}
			if err := s.store.EmitEvent(c.Request.Context(), sessionID,
				events.TypeVoteSpamBlocked,
				events.VoteSpamBlockedPayload(req.Type, decision.Reason, decision.RetryAfterMs)); err != nil {
				slog.Warn("Failed to emit spam block event",
					"session_id", sessionID, "error", err)
			}
			c.JSON(http.StatusTooManyRequests, gin.H{
				"code":         code,
				"error":        "vote rejected: " + decision.Reason,
				"retryAfterMs": decision.RetryAfterMs,
			})
			return
		}
	}

	sess, err := s.store.CastVote(c.Request.Context(), store.CastVoteInput{
		SessionID: sessionID,
		VoteType:  models.VoteType(req.Type),
		Choice:    req.Choice,
	})
	if err != nil {
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"verdictVotes":  sess.VerdictVotes,
		"sentenceVotes": sess.SentenceVotes,
	})
}
