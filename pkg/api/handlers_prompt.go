package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/promptbank"
)

// defaultGenreDistance keeps the last three genres out of rotation.
const defaultGenreDistance = 3

// SuggestPrompt handles GET /api/court/prompts/next. Each suggestion is
// appended to the gateway's genre history so repeated calls rotate genres.
func (s *Server) SuggestPrompt(c *gin.Context) {
	if s.bank == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":  "NO_PROMPT_BANK",
			"error": "no prompt bank configured",
		})
		return
	}

	var genres []string
	if raw := c.Query("genres"); raw != "" {
		for _, g := range strings.Split(raw, ",") {
			if g = strings.TrimSpace(g); g != "" {
				genres = append(genres, g)
			}
		}
	}
	minDistance := defaultGenreDistance
	if raw := c.Query("minDistance"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondBadRequest(c, "invalid minDistance: "+raw)
			return
		}
		minDistance = parsed
	}

	s.historyMu.Lock()
	entry, err := s.bank.SelectNextSafePrompt(s.genreHistory, genres, minDistance)
	if err == nil {
		s.genreHistory = append(s.genreHistory, entry.Genre)
	}
	s.historyMu.Unlock()

	if err != nil {
		if errors.Is(err, promptbank.ErrNoSafePrompts) {
			c.JSON(http.StatusNotFound, gin.H{
				"code":  "NO_SAFE_PROMPTS",
				"error": err.Error(),
			})
			return
		}
		respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": entry})
}
