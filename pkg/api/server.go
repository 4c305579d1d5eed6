// Package api is the HTTP/SSE gateway in front of the session runtime.
package api

import (
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/courtlive/courtd/pkg/database"
	"github.com/courtlive/courtd/pkg/orchestrator"
	"github.com/courtlive/courtd/pkg/promptbank"
	"github.com/courtlive/courtd/pkg/recorder"
	"github.com/courtlive/courtd/pkg/store"
	"github.com/courtlive/courtd/pkg/voteguard"
)

// Server holds the gateway's collaborators. Everything is injected; the
// package keeps no globals.
type Server struct {
	store    store.Store
	guard    *voteguard.Guard
	runtime  *orchestrator.Runtime
	recorder *recorder.Manager
	bank     *promptbank.Bank
	db       *database.Client // nil when running on the in-memory store

	historyMu    sync.Mutex
	genreHistory []string
}

// NewServer creates a gateway. db may be nil (in-memory mode); recorder and
// runtime may be nil in tests.
func NewServer(st store.Store, guard *voteguard.Guard, rt *orchestrator.Runtime, rec *recorder.Manager, db *database.Client) *Server {
	return &Server{
		store:    st,
		guard:    guard,
		runtime:  rt,
		recorder: rec,
		db:       db,
	}
}

// SetPromptBank attaches the case-prompt catalog backing the suggestion
// endpoint.
func (s *Server) SetPromptBank(bank *promptbank.Bank) {
	s.bank = bank
}

// Router builds the gin engine with every route registered.
func (s *Server) Router(trustProxy bool) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if trustProxy {
		if err := engine.SetTrustedProxies([]string{"0.0.0.0/0", "::/0"}); err != nil {
			slog.Error("Failed to configure trusted proxies", "error", err)
		}
	} else {
		_ = engine.SetTrustedProxies(nil)
	}

	engine.GET("/healthz", s.Health)
	engine.GET("/api/court/prompts/next", s.SuggestPrompt)

	sessions := engine.Group("/api/court/sessions")
	{
		sessions.POST("", s.CreateSession)
		sessions.GET("", s.ListSessions)
		sessions.GET("/:id", s.GetSession)
		sessions.POST("/:id/phase", s.SetPhase)
		sessions.POST("/:id/vote", s.CastVote)
		sessions.GET("/:id/stream", s.StreamSession)
	}
	return engine
}
