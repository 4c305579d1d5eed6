// courtd serves the live courtroom runtime: the HTTP/SSE gateway, the
// session store, and the per-session orchestrator drivers.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/courtlive/courtd/pkg/api"
	"github.com/courtlive/courtd/pkg/config"
	"github.com/courtlive/courtd/pkg/database"
	"github.com/courtlive/courtd/pkg/llm"
	"github.com/courtlive/courtd/pkg/moderation"
	"github.com/courtlive/courtd/pkg/orchestrator"
	"github.com/courtlive/courtd/pkg/promptbank"
	"github.com/courtlive/courtd/pkg/recorder"
	"github.com/courtlive/courtd/pkg/store"
	"github.com/courtlive/courtd/pkg/tts"
	"github.com/courtlive/courtd/pkg/version"
	"github.com/courtlive/courtd/pkg/voteguard"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"error", err)
	}

	slog.Info("Starting courtd", "version", version.Full())

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Store backend: PostgreSQL when DATABASE_URL is set, in-memory
	// otherwise.
	moderator := moderation.New()
	var (
		st       store.Store
		dbClient *database.Client
	)
	if cfg.DatabaseURL != "" {
		dbConfig, err := database.LoadConfigFromEnv()
		if err != nil {
			slog.Error("Failed to load database config", "error", err)
			os.Exit(1)
		}
		dbClient, err = database.NewClient(ctx, dbConfig)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		st = store.NewPostgres(dbClient, moderator)
		slog.Info("Connected to PostgreSQL database")
	} else {
		st = store.NewMemory(moderator)
		slog.Info("Using in-memory store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("Error closing store", "error", err)
		}
	}()

	// 3. Generation and speech clients
	generator := llm.New(cfg.LLM)
	speaker, err := tts.NewSpeaker(cfg.TTSProvider)
	if err != nil {
		slog.Error("Failed to initialize TTS provider", "error", err)
		os.Exit(1)
	}

	// 4. Vote spam guard
	guard := voteguard.New(cfg.VoteGuard)
	guard.Start()

	// 5. Event recorder
	rec := recorder.NewManager(cfg.RecordingsDir, st)

	// 6. Session runtime
	runtime := orchestrator.NewRuntime(orchestrator.Deps{
		Store:     st,
		LLM:       generator,
		TTS:       speaker,
		Moderator: moderator,
		Config:    cfg.Orchestrator,
	})

	// 7. Sessions persisted as running were interrupted by the previous
	// process; fail them so clients see a terminal state instead of a stall.
	interrupted, err := st.RecoverInterruptedSessions(ctx)
	if err != nil {
		slog.Error("Failed to scan for interrupted sessions", "error", err)
		os.Exit(1)
	}
	for _, id := range interrupted {
		if err := st.FailSession(ctx, id, "interrupted by restart"); err != nil {
			slog.Error("Failed to fail interrupted session",
				"session_id", id, "error", err)
		}
	}
	if len(interrupted) > 0 {
		slog.Info("Failed interrupted sessions", "count", len(interrupted))
	}

	// 8. HTTP server (non-blocking)
	server := api.NewServer(st, guard, runtime, rec, dbClient)
	server.SetPromptBank(promptbank.New(moderator))
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: server.Router(cfg.TrustProxy),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("courtd started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown: drain HTTP first so no new sessions or votes
	// arrive, then stop the drivers, then the ancillary services.
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP server shutdown error", "error", err)
	}
	runtime.Stop()
	guard.Stop()
	rec.Dispose()

	// The deferred store Close also closes the database client.
	slog.Info("courtd shutdown complete")
}
