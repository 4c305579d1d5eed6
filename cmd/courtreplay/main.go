// courtreplay streams a recorded session back out as NDJSON, preserving the
// original event pacing scaled by the replay speed. The events are rewritten
// under a fresh session id so a replay never collides with the recorded one.
package main

import (
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/courtlive/courtd/pkg/config"
	"github.com/courtlive/courtd/pkg/recorder"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	file := flag.String("file", cfg.ReplayFile, "Recording file to replay (NDJSON)")
	speed := flag.Float64("speed", cfg.ReplaySpeed, "Replay speed multiplier")
	instant := flag.Bool("instant", false, "Skip inter-event delays")
	flag.Parse()

	if *file == "" {
		slog.Error("No recording file given; set -file or REPLAY_FILE")
		os.Exit(1)
	}

	frames, err := recorder.LoadReplayRecording(*file, *speed)
	if err != nil {
		slog.Error("Failed to load recording", "file", *file, "error", err)
		os.Exit(1)
	}
	if len(frames) == 0 {
		slog.Error("Recording contains no events", "file", *file)
		os.Exit(1)
	}

	sessionID := uuid.New().String()
	slog.Info("Replaying recording",
		"file", *file,
		"events", len(frames),
		"speed", *speed,
		"session_id", sessionID)

	enc := json.NewEncoder(os.Stdout)
	elapsed := int64(0)
	for _, frame := range frames {
		if !*instant {
			if wait := frame.DelayMs - elapsed; wait > 0 {
				time.Sleep(time.Duration(wait) * time.Millisecond)
			}
		}
		elapsed = frame.DelayMs

		evt := recorder.RewriteReplayEventForSession(frame.Event, sessionID)
		if err := enc.Encode(evt); err != nil {
			slog.Error("Failed to write event", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Replay complete", "events", len(frames))
}
