package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/courtlive/courtd/pkg/models"
)

// Frame is one replay step: the event plus its cumulative delay from stream
// start, already divided by the replay speed.
type Frame struct {
	Event   models.Event
	DelayMs int64
}

// LoadReplayRecording parses an NDJSON recording into replay frames.
// Malformed lines are skipped with a warning. speed values that are zero,
// negative, or non-finite are clamped to 1.
func LoadReplayRecording(path string, speed float64) ([]Frame, error) {
	if speed <= 0 || math.IsNaN(speed) || math.IsInf(speed, 0) {
		speed = 1
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open recording: %w", err)
	}
	defer file.Close()

	var frames []Frame
	var elapsedMs int64
	lineNo := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var evt models.Event
		if err := json.Unmarshal(line, &evt); err != nil {
			slog.Warn("Skipping malformed recording line",
				"path", path, "line", lineNo, "error", err)
			continue
		}
		if len(frames) > 0 {
			prev := frames[len(frames)-1].Event.At
			gap := evt.At.Sub(prev).Milliseconds()
			if gap > 0 {
				elapsedMs += int64(float64(gap) / speed)
			}
		}
		frames = append(frames, Frame{Event: evt, DelayMs: elapsedMs})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	return frames, nil
}

// RewriteReplayEventForSession returns a copy of the event re-keyed to a new
// session id, substituting the top-level session id and any nested
// sessionId / turn.sessionId payload fields. The source event is untouched.
func RewriteReplayEventForSession(evt models.Event, newSessionID string) models.Event {
	out := evt.Clone()
	out.SessionID = newSessionID
	if out.Payload == nil {
		return out
	}
	if _, ok := out.Payload["sessionId"]; ok {
		out.Payload["sessionId"] = newSessionID
	}
	// Payload clones are shallow; copy the nested turn map before touching it.
	if turn, ok := out.Payload["turn"].(map[string]any); ok {
		if _, ok := turn["sessionId"]; ok {
			copied := make(map[string]any, len(turn))
			for k, v := range turn {
				copied[k] = v
			}
			copied["sessionId"] = newSessionID
			out.Payload["turn"] = copied
		}
	}
	return out
}
