package recorder

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
)

func mustEvent(t *testing.T, sessionID, eventType string, payload map[string]any) models.Event {
	t.Helper()
	evt, err := events.New(sessionID, eventType, payload)
	require.NoError(t, err)
	return evt
}

func readRecording(t *testing.T, path string) []models.Event {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []models.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var evt models.Event
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &evt))
		out = append(out, evt)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestRecorderRoundTrip(t *testing.T) {
	bus := events.NewBus()
	defer bus.Close()

	m := NewManager(t.TempDir(), bus)
	defer m.Dispose()

	seed := mustEvent(t, "s1", events.TypeSessionCreated,
		events.SessionCreatedPayload(&models.Session{ID: "s1"}))
	require.NoError(t, m.Start("s1", []models.Event{seed}))
	require.NoError(t, m.Start("s1", nil), "double start is a no-op")
	assert.Equal(t, 1, m.ActiveCount())

	published := []models.Event{
		mustEvent(t, "s1", events.TypeAnalytics, events.AnalyticsPayload("poll_started", nil)),
		mustEvent(t, "s1", events.TypeSessionFailed, events.SessionFailedPayload("done")),
	}
	for _, evt := range published {
		bus.Publish(evt)
	}

	// The terminal event auto-stops the recorder.
	require.Eventually(t, func() bool { return m.ActiveCount() == 0 },
		2*time.Second, 10*time.Millisecond)

	got := readRecording(t, m.Path("s1"))
	require.Len(t, got, 3)
	want := append([]models.Event{seed}, published...)
	for i, evt := range got {
		assert.Equal(t, want[i].ID, evt.ID)
		assert.Equal(t, want[i].Type, evt.Type)
	}
}

func TestLoadReplaySkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.ndjson")

	good1, err := json.Marshal(mustEvent(t, "s1", events.TypeSessionFailed,
		events.SessionFailedPayload("x")))
	require.NoError(t, err)
	good2, err := json.Marshal(mustEvent(t, "s1", events.TypeAnalytics,
		events.AnalyticsPayload("poll_closed", nil)))
	require.NoError(t, err)

	content := string(good1) + "\n{not json}\n\n" + string(good2) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	frames, err := LoadReplayRecording(path, 1)
	require.NoError(t, err)
	require.Len(t, frames, 2)
}

func TestLoadReplayComputesDelays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rec.ndjson")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var lines []byte
	for _, offset := range []time.Duration{0, 100 * time.Millisecond, 300 * time.Millisecond} {
		evt := mustEvent(t, "s1", events.TypeAnalytics, events.AnalyticsPayload("n", nil))
		evt.At = base.Add(offset)
		raw, err := json.Marshal(evt)
		require.NoError(t, err)
		lines = append(lines, raw...)
		lines = append(lines, '\n')
	}
	require.NoError(t, os.WriteFile(path, lines, 0o644))

	frames, err := LoadReplayRecording(path, 2)
	require.NoError(t, err)
	require.Len(t, frames, 3)
	assert.Equal(t, int64(0), frames[0].DelayMs)
	assert.Equal(t, int64(50), frames[1].DelayMs)
	assert.Equal(t, int64(150), frames[2].DelayMs)

	for _, badSpeed := range []float64{0, -3, math.NaN(), math.Inf(1)} {
		frames, err := LoadReplayRecording(path, badSpeed)
		require.NoError(t, err)
		assert.Equal(t, int64(300), frames[2].DelayMs, "speed %v must clamp to 1", badSpeed)
	}
}

func TestRewriteReplayEventForSession(t *testing.T) {
	src := models.Event{
		ID:        "e1",
		SessionID: "old",
		Type:      events.TypeTurn,
		At:        time.Now().UTC(),
		Payload: map[string]any{
			"sessionId": "old",
			"turn": map[string]any{
				"sessionId": "old",
				"dialogue":  "Order!",
			},
		},
	}

	out := RewriteReplayEventForSession(src, "new")

	assert.Equal(t, "new", out.SessionID)
	assert.Equal(t, "new", out.Payload["sessionId"])
	assert.Equal(t, "new", out.Payload["turn"].(map[string]any)["sessionId"])

	// Source must be untouched, including the nested turn map.
	assert.Equal(t, "old", src.SessionID)
	assert.Equal(t, "old", src.Payload["sessionId"])
	assert.Equal(t, "old", src.Payload["turn"].(map[string]any)["sessionId"])
}
