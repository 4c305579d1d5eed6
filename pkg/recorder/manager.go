// Package recorder persists per-session event streams as NDJSON files and
// loads them back for replay.
package recorder

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/courtlive/courtd/pkg/events"
	"github.com/courtlive/courtd/pkg/models"
)

// DefaultRecordingsDir is used when RECORDINGS_DIR is unset.
const DefaultRecordingsDir = "./recordings"

// EventSource is the subscription capability the manager needs; both store
// backends satisfy it.
type EventSource interface {
	Subscribe(sessionID string, handler events.Handler) func()
}

// Manager maintains one NDJSON recorder per recorded session. Recorders
// auto-stop when the session's terminal event arrives.
type Manager struct {
	dir    string
	source EventSource

	mu     sync.Mutex
	active map[string]*recorder
}

type recorder struct {
	mu     sync.Mutex
	file   *os.File
	enc    *json.Encoder
	unsub  func()
	closed bool
}

// NewManager creates a recorder manager writing under dir.
func NewManager(dir string, source EventSource) *Manager {
	if dir == "" {
		dir = DefaultRecordingsDir
	}
	return &Manager{
		dir:    dir,
		source: source,
		active: make(map[string]*recorder),
	}
}

// Path returns the recording file path for a session.
func (m *Manager) Path(sessionID string) string {
	return filepath.Join(m.dir, sessionID+".ndjson")
}

// Start opens (or appends to) the session's recording, writes any initial
// seed events, and subscribes to the live stream. Starting an already
// recording session is a no-op.
func (m *Manager) Start(sessionID string, initialEvents []models.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[sessionID]; exists {
		return nil
	}

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recordings dir: %w", err)
	}
	file, err := os.OpenFile(m.Path(sessionID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open recording file: %w", err)
	}

	rec := &recorder{file: file, enc: json.NewEncoder(file)}
	for _, evt := range initialEvents {
		rec.write(evt)
	}

	rec.unsub = m.source.Subscribe(sessionID, func(evt models.Event) {
		rec.write(evt)
		if events.IsTerminal(evt.Type) {
			// Stop on a fresh goroutine; the handler runs on the
			// subscriber's drain goroutine.
			go m.Stop(sessionID)
		}
	})

	m.active[sessionID] = rec
	slog.Info("Recording session events", "session_id", sessionID, "path", m.Path(sessionID))
	return nil
}

// Stop unsubscribes and closes the session's recording. Stopping an unknown
// session is a no-op.
func (m *Manager) Stop(sessionID string) {
	m.mu.Lock()
	rec, ok := m.active[sessionID]
	if ok {
		delete(m.active, sessionID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	rec.close()
	slog.Info("Recording stopped", "session_id", sessionID)
}

// Dispose stops every active recorder. Called on process shutdown.
func (m *Manager) Dispose() {
	m.mu.Lock()
	recs := make(map[string]*recorder, len(m.active))
	for id, rec := range m.active {
		recs[id] = rec
	}
	m.active = make(map[string]*recorder)
	m.mu.Unlock()

	for id, rec := range recs {
		rec.close()
		slog.Info("Recording stopped", "session_id", id)
	}
}

// ActiveCount returns the number of sessions currently being recorded.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

func (r *recorder) write(evt models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	if err := r.enc.Encode(evt); err != nil {
		slog.Warn("Failed to write recording line",
			"session_id", evt.SessionID, "error", err)
	}
}

func (r *recorder) close() {
	if r.unsub != nil {
		r.unsub()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	if err := r.file.Close(); err != nil {
		slog.Warn("Failed to close recording file", "error", err)
	}
}
