package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Runtime tracks the driver goroutine of every running session and owns
// their cancellation.
type Runtime struct {
	deps Deps

	mu             sync.RWMutex
	activeSessions map[string]context.CancelFunc
	wg             sync.WaitGroup
	stopped        bool
}

// NewRuntime creates a runtime around one dependency bundle.
func NewRuntime(deps Deps) *Runtime {
	return &Runtime{
		deps:           deps.withDefaults(),
		activeSessions: make(map[string]context.CancelFunc),
	}
}

// Launch spawns the driver goroutine for a session. The session must not
// already be running under this runtime.
func (rt *Runtime) Launch(ctx context.Context, sessionID string) error {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return fmt.Errorf("runtime is stopped")
	}
	if _, exists := rt.activeSessions[sessionID]; exists {
		rt.mu.Unlock()
		return fmt.Errorf("session %s is already running", sessionID)
	}
	sessionCtx, cancel := context.WithCancel(ctx)
	rt.activeSessions[sessionID] = cancel
	rt.wg.Add(1)
	rt.mu.Unlock()

	go func() {
		defer rt.wg.Done()
		defer cancel()
		defer rt.unregister(sessionID)
		if err := Run(sessionCtx, rt.deps, sessionID); err != nil {
			slog.Error("Session drive ended with error",
				"session_id", sessionID, "error", err)
		}
	}()
	return nil
}

func (rt *Runtime) unregister(sessionID string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	delete(rt.activeSessions, sessionID)
}

// CancelSession cancels one running session's driver. Returns true when the
// session was found.
func (rt *Runtime) CancelSession(sessionID string) bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if cancel, ok := rt.activeSessions[sessionID]; ok {
		cancel()
		return true
	}
	return false
}

// ActiveCount returns the number of sessions currently being driven.
func (rt *Runtime) ActiveCount() int {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return len(rt.activeSessions)
}

// Stop cancels every running session and waits for the drivers to exit.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	rt.stopped = true
	active := len(rt.activeSessions)
	for _, cancel := range rt.activeSessions {
		cancel()
	}
	rt.mu.Unlock()

	if active > 0 {
		slog.Info("Waiting for session drivers to exit", "count", active)
	}
	rt.wg.Wait()
	slog.Info("Runtime stopped")
}
