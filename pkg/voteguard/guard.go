// Package voteguard rate-limits audience vote submissions. Spam is
// mitigated statistically per (session, client, poll) key: a sliding rate
// window plus a duplicate-choice window. It never consults the store.
package voteguard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Rejection reason tags, stable across the HTTP surface.
const (
	ReasonDuplicateVote = "duplicate_vote"
	ReasonRateLimited   = "rate_limited"
)

// Config bounds the guard's windows.
type Config struct {
	MaxVotesPerWindow int
	RateWindow        time.Duration
	DuplicateWindow   time.Duration
	SweepInterval     time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxVotesPerWindow: 10,
		RateWindow:        60 * time.Second,
		DuplicateWindow:   60 * time.Second,
		SweepInterval:     5 * time.Minute,
	}
}

// Decision is the outcome of one Check call.
type Decision struct {
	Allowed      bool
	Reason       string
	RetryAfterMs int64
}

// entry tracks one (session, client, poll) key. timestamps holds accepted
// votes inside the rate window; choices maps choice → last accepted time.
type entry struct {
	timestamps []time.Time
	choices    map[string]time.Time
}

// Guard is the in-memory vote spam limiter. Safe for concurrent use; all
// state sits behind one mutex so the vote path stays bounded even while
// orchestrators are mid-generation.
type Guard struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a guard with the given config.
func New(cfg Config) *Guard {
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultConfig().SweepInterval
	}
	return &Guard{
		cfg:     cfg,
		now:     time.Now,
		entries: make(map[string]*entry),
		stopCh:  make(chan struct{}),
	}
}

func key(sessionID, clientID, poll string) string {
	return sessionID + "|" + clientID + "|" + poll
}

// Check admits or rejects one vote attempt. Accepted votes are recorded;
// rejected ones are not. Pruning of expired timestamps is amortized here.
func (g *Guard) Check(sessionID, clientID, poll, choice string) Decision {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	k := key(sessionID, clientID, poll)
	e, ok := g.entries[k]
	if !ok {
		e = &entry{choices: make(map[string]time.Time)}
		g.entries[k] = e
	}

	g.prune(e, now)

	if last, seen := e.choices[choice]; seen {
		retry := g.cfg.DuplicateWindow - now.Sub(last)
		return Decision{
			Allowed:      false,
			Reason:       ReasonDuplicateVote,
			RetryAfterMs: max64(retry.Milliseconds(), 0),
		}
	}

	if len(e.timestamps) >= g.cfg.MaxVotesPerWindow {
		oldest := e.timestamps[0]
		retry := g.cfg.RateWindow - now.Sub(oldest)
		return Decision{
			Allowed:      false,
			Reason:       ReasonRateLimited,
			RetryAfterMs: max64(retry.Milliseconds(), 0),
		}
	}

	e.timestamps = append(e.timestamps, now)
	e.choices[choice] = now
	return Decision{Allowed: true}
}

// prune drops timestamps older than the rate window and choice records older
// than the duplicate window. Caller holds g.mu.
func (g *Guard) prune(e *entry, now time.Time) {
	cut := 0
	for cut < len(e.timestamps) && now.Sub(e.timestamps[cut]) >= g.cfg.RateWindow {
		cut++
	}
	if cut > 0 {
		e.timestamps = append(e.timestamps[:0], e.timestamps[cut:]...)
	}
	for choice, at := range e.choices {
		if now.Sub(at) >= g.cfg.DuplicateWindow {
			delete(e.choices, choice)
		}
	}
}

// Start launches the periodic sweep that removes fully expired keys so the
// map does not grow without bound across many sessions.
func (g *Guard) Start() {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(g.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-g.stopCh:
				return
			case <-ticker.C:
				removed := g.sweep()
				if removed > 0 {
					slog.Debug("Vote guard sweep", "removed_keys", removed)
				}
			}
		}
	}()
}

// Stop terminates the sweep goroutine. Safe to call multiple times.
func (g *Guard) Stop() {
	g.stopOnce.Do(func() { close(g.stopCh) })
	g.wg.Wait()
}

// sweep removes keys whose windows have fully expired. Returns the number of
// keys removed.
func (g *Guard) sweep() int {
	now := g.now()

	g.mu.Lock()
	defer g.mu.Unlock()

	removed := 0
	for k, e := range g.entries {
		g.prune(e, now)
		if len(e.timestamps) == 0 && len(e.choices) == 0 {
			delete(g.entries, k)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked keys (for observability and tests).
func (g *Guard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return fmt.Sprintf("reject(%s, retry_after=%dms)", d.Reason, d.RetryAfterMs)
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
