package voteguard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedClock lets tests advance time manually.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time          { return c.t }
func (c *fixedClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestGuard(cfg Config) (*Guard, *fixedClock) {
	g := New(cfg)
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	g.now = clock.now
	return g, clock
}

func TestCheckAllowsDistinctChoices(t *testing.T) {
	g, _ := newTestGuard(Config{MaxVotesPerWindow: 10, RateWindow: time.Minute, DuplicateWindow: time.Minute})

	require.True(t, g.Check("s1", "c1", "verdict", "guilty").Allowed)
	require.True(t, g.Check("s1", "c1", "verdict", "not_guilty").Allowed)
}

func TestCheckDuplicateVote(t *testing.T) {
	g, _ := newTestGuard(Config{MaxVotesPerWindow: 10, RateWindow: time.Minute, DuplicateWindow: time.Minute})

	require.True(t, g.Check("s1", "c1", "verdict", "guilty").Allowed)

	d := g.Check("s1", "c1", "verdict", "guilty")
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonDuplicateVote, d.Reason)
	assert.GreaterOrEqual(t, d.RetryAfterMs, int64(0))
	assert.LessOrEqual(t, d.RetryAfterMs, int64(60_000))
}

func TestCheckDuplicateExpires(t *testing.T) {
	g, clock := newTestGuard(Config{MaxVotesPerWindow: 10, RateWindow: time.Minute, DuplicateWindow: 10 * time.Second})

	require.True(t, g.Check("s1", "c1", "sentence", "Fine").Allowed)
	clock.advance(11 * time.Second)
	assert.True(t, g.Check("s1", "c1", "sentence", "Fine").Allowed)
}

func TestCheckRateLimited(t *testing.T) {
	g, _ := newTestGuard(Config{MaxVotesPerWindow: 3, RateWindow: time.Minute, DuplicateWindow: time.Minute})

	for i := 0; i < 3; i++ {
		require.True(t, g.Check("s1", "c1", "sentence", fmt.Sprintf("choice-%d", i)).Allowed)
	}

	// The (M+1)-th call within the window is rejected.
	d := g.Check("s1", "c1", "sentence", "choice-extra")
	require.False(t, d.Allowed)
	assert.Equal(t, ReasonRateLimited, d.Reason)
	assert.Greater(t, d.RetryAfterMs, int64(0))
	assert.LessOrEqual(t, d.RetryAfterMs, int64(60_000))
}

func TestCheckRateWindowResets(t *testing.T) {
	g, clock := newTestGuard(Config{MaxVotesPerWindow: 2, RateWindow: 30 * time.Second, DuplicateWindow: time.Second})

	require.True(t, g.Check("s1", "c1", "verdict", "a").Allowed)
	clock.advance(2 * time.Second)
	require.True(t, g.Check("s1", "c1", "verdict", "b").Allowed)
	require.False(t, g.Check("s1", "c1", "verdict", "c").Allowed)

	// After the window elapses the counter resets.
	clock.advance(31 * time.Second)
	assert.True(t, g.Check("s1", "c1", "verdict", "d").Allowed)
}

func TestRetryAfterDerivedFromOldestTimestamp(t *testing.T) {
	g, clock := newTestGuard(Config{MaxVotesPerWindow: 2, RateWindow: time.Minute, DuplicateWindow: time.Second})

	require.True(t, g.Check("s1", "c1", "verdict", "a").Allowed)
	clock.advance(20 * time.Second)
	require.True(t, g.Check("s1", "c1", "verdict", "b").Allowed)
	clock.advance(2 * time.Second)

	d := g.Check("s1", "c1", "verdict", "c")
	require.False(t, d.Allowed)
	// Oldest vote is 22s old in a 60s window → retry ≈ 38s.
	assert.InDelta(t, 38_000, d.RetryAfterMs, 1_000)
}

func TestKeysAreIndependent(t *testing.T) {
	g, _ := newTestGuard(Config{MaxVotesPerWindow: 1, RateWindow: time.Minute, DuplicateWindow: time.Minute})

	require.True(t, g.Check("s1", "c1", "verdict", "guilty").Allowed)
	assert.True(t, g.Check("s1", "c2", "verdict", "guilty").Allowed, "different client")
	assert.True(t, g.Check("s2", "c1", "verdict", "guilty").Allowed, "different session")
	assert.True(t, g.Check("s1", "c1", "sentence", "guilty").Allowed, "different poll")
}

func TestSweepRemovesExpiredKeys(t *testing.T) {
	g, clock := newTestGuard(Config{MaxVotesPerWindow: 5, RateWindow: 10 * time.Second, DuplicateWindow: 10 * time.Second})

	g.Check("s1", "c1", "verdict", "guilty")
	g.Check("s2", "c2", "verdict", "guilty")
	require.Equal(t, 2, g.Size())

	clock.advance(11 * time.Second)
	assert.Equal(t, 2, g.sweep())
	assert.Equal(t, 0, g.Size())
}

func TestRejectionsAreNotRecorded(t *testing.T) {
	g, _ := newTestGuard(Config{MaxVotesPerWindow: 2, RateWindow: time.Minute, DuplicateWindow: time.Minute})

	require.True(t, g.Check("s1", "c1", "verdict", "a").Allowed)
	require.True(t, g.Check("s1", "c1", "verdict", "b").Allowed)

	// Rate-limited attempts must not extend the window.
	for i := 0; i < 5; i++ {
		require.False(t, g.Check("s1", "c1", "verdict", "x").Allowed)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	assert.Len(t, g.entries[key("s1", "c1", "verdict")].timestamps, 2)
}
