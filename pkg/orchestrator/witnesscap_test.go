package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func words(n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = "word"
	}
	return strings.Join(out, " ")
}

func TestApplyWitnessCapBounds(t *testing.T) {
	cases := []struct {
		name       string
		tokens     int
		cfg        WitnessCapConfig
		wantCapped bool
		wantReason string
		wantLen    int
	}{
		{
			name:   "under both bounds",
			tokens: 10,
			cfg:    WitnessCapConfig{MaxTokens: 20, MaxSeconds: 10, TokensPerSecond: 3, TruncationMarker: "[cut]"},
		},
		{
			name:       "token bound tighter",
			tokens:     50,
			cfg:        WitnessCapConfig{MaxTokens: 20, MaxSeconds: 10, TokensPerSecond: 3, TruncationMarker: "[cut]"},
			wantCapped: true,
			wantReason: CapReasonTokens,
			wantLen:    20,
		},
		{
			name:       "seconds bound tighter",
			tokens:     50,
			cfg:        WitnessCapConfig{MaxTokens: 40, MaxSeconds: 5, TokensPerSecond: 3, TruncationMarker: "[cut]"},
			wantCapped: true,
			wantReason: CapReasonSeconds,
			wantLen:    15,
		},
		{
			name:       "tie goes to tokens",
			tokens:     50,
			cfg:        WitnessCapConfig{MaxTokens: 30, MaxSeconds: 10, TokensPerSecond: 3, TruncationMarker: "[cut]"},
			wantCapped: true,
			wantReason: CapReasonTokens,
			wantLen:    30,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := words(tc.tokens)
			out, res := ApplyWitnessCap(in, tc.cfg)

			assert.Equal(t, tc.wantCapped, res.Capped)
			assert.Equal(t, tc.tokens, res.OriginalTokens)
			if !tc.wantCapped {
				assert.Equal(t, in, out)
				assert.False(t, strings.HasSuffix(out, tc.cfg.TruncationMarker))
				return
			}
			assert.Equal(t, tc.wantReason, res.Reason)
			assert.Equal(t, tc.wantLen, res.CappedTokens)
			assert.True(t, strings.HasSuffix(out, tc.cfg.TruncationMarker))
			trimmed := strings.TrimSuffix(out, " "+tc.cfg.TruncationMarker)
			assert.Len(t, strings.Fields(trimmed), tc.wantLen)
		})
	}
}

func TestApplyWitnessCapFloor(t *testing.T) {
	out, res := ApplyWitnessCap(words(5), WitnessCapConfig{
		MaxTokens: 0, MaxSeconds: 0, TokensPerSecond: 3, TruncationMarker: "[cut]",
	})
	assert.True(t, res.Capped)
	assert.Equal(t, 1, res.CappedTokens)
	assert.Equal(t, "word [cut]", out)
}
