// Package tts abstracts the audio adapter the orchestrator speaks through.
// The core never depends on a real synthesis provider: production wiring
// selects noop or mock via TTS_PROVIDER, and failures are always swallowed
// upstream by the orchestrator's safelySpeak wrapper.
package tts

import (
	"context"
	"fmt"
	"sync"
)

// Speaker voices one utterance. Implementations must be safe for concurrent
// use across sessions.
type Speaker interface {
	Speak(ctx context.Context, speaker, text string) error
}

// Provider names accepted by NewSpeaker.
const (
	ProviderNoop = "noop"
	ProviderMock = "mock"
)

// NewSpeaker constructs the named provider.
func NewSpeaker(provider string) (Speaker, error) {
	switch provider {
	case ProviderNoop, "":
		return NoopSpeaker{}, nil
	case ProviderMock:
		return NewMockSpeaker(), nil
	}
	return nil, fmt.Errorf("unknown TTS provider %q", provider)
}

// NoopSpeaker discards every utterance.
type NoopSpeaker struct{}

// Speak implements Speaker.
func (NoopSpeaker) Speak(context.Context, string, string) error { return nil }

// Utterance is one recorded Speak call.
type Utterance struct {
	Speaker string
	Text    string
}

// MockSpeaker records utterances and can be told to fail, for tests and for
// running the show without audio hardware.
type MockSpeaker struct {
	mu         sync.Mutex
	utterances []Utterance
	failWith   error
}

// NewMockSpeaker creates an empty recorder.
func NewMockSpeaker() *MockSpeaker { return &MockSpeaker{} }

// Speak implements Speaker.
func (m *MockSpeaker) Speak(_ context.Context, speaker, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	m.utterances = append(m.utterances, Utterance{Speaker: speaker, Text: text})
	return nil
}

// FailWith makes every subsequent Speak return err (nil restores success).
func (m *MockSpeaker) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Utterances returns a copy of everything spoken so far.
func (m *MockSpeaker) Utterances() []Utterance {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Utterance(nil), m.utterances...)
}
