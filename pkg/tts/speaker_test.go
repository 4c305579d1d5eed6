package tts

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSpeakerSelectsProvider(t *testing.T) {
	sp, err := NewSpeaker(ProviderNoop)
	require.NoError(t, err)
	assert.IsType(t, NoopSpeaker{}, sp)

	sp, err = NewSpeaker("")
	require.NoError(t, err)
	assert.IsType(t, NoopSpeaker{}, sp)

	sp, err = NewSpeaker(ProviderMock)
	require.NoError(t, err)
	assert.IsType(t, &MockSpeaker{}, sp)
}

func TestNewSpeakerRejectsUnknownProvider(t *testing.T) {
	_, err := NewSpeaker("gramophone")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gramophone")
}

func TestMockSpeakerRecordsAndFails(t *testing.T) {
	m := NewMockSpeaker()
	ctx := context.Background()

	require.NoError(t, m.Speak(ctx, "judge-stern", "Order in the court."))

	boom := errors.New("no audio device")
	m.FailWith(boom)
	assert.ErrorIs(t, m.Speak(ctx, "judge-stern", "Silence!"), boom)

	m.FailWith(nil)
	require.NoError(t, m.Speak(ctx, "bailiff-dry", "All rise."))

	got := m.Utterances()
	require.Len(t, got, 2)
	assert.Equal(t, "Order in the court.", got[0].Text)
	assert.Equal(t, "bailiff-dry", got[1].Speaker)
}
