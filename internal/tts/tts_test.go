package tts

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageForVoice(t *testing.T) {
	tests := []struct {
		voice string
		want  string
	}{
		{"af_sky", "en-us"},
		{"am_adam", "en-us"},
		{"bf_emma", "en-gb"},
		{"bm_george", "en-gb"},
		{"ff_siwis", "fr-fr"},
		{"ef_dora", "es"},
		{"em_alex", "es"},
		{"zf_xiaobei", "cmn"},
		{"if_sara", "it"},
		{"pm_alex", "pt-br"},
		{"jf_alpha", "ja"},
		{"hf_alpha", "en-us"},
		{"nounderscore", "en-us"},
		{"", "en-us"},
	}
	for _, tt := range tests {
		t.Run(tt.voice, func(t *testing.T) {
			assert.Equal(t, tt.want, LanguageForVoice(tt.voice))
		})
	}
}

func TestResolveVoice(t *testing.T) {
	available := []string{"af_sky", "af_bella", "bf_emma"}

	assert.Equal(t, "af_bella", ResolveVoice("af_bella", available, DefaultVoice))
	assert.Equal(t, DefaultVoice, ResolveVoice("af_nobody", available, DefaultVoice))
	assert.Equal(t, DefaultVoice, ResolveVoice("", available, DefaultVoice))
	assert.Equal(t, "anything", ResolveVoice("anything", nil, DefaultVoice))
}

func TestSuggestVoices(t *testing.T) {
	available := []string{"af_sky", "af_bella", "bf_emma", "am_adam"}

	got := SuggestVoices("bella", available, 3)
	require.NotEmpty(t, got)
	assert.Equal(t, "af_bella", got[0])

	assert.Empty(t, SuggestVoices("zzzz", available, 3))
	assert.Len(t, SuggestVoices("a", available, 2), 2)
}

func TestSpeed(t *testing.T) {
	assert.NoError(t, ValidateSpeed(1.0))
	assert.NoError(t, ValidateSpeed(0.5))
	assert.ErrorIs(t, ValidateSpeed(2.5), ErrInvalidSpeed)

	assert.Equal(t, 1.0, NormalizeSpeed(0))
	assert.Equal(t, 0.5, NormalizeSpeed(0.1))
	assert.Equal(t, 2.0, NormalizeSpeed(9))
	assert.InDelta(t, 0.5, LengthScale(2.0), 1e-9)
}

func TestParseEngineType(t *testing.T) {
	for in, want := range map[string]EngineType{
		"mock": EngineMock, "Piper": EnginePiper, "kokoro": EngineHTTP, " http ": EngineHTTP,
	} {
		got, err := ParseEngineType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseEngineType("espeak")
	assert.ErrorIs(t, err, ErrInvalidEngine)
	_, err = ParseEngineType("")
	assert.ErrorIs(t, err, ErrInvalidEngine)
}

func TestTTSError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("synthesize: %w", NewTTSError(ErrorCodeEngineUnavailable, "http", "server unreachable", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "ENGINE_UNAVAILABLE")
	assert.False(t, IsRetryable(NewTTSError(ErrorCodeInvalidInput, "http", "bad", nil)))
	assert.False(t, IsRetryable(cause))
}
