package engines

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/tts"
)

// MockConfig configures the mock engine.
type MockConfig struct {
	// SampleRate of the generated tone (defaults to 24000)
	SampleRate int

	// Delay simulates synthesis latency
	Delay time.Duration

	// MsPerRune sets the generated length per input character (defaults to 60)
	MsPerRune int

	// FailOn makes any text containing one of these substrings fail
	FailOn []string

	// VoiceList is returned by Voices
	VoiceList []string
}

// MockEngine generates a quiet sine tone whose length follows the text. It
// records call counts and peak concurrency for tests.
type MockEngine struct {
	config MockConfig

	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

// NewMockEngine creates a new mock engine.
func NewMockEngine(config MockConfig) *MockEngine {
	if config.SampleRate == 0 {
		config.SampleRate = audio.DefaultSampleRate
	}
	if config.MsPerRune == 0 {
		config.MsPerRune = 60
	}
	return &MockEngine{config: config}
}

// Synthesize implements tts.Synthesizer.
func (e *MockEngine) Synthesize(ctx context.Context, req tts.Request) (audio.Buffer, error) {
	e.calls.Add(1)
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		peak := e.maxInFlight.Load()
		if n <= peak || e.maxInFlight.CompareAndSwap(peak, n) {
			break
		}
	}

	if strings.TrimSpace(req.Text) == "" {
		return audio.Buffer{}, tts.ErrEmptyText
	}

	if e.config.Delay > 0 {
		select {
		case <-time.After(e.config.Delay):
		case <-ctx.Done():
			return audio.Buffer{}, ctx.Err()
		}
	}

	for _, s := range e.config.FailOn {
		if strings.Contains(req.Text, s) {
			return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeEngineFailure, "mock",
				fmt.Sprintf("refusing %q", req.Text), tts.ErrSynthesisFailed)
		}
	}

	ms := float64(utf8.RuneCountInString(req.Text)*e.config.MsPerRune) / tts.NormalizeSpeed(req.Speed)
	samples := make([]float32, audio.SilenceSamples(ms, e.config.SampleRate))
	for i := range samples {
		samples[i] = float32(0.2 * math.Sin(2*math.Pi*220*float64(i)/float64(e.config.SampleRate)))
	}
	// Clips always start on a non-zero sample.
	if len(samples) > 0 {
		samples[0] = 0.2
	}
	return audio.Buffer{Samples: samples, SampleRate: e.config.SampleRate}, nil
}

// Info implements tts.Engine.
func (e *MockEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       "mock",
		SampleRate: e.config.SampleRate,
	}
}

// Voices implements tts.Engine.
func (e *MockEngine) Voices() []string {
	return e.config.VoiceList
}

// Validate implements tts.Engine.
func (e *MockEngine) Validate(context.Context) error {
	return nil
}

// Close implements tts.Engine.
func (e *MockEngine) Close() error {
	return nil
}

// Calls returns the number of Synthesize calls made so far.
func (e *MockEngine) Calls() int {
	return int(e.calls.Load())
}

// MaxConcurrent returns the highest number of overlapping Synthesize calls.
func (e *MockEngine) MaxConcurrent() int {
	return int(e.maxInFlight.Load())
}

var _ tts.Engine = (*MockEngine)(nil)
