// Package tts defines the speech synthesis capability used by the pacing
// pipeline and the helpers shared by its engines.
package tts

import (
	"context"

	"github.com/localreader/narrator/internal/audio"
)

// Request is a single synthesis call.
type Request struct {
	Text     string
	Voice    string
	Speed    float64
	Language string
}

// Synthesizer turns text into mono float samples. Calls may block for a long
// time and may fail; implementations must be safe for concurrent use.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (audio.Buffer, error)
}

// Engine is a Synthesizer with identity and lifecycle.
type Engine interface {
	Synthesizer

	// Info returns engine capabilities and configuration.
	Info() EngineInfo

	// Voices lists the voice identifiers the engine accepts.
	Voices() []string

	// Validate checks that the engine is configured and reachable.
	Validate(ctx context.Context) error

	// Close releases any resources held by the engine.
	Close() error
}

// EngineInfo describes engine capabilities and configuration.
type EngineInfo struct {
	Name        string // Engine name (e.g., "piper", "http")
	SampleRate  int    // Native sample rate in Hz
	MaxTextSize int    // Maximum text size in characters, 0 for no limit
	IsOnline    bool   // Whether the engine talks to a remote service
}
