package tts

import (
	"fmt"
	"strings"
)

// EngineType names a synthesis backend.
type EngineType string

// Supported engines.
const (
	EngineMock  EngineType = "mock"
	EnginePiper EngineType = "piper"
	EngineHTTP  EngineType = "http"
)

// ParseEngineType validates an engine name from flags or configuration.
// Aliases are normalized.
func ParseEngineType(name string) (EngineType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mock", "test":
		return EngineMock, nil
	case "piper":
		return EnginePiper, nil
	case "http", "kokoro", "remote":
		return EngineHTTP, nil
	case "":
		return "", fmt.Errorf("%w: no engine selected\n\nSupported engines:\n  - piper (offline)\n  - http (speech server)\n  - mock (test tone)", ErrInvalidEngine)
	default:
		return "", fmt.Errorf("%w: %s\n\nSupported engines:\n  - piper (offline)\n  - http (speech server)\n  - mock (test tone)", ErrInvalidEngine, name)
	}
}
