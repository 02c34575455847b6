package tts

import (
	"errors"
	"fmt"
)

// Common TTS errors
var (
	// ErrEmptyText indicates there was nothing to synthesize
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrTextTooLong indicates the text exceeds the engine limit
	ErrTextTooLong = errors.New("text too long for engine")

	// ErrEngineNotAvailable indicates the selected engine is not available
	ErrEngineNotAvailable = errors.New("selected TTS engine is not available")

	// ErrInvalidEngine indicates an unknown engine was specified
	ErrInvalidEngine = errors.New("invalid TTS engine specified")

	// ErrSynthesisFailed indicates synthesis operation failed
	ErrSynthesisFailed = errors.New("text synthesis failed")

	// ErrInvalidSpeed indicates speed value is out of range
	ErrInvalidSpeed = errors.New("speed must be between 0.5 and 2.0")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = errors.New("operation timed out")
)

// ErrorCode identifies specific error types
type ErrorCode string

const (
	ErrorCodeEngineFailure     ErrorCode = "ENGINE_FAILURE"
	ErrorCodeEngineUnavailable ErrorCode = "ENGINE_UNAVAILABLE"
	ErrorCodeEngineTimeout     ErrorCode = "ENGINE_TIMEOUT"
	ErrorCodeAudioFormat       ErrorCode = "AUDIO_FORMAT"
	ErrorCodeInvalidInput      ErrorCode = "INVALID_INPUT"
)

// TTSError represents an engine error with additional context
type TTSError struct {
	Code    ErrorCode
	Engine  string
	Message string
	Cause   error
}

// NewTTSError creates a new TTS error
func NewTTSError(code ErrorCode, engine, message string, cause error) *TTSError {
	return &TTSError{
		Code:    code,
		Engine:  engine,
		Message: message,
		Cause:   cause,
	}
}

// Error implements the error interface
func (e *TTSError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Engine, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Engine, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *TTSError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the operation can be retried
func (e *TTSError) IsRetryable() bool {
	switch e.Code {
	case ErrorCodeEngineTimeout, ErrorCodeEngineUnavailable:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err, or any error it wraps, is a retryable
// TTSError.
func IsRetryable(err error) bool {
	var te *TTSError
	return errors.As(err, &te) && te.IsRetryable()
}
