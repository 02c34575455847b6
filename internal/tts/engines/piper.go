package engines

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/tts"
)

const (
	piperMaxTextSize  = 5000
	piperMaxAudioSize = 10 * 1024 * 1024
)

// PiperEngine implements tts.Engine using Piper (offline TTS).
// It runs a fresh process per synthesis with the text pre-configured on stdin.
type PiperEngine struct {
	binary     string
	modelPath  string
	configPath string
	speaker    int
	sampleRate int
	timeout    time.Duration
}

// PiperConfig holds configuration for the Piper engine.
type PiperConfig struct {
	// Binary is the piper executable (defaults to "piper" on PATH)
	Binary string

	// Model file path (required)
	ModelPath string

	// Config file path (optional, defaults to model path with .json extension)
	ConfigPath string

	// Speaker id for multi-speaker models, negative for none
	Speaker int

	// Sample rate of the model output (defaults to 22050)
	SampleRate int

	// Timeout per synthesis (defaults to 30s)
	Timeout time.Duration
}

// NewPiperEngine creates a new Piper TTS engine.
func NewPiperEngine(config PiperConfig) (*PiperEngine, error) {
	if config.ModelPath == "" {
		return nil, errors.New("model path is required")
	}
	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}

	if config.Binary == "" {
		config.Binary = "piper"
	}
	if config.ConfigPath == "" {
		config.ConfigPath = strings.TrimSuffix(config.ModelPath, filepath.Ext(config.ModelPath)) + ".json"
	}
	if config.SampleRate == 0 {
		config.SampleRate = 22050
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &PiperEngine{
		binary:     config.Binary,
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		speaker:    config.Speaker,
		sampleRate: config.SampleRate,
		timeout:    config.Timeout,
	}, nil
}

// args builds the piper command line for a request.
func (e *PiperEngine) args(req tts.Request) []string {
	args := []string{
		"--model", e.modelPath,
		"--output-raw",
		"--length-scale", strconv.FormatFloat(tts.LengthScale(req.Speed), 'f', 2, 64),
	}
	if _, err := os.Stat(e.configPath); err == nil {
		args = append(args, "--config", e.configPath)
	}
	if e.speaker >= 0 {
		args = append(args, "--speaker", strconv.Itoa(e.speaker))
	}
	return args
}

// Synthesize implements tts.Synthesizer.
func (e *PiperEngine) Synthesize(ctx context.Context, req tts.Request) (audio.Buffer, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return audio.Buffer{}, tts.ErrEmptyText
	}
	if len(text) > piperMaxTextSize {
		return audio.Buffer{}, fmt.Errorf("%w: %d characters (max %d)", tts.ErrTextTooLong, len(text), piperMaxTextSize)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, e.args(req)...)
	cmd.Stdin = strings.NewReader(text)
	// Interrupt first, kill if piper has not exited shortly after.
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = 100 * time.Millisecond

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeEngineTimeout, "piper",
				fmt.Sprintf("synthesis timeout after %s", e.timeout), ctx.Err())
		}
		return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeEngineFailure, "piper",
			fmt.Sprintf("piper failed, stderr: %s", strings.TrimSpace(stderr.String())), err)
	}

	raw := stdout.Bytes()
	if len(raw) == 0 {
		return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeEngineFailure, "piper",
			fmt.Sprintf("piper produced no audio output, stderr: %s", strings.TrimSpace(stderr.String())), nil)
	}
	if len(raw) > piperMaxAudioSize {
		return audio.Buffer{}, fmt.Errorf("piper output too large: %d bytes (max %d)", len(raw), piperMaxAudioSize)
	}
	// A trailing odd byte means piper was cut off mid-sample.
	if len(raw)%2 != 0 {
		raw = raw[:len(raw)-1]
	}

	buf, err := audio.DecodePCM16(raw, e.sampleRate)
	if err != nil {
		return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeAudioFormat, "piper", "unreadable output", err)
	}
	return buf, nil
}

// Info implements tts.Engine.
func (e *PiperEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:        "piper",
		SampleRate:  e.sampleRate,
		MaxTextSize: piperMaxTextSize,
		IsOnline:    false,
	}
}

// Voices implements tts.Engine. A piper model carries a single voice, so any
// voice id is accepted.
func (e *PiperEngine) Voices() []string {
	return nil
}

// Validate checks if the engine is properly configured and available.
func (e *PiperEngine) Validate(ctx context.Context) error {
	if _, err := exec.LookPath(e.binary); err != nil {
		return fmt.Errorf("%w: piper not found in PATH: %v", tts.ErrEngineNotAvailable, err)
	}
	if _, err := os.Stat(e.modelPath); err != nil {
		return fmt.Errorf("model file not accessible: %w", err)
	}

	testCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := e.Synthesize(testCtx, tts.Request{Text: "Test", Speed: 1}); err != nil {
		return fmt.Errorf("test synthesis failed: %w", err)
	}
	return nil
}

// Close implements tts.Engine.
func (e *PiperEngine) Close() error {
	return nil
}

var _ tts.Engine = (*PiperEngine)(nil)
