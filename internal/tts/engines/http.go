package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/tts"
)

// API endpoints and paths.
const (
	apiSpeech = "/v1/audio/speech"
	apiVoices = "/v1/audio/voices"
	apiHealth = "/health"
)

const (
	contentTypeJSON = "application/json"
	contentTypeWAV  = "audio/wav"
)

// HTTPEngine implements tts.Engine against a speech server that speaks the
// OpenAI-style /v1/audio/speech API and answers with WAV audio.
type HTTPEngine struct {
	baseURL    string
	model      string
	apiKey     string
	voices     []string
	sampleRate int

	httpClient *http.Client

	// Rate limiting to avoid overloading the server
	rateLimiter *rate.Limiter
}

// HTTPConfig holds configuration for the HTTP engine.
type HTTPConfig struct {
	// BaseURL includes protocol and port (e.g., "http://127.0.0.1:8880")
	BaseURL string

	// Model name sent with each request (defaults to "kokoro")
	Model string

	// APIKey is sent as a bearer token when set
	APIKey string

	// Voices accepted by the server, fetched with FetchVoices when empty
	Voices []string

	// SampleRate reported by Info before any audio has been received
	// (defaults to 24000)
	SampleRate int

	// Timeout applies to every HTTP request (defaults to 60s)
	Timeout time.Duration

	// RequestsPerMinute caps the request rate (defaults to 600)
	RequestsPerMinute int
}

// speechRequest is the JSON payload of a synthesis request.
type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	Language       string  `json:"lang_code,omitempty"`
	ResponseFormat string  `json:"response_format"`
}

// errorResponse is the structured error a server may return.
type errorResponse struct {
	Detail  string `json:"detail"`
	Message string `json:"message"`
}

// NewHTTPEngine creates a new HTTP TTS engine.
func NewHTTPEngine(config HTTPConfig) (*HTTPEngine, error) {
	if config.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if config.Model == "" {
		config.Model = "kokoro"
	}
	if config.SampleRate == 0 {
		config.SampleRate = audio.DefaultSampleRate
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.RequestsPerMinute == 0 {
		config.RequestsPerMinute = 600
	}

	return &HTTPEngine{
		baseURL:     strings.TrimSuffix(config.BaseURL, "/"),
		model:       config.Model,
		apiKey:      config.APIKey,
		voices:      config.Voices,
		sampleRate:  config.SampleRate,
		httpClient:  &http.Client{Timeout: config.Timeout},
		rateLimiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 4),
	}, nil
}

// Synthesize implements tts.Synthesizer.
func (e *HTTPEngine) Synthesize(ctx context.Context, req tts.Request) (audio.Buffer, error) {
	if strings.TrimSpace(req.Text) == "" {
		return audio.Buffer{}, tts.ErrEmptyText
	}

	if err := e.rateLimiter.Wait(ctx); err != nil {
		return audio.Buffer{}, fmt.Errorf("rate limiter: %w", err)
	}

	body, err := json.Marshal(speechRequest{
		Model:          e.model,
		Input:          req.Text,
		Voice:          req.Voice,
		Speed:          tts.NormalizeSpeed(req.Speed),
		Language:       req.Language,
		ResponseFormat: "wav",
	})
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+apiSpeech, bytes.NewReader(body))
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentTypeJSON)
	httpReq.Header.Set("Accept", contentTypeWAV)
	e.authorize(httpReq)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "http",
			fmt.Sprintf("failed to reach speech server at %s", e.baseURL), err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return audio.Buffer{}, e.parseErrorResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("failed to read audio data: %w", err)
	}
	if len(data) == 0 {
		return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeAudioFormat, "http", "received empty audio data", nil)
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return audio.Buffer{}, tts.NewTTSError(tts.ErrorCodeAudioFormat, "http", "response is not WAV audio", err)
	}
	return buf, nil
}

// parseErrorResponse turns a non-OK response into a TTSError. Server side
// failures are retryable, request errors are not.
func (e *HTTPEngine) parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(raw))
	var er errorResponse
	if json.Unmarshal(raw, &er) == nil {
		switch {
		case er.Detail != "":
			msg = er.Detail
		case er.Message != "":
			msg = er.Message
		}
	}

	code := tts.ErrorCodeInvalidInput
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		code = tts.ErrorCodeEngineUnavailable
	}
	return tts.NewTTSError(code, "http", fmt.Sprintf("status %s: %s", resp.Status, msg), tts.ErrSynthesisFailed)
}

func (e *HTTPEngine) authorize(req *http.Request) {
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}
}

// FetchVoices asks the server for its voice list and remembers it.
func (e *HTTPEngine) FetchVoices(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiVoices, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create voices request: %w", err)
	}
	e.authorize(req)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, tts.NewTTSError(tts.ErrorCodeEngineUnavailable, "http", "failed to list voices", err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, e.parseErrorResponse(resp)
	}

	var payload struct {
		Voices []string `json:"voices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode voice list: %w", err)
	}
	e.voices = payload.Voices
	return payload.Voices, nil
}

// Info implements tts.Engine.
func (e *HTTPEngine) Info() tts.EngineInfo {
	return tts.EngineInfo{
		Name:       "http",
		SampleRate: e.sampleRate,
		IsOnline:   true,
	}
}

// Voices implements tts.Engine.
func (e *HTTPEngine) Voices() []string {
	return e.voices
}

// Validate performs a health check against the server.
func (e *HTTPEngine) Validate(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}
	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: health check failed for %s: %v", tts.ErrEngineNotAvailable, e.baseURL, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %s", tts.ErrEngineNotAvailable, resp.Status)
	}
	return nil
}

// Close implements tts.Engine.
func (e *HTTPEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

var _ tts.Engine = (*HTTPEngine)(nil)
