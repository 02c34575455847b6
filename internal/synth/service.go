// Package synth answers one synthesis request end to end: text cleanup,
// cache lookup, paced or direct synthesis and WAV encoding.
package synth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/cache"
	"github.com/localreader/narrator/internal/dispatch"
	"github.com/localreader/narrator/internal/noise"
	"github.com/localreader/narrator/internal/plan"
	"github.com/localreader/narrator/internal/pronounce"
	"github.com/localreader/narrator/internal/tts"
)

// silentFallbackMs is the length of the audio returned for text with nothing
// to speak.
const silentFallbackMs = 100

// Store is the cache used by the Service.
type Store interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// Request is a synthesis request.
type Request struct {
	Text  string
	Voice string
	Speed float64
	// Pauses enables paced synthesis when non-empty.
	Pauses plan.PauseSettings
	Rules  pronounce.RuleSet
}

// Response is the result of a synthesis request.
type Response struct {
	WAV      []byte
	Key      string
	Cached   bool
	Voice    string
	Language string
	// Spoken is the text after cleanup and pronunciation rules.
	Spoken string
	// Paced reports whether the text went through the punctuation planner.
	Paced bool
	// Results holds per-item outcomes of paced synthesis.
	Results []dispatch.Result
	Elapsed time.Duration
}

// Failed returns the number of paced items that produced no audio.
func (r *Response) Failed() int {
	n := 0
	for _, res := range r.Results {
		if !res.OK() {
			n++
		}
	}
	return n
}

// Service synthesizes requests through an engine and a cache.
type Service struct {
	engine       tts.Engine
	dispatcher   *dispatch.Dispatcher
	store        Store
	defaultVoice string
	logger       *log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithStore sets the cache. Without one every request is synthesized.
func WithStore(s Store) Option {
	return func(svc *Service) {
		svc.store = s
	}
}

// WithDefaultVoice sets the voice used when the requested one is unknown.
func WithDefaultVoice(voice string) Option {
	return func(svc *Service) {
		if voice != "" {
			svc.defaultVoice = voice
		}
	}
}

// WithWorkers sets the paced synthesis concurrency.
func WithWorkers(n int) Option {
	return func(svc *Service) {
		svc.dispatcher = dispatch.New(svc.engine, dispatch.WithWorkers(n), dispatch.WithLogger(svc.logger))
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
			svc.dispatcher = dispatch.New(svc.engine, dispatch.WithWorkers(svc.dispatcher.Workers()), dispatch.WithLogger(l))
		}
	}
}

// New creates a Service around engine.
func New(engine tts.Engine, opts ...Option) *Service {
	svc := &Service{
		engine:       engine,
		defaultVoice: tts.DefaultVoice,
		logger:       log.Default(),
	}
	svc.dispatcher = dispatch.New(engine, dispatch.WithLogger(svc.logger))
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Synthesize returns WAV audio for req, from the cache when possible.
func (s *Service) Synthesize(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	voice := tts.ResolveVoice(req.Voice, s.engine.Voices(), s.defaultVoice)
	resp := &Response{
		Voice:    voice,
		Language: tts.LanguageForVoice(voice),
	}
	speed := tts.NormalizeSpeed(req.Speed)

	key, err := cache.Key(cache.KeyParams{
		Text:          req.Text,
		Voice:         voice,
		Language:      resp.Language,
		Speed:         speed,
		PauseSettings: pauseMap(req.Pauses),
		Rules:         req.Rules.Rules,
		Ignore:        req.Rules.Ignore,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to derive cache key: %w", err)
	}
	resp.Key = key

	if s.store != nil {
		if data, ok := s.store.Get(key); ok {
			resp.WAV, resp.Cached = data, true
			resp.Elapsed = time.Since(start)
			s.logger.Debug("cache hit", "key", key)
			return resp, nil
		}
	}

	resp.Spoken = pronounce.Compile(req.Rules, s.logger).Apply(noise.StripMarkers(req.Text))

	buf, err := s.render(ctx, resp, speed, req.Pauses)
	if err != nil {
		return nil, err
	}

	wav, err := audio.EncodeWAV(buf)
	if err != nil {
		return nil, fmt.Errorf("unable to encode audio: %w", err)
	}
	resp.WAV = wav

	switch {
	case s.store == nil:
	case resp.Failed() > 0:
		s.logger.Warn("not caching audio with failed segments", "key", key, "failed", resp.Failed())
	default:
		if err := s.store.Put(key, wav); err != nil {
			level := log.WarnLevel
			if errors.Is(err, cache.ErrItemTooLarge) {
				level = log.DebugLevel
			}
			s.logger.Log(level, "unable to cache audio", "key", key, "err", err)
		}
	}

	resp.Elapsed = time.Since(start)
	return resp, nil
}

// render produces the samples for resp.Spoken.
func (s *Service) render(ctx context.Context, resp *Response, speed float64, pauses plan.PauseSettings) (audio.Buffer, error) {
	if !plan.IsSpeakable(resp.Spoken) {
		return audio.SilentBuffer(silentFallbackMs, audio.DefaultSampleRate), nil
	}

	if len(pauses) > 0 && plan.HasPunctuation(resp.Spoken) {
		resp.Paced = true
		buf, results, err := s.dispatcher.Execute(ctx, plan.New(resp.Spoken, pauses), resp.Voice, speed, resp.Language)
		resp.Results = results
		if err != nil {
			return audio.Buffer{}, fmt.Errorf("paced synthesis interrupted: %w", err)
		}
		return buf, nil
	}

	buf, err := s.engine.Synthesize(ctx, tts.Request{
		Text:     resp.Spoken,
		Voice:    resp.Voice,
		Speed:    speed,
		Language: resp.Language,
	})
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("synthesis failed: %w", err)
	}
	return buf, nil
}

func pauseMap(p plan.PauseSettings) map[string]int {
	out := make(map[string]int, len(p))
	for class, ms := range p {
		out[string(class)] = ms
	}
	return out
}
