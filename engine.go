package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/localreader/narrator/internal/cache"
	"github.com/localreader/narrator/internal/config"
	"github.com/localreader/narrator/internal/pronounce"
	"github.com/localreader/narrator/internal/synth"
	"github.com/localreader/narrator/internal/tts"
	"github.com/localreader/narrator/internal/tts/engines"
)

// mockVoices are accepted by the mock engine.
var mockVoices = []string{
	"af_sky", "af_bella", "am_adam", "bf_emma", "bm_george",
	"ff_siwis", "ef_dora", "zf_xiaobei", "if_sara", "pf_dora", "jf_alpha",
}

// newEngine creates the engine selected by c.
func newEngine(ctx context.Context, c config.Config) (tts.Engine, error) {
	switch tts.EngineType(c.Engine) {
	case tts.EnginePiper:
		e, err := engines.NewPiperEngine(engines.PiperConfig{
			Binary:     c.Piper.Binary,
			ModelPath:  c.Piper.Model,
			ConfigPath: c.Piper.ConfigPath,
			Speaker:    c.Piper.Speaker,
			SampleRate: c.Piper.SampleRate,
			Timeout:    c.Piper.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to create piper engine: %w", err)
		}
		return e, nil

	case tts.EngineHTTP:
		e, err := engines.NewHTTPEngine(engines.HTTPConfig{
			BaseURL:           c.HTTP.URL,
			Model:             c.HTTP.Model,
			APIKey:            c.HTTP.APIKey,
			SampleRate:        c.HTTP.SampleRate,
			Timeout:           c.HTTP.Timeout,
			RequestsPerMinute: c.HTTP.RequestsPerMinute,
		})
		if err != nil {
			return nil, fmt.Errorf("unable to create http engine: %w", err)
		}
		if _, err := e.FetchVoices(ctx); err != nil {
			log.Warn("Could not fetch voice list, voices will not be checked", "err", err)
		}
		return e, nil

	default:
		return engines.NewMockEngine(engines.MockConfig{VoiceList: mockVoices}), nil
	}
}

// openCache opens the audio cache, or returns nil when it is disabled.
func openCache(c config.Config) (*cache.Cache, error) {
	if c.Cache.Disabled {
		return nil, nil
	}
	store, err := cache.New(c.Cache.CacheConfig(), cache.WithLogger(log.Default()))
	if err != nil {
		return nil, fmt.Errorf("unable to open cache: %w", err)
	}
	return store, nil
}

func loadRules(c config.Config) (pronounce.RuleSet, error) {
	if c.RulesFile == "" {
		return pronounce.RuleSet{}, nil
	}
	rules, err := pronounce.LoadRules(c.RulesFile)
	if err != nil {
		return pronounce.RuleSet{}, fmt.Errorf("unable to load pronunciation rules: %w", err)
	}
	log.Debug("pronunciation rules loaded", "rules", len(rules.Rules), "ignore", len(rules.Ignore))
	return rules, nil
}

// session holds everything a synthesizing command needs.
type session struct {
	engine tts.Engine
	store  *cache.Cache
	rules  pronounce.RuleSet
	svc    *synth.Service
}

func newSession(ctx context.Context, c config.Config) (*session, error) {
	rules, err := loadRules(c)
	if err != nil {
		return nil, err
	}
	engine, err := newEngine(ctx, c)
	if err != nil {
		return nil, err
	}
	store, err := openCache(c)
	if err != nil {
		_ = engine.Close()
		return nil, err
	}

	opts := []synth.Option{
		synth.WithLogger(log.Default()),
		synth.WithWorkers(c.Workers),
		synth.WithDefaultVoice(tts.DefaultVoice),
	}
	if store != nil {
		opts = append(opts, synth.WithStore(store))
	}
	return &session{
		engine: engine,
		store:  store,
		rules:  rules,
		svc:    synth.New(engine, opts...),
	}, nil
}

func (r *session) Close() error {
	var err error
	if r.store != nil {
		err = r.store.Close()
	}
	if cerr := r.engine.Close(); err == nil {
		err = cerr
	}
	return err
}
