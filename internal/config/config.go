// Package config holds the narrator settings read from the config file,
// the environment and flags.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/localreader/narrator/internal/cache"
	"github.com/localreader/narrator/internal/dispatch"
	"github.com/localreader/narrator/internal/noise"
	"github.com/localreader/narrator/internal/plan"
	"github.com/localreader/narrator/internal/tts"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "NARRATOR_"

// Limits enforced by Validate.
const (
	MaxWorkers     = 32
	MaxCacheSizeMB = 10000
)

// Config contains all narrator settings.
type Config struct {
	Engine  string  `yaml:"engine" env:"ENGINE"`
	Voice   string  `yaml:"voice" env:"VOICE"`
	Speed   float64 `yaml:"speed" env:"SPEED"`
	Workers int     `yaml:"workers" env:"WORKERS"`

	// Noise is the header/footer filter mode: clean, dim or off.
	Noise string `yaml:"noise" env:"NOISE"`
	// SSML makes standalone dialogue carry a break tag.
	SSML bool `yaml:"ssml" env:"SSML"`
	// RulesFile is a YAML or TOML pronunciation rule file.
	RulesFile string `yaml:"rules_file" env:"RULES_FILE"`

	// Pauses maps punctuation classes to milliseconds.
	Pauses map[string]int `yaml:"pauses"`

	Cache CacheConfig `yaml:"cache" envPrefix:"CACHE_"`
	Piper PiperConfig `yaml:"piper" envPrefix:"PIPER_"`
	HTTP  HTTPConfig  `yaml:"http" envPrefix:"HTTP_"`
}

// CacheConfig contains the audio cache settings.
type CacheConfig struct {
	Disabled         bool   `yaml:"disabled" env:"DISABLED"`
	Dir              string `yaml:"dir" env:"DIR"`
	MaxSizeMB        int    `yaml:"max_size" env:"MAX_SIZE"`
	MemoryMB         int    `yaml:"memory_size" env:"MEMORY_SIZE"`
	CompressionLevel int    `yaml:"compression_level" env:"COMPRESSION_LEVEL"`
}

// PiperConfig contains Piper engine settings.
type PiperConfig struct {
	Binary     string        `yaml:"binary" env:"BINARY"`
	Model      string        `yaml:"model" env:"MODEL"`
	ConfigPath string        `yaml:"config_path" env:"CONFIG_PATH"`
	Speaker    int           `yaml:"speaker" env:"SPEAKER"`
	SampleRate int           `yaml:"sample_rate" env:"SAMPLE_RATE"`
	Timeout    time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// HTTPConfig contains speech server settings.
type HTTPConfig struct {
	URL               string        `yaml:"url" env:"URL"`
	Model             string        `yaml:"model" env:"MODEL"`
	APIKey            string        `yaml:"api_key" env:"API_KEY"`
	SampleRate        int           `yaml:"sample_rate" env:"SAMPLE_RATE"`
	Timeout           time.Duration `yaml:"timeout" env:"TIMEOUT"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"REQUESTS_PER_MINUTE"`
}

// DefaultConfig returns a Config with sensible defaults. cacheDir is used
// for the audio cache.
func DefaultConfig(cacheDir string) Config {
	pauses := make(map[string]int)
	for class, ms := range plan.DefaultPauseSettings() {
		pauses[string(class)] = ms
	}
	return Config{
		Engine:  string(tts.EngineMock),
		Voice:   tts.DefaultVoice,
		Speed:   tts.DefaultSpeed,
		Workers: dispatch.DefaultWorkers,
		Noise:   string(noise.ModeOff),
		Pauses:  pauses,
		Cache:   DefaultCacheConfig(cacheDir),
		Piper:   DefaultPiperConfig(),
		HTTP:    DefaultHTTPConfig(),
	}
}

// DefaultCacheConfig returns the default cache settings.
func DefaultCacheConfig(dir string) CacheConfig {
	return CacheConfig{
		Dir:              dir,
		MaxSizeMB:        int(cache.DefaultMaxBytes >> 20),
		MemoryMB:         int(cache.DefaultMemoryBytes >> 20),
		CompressionLevel: cache.DefaultCompressionLevel,
	}
}

// DefaultPiperConfig returns the default Piper settings.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:     "piper",
		Speaker:    -1,
		SampleRate: 22050,
		Timeout:    30 * time.Second,
	}
}

// DefaultHTTPConfig returns the default speech server settings.
func DefaultHTTPConfig() HTTPConfig {
	return HTTPConfig{
		URL:               "http://localhost:8880",
		Model:             "kokoro",
		SampleRate:        24000,
		Timeout:           60 * time.Second,
		RequestsPerMinute: 600,
	}
}

// Validate checks the configuration and normalizes the engine name.
func (c *Config) Validate() error {
	engine, err := tts.ParseEngineType(c.Engine)
	if err != nil {
		return err
	}
	c.Engine = string(engine)

	if err := tts.ValidateSpeed(c.Speed); err != nil {
		return fmt.Errorf("speed must be between %.1f and %.1f, got %.2f", tts.MinSpeed, tts.MaxSpeed, c.Speed)
	}

	if c.Workers < 1 || c.Workers > MaxWorkers {
		return fmt.Errorf("workers must be between 1 and %d, got %d", MaxWorkers, c.Workers)
	}

	if _, err := noise.ParseMode(c.Noise); err != nil {
		return err
	}

	known := []string{
		string(plan.Comma), string(plan.Period), string(plan.Question), string(plan.Exclamation),
		string(plan.Colon), string(plan.Semicolon), string(plan.Newline),
	}
	for class, ms := range c.Pauses {
		if !slices.Contains(known, class) {
			return fmt.Errorf("unknown pause class %q: must be one of %v", class, known)
		}
		if ms < 0 {
			return fmt.Errorf("pause for %s must not be negative, got %d", class, ms)
		}
	}

	if c.RulesFile != "" {
		if ext := strings.ToLower(filepath.Ext(c.RulesFile)); ext != ".yaml" && ext != ".yml" && ext != ".toml" {
			return fmt.Errorf("rules file %q: use .yaml, .yml or .toml", c.RulesFile)
		}
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}

	switch engine {
	case tts.EnginePiper:
		if err := c.Piper.Validate(); err != nil {
			return fmt.Errorf("piper: %w", err)
		}
	case tts.EngineHTTP:
		if err := c.HTTP.Validate(); err != nil {
			return fmt.Errorf("http: %w", err)
		}
	}
	return nil
}

// Validate checks the cache settings.
func (c *CacheConfig) Validate() error {
	if c.Disabled {
		return nil
	}
	if c.Dir == "" {
		return errors.New("directory is required")
	}
	if c.MaxSizeMB < 1 || c.MaxSizeMB > MaxCacheSizeMB {
		return fmt.Errorf("max_size must be between 1 and %d MB, got %d", MaxCacheSizeMB, c.MaxSizeMB)
	}
	if c.MemoryMB < 0 {
		return fmt.Errorf("memory_size must not be negative, got %d", c.MemoryMB)
	}
	if c.CompressionLevel < 0 || c.CompressionLevel > 22 {
		return fmt.Errorf("compression_level must be between 0 and 22, got %d", c.CompressionLevel)
	}
	return nil
}

// Validate checks the Piper settings.
func (c *PiperConfig) Validate() error {
	if c.Model == "" {
		return errors.New("model is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// Validate checks the speech server settings.
func (c *HTTPConfig) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative, got %d", c.RequestsPerMinute)
	}
	return nil
}

// PauseSettings returns the configured pauses keyed by class.
func (c *Config) PauseSettings() plan.PauseSettings {
	out := make(plan.PauseSettings, len(c.Pauses))
	for class, ms := range c.Pauses {
		out[plan.Class(class)] = ms
	}
	return out
}

// NoiseMode returns the parsed noise filter mode.
func (c *Config) NoiseMode() noise.Mode {
	m, _ := noise.ParseMode(c.Noise)
	return m
}

// CacheConfig converts the cache settings for cache.New.
func (c *CacheConfig) CacheConfig() cache.Config {
	return cache.Config{
		Dir:              c.Dir,
		MaxBytes:         int64(c.MaxSizeMB) << 20,
		MemoryBytes:      int64(c.MemoryMB) << 20,
		CompressionLevel: c.CompressionLevel,
	}
}
