package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
)

// Override adjusts a loaded Config before validation. Command line flags
// are applied this way so that they win over the environment.
type Override func(*Config)

// Load builds a Config from defaults, then the keys set in v, then
// NARRATOR_ environment variables, then overrides, and validates the result.
func Load(v *viper.Viper, cacheDir string, overrides ...Override) (Config, error) {
	cfg := DefaultConfig(cacheDir)
	if v != nil {
		if err := loadViper(v, &cfg); err != nil {
			return cfg, err
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("error parsing environment: %w", err)
	}

	for _, o := range overrides {
		o(&cfg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadViper(v *viper.Viper, cfg *Config) error {
	if v.IsSet("engine") {
		cfg.Engine = v.GetString("engine")
	}
	if v.IsSet("voice") {
		cfg.Voice = v.GetString("voice")
	}
	if v.IsSet("speed") {
		cfg.Speed = v.GetFloat64("speed")
	}
	if v.IsSet("workers") {
		cfg.Workers = v.GetInt("workers")
	}
	if v.IsSet("noise") {
		cfg.Noise = v.GetString("noise")
	}
	if v.IsSet("ssml") {
		cfg.SSML = v.GetBool("ssml")
	}
	if v.IsSet("rules_file") {
		cfg.RulesFile = v.GetString("rules_file")
	}
	if v.IsSet("pauses") {
		pauses := map[string]int{}
		if err := v.UnmarshalKey("pauses", &pauses); err != nil {
			return fmt.Errorf("unable to read pauses: %w", err)
		}
		for class, ms := range pauses {
			cfg.Pauses[class] = ms
		}
	}

	loadCache(v, &cfg.Cache)
	loadPiper(v, &cfg.Piper)
	loadHTTP(v, &cfg.HTTP)
	return nil
}

func loadCache(v *viper.Viper, c *CacheConfig) {
	if v.IsSet("cache.disabled") {
		c.Disabled = v.GetBool("cache.disabled")
	}
	if v.IsSet("cache.dir") {
		c.Dir = v.GetString("cache.dir")
	}
	if v.IsSet("cache.max_size") {
		c.MaxSizeMB = v.GetInt("cache.max_size")
	}
	if v.IsSet("cache.memory_size") {
		c.MemoryMB = v.GetInt("cache.memory_size")
	}
	if v.IsSet("cache.compression_level") {
		c.CompressionLevel = v.GetInt("cache.compression_level")
	}
}

func loadPiper(v *viper.Viper, c *PiperConfig) {
	if v.IsSet("piper.binary") {
		c.Binary = v.GetString("piper.binary")
	}
	if v.IsSet("piper.model") {
		c.Model = v.GetString("piper.model")
	}
	if v.IsSet("piper.config_path") {
		c.ConfigPath = v.GetString("piper.config_path")
	}
	if v.IsSet("piper.speaker") {
		c.Speaker = v.GetInt("piper.speaker")
	}
	if v.IsSet("piper.sample_rate") {
		c.SampleRate = v.GetInt("piper.sample_rate")
	}
	if v.IsSet("piper.timeout") {
		c.Timeout = v.GetDuration("piper.timeout")
	}
}

func loadHTTP(v *viper.Viper, c *HTTPConfig) {
	if v.IsSet("http.url") {
		c.URL = v.GetString("http.url")
	}
	if v.IsSet("http.model") {
		c.Model = v.GetString("http.model")
	}
	if v.IsSet("http.api_key") {
		c.APIKey = v.GetString("http.api_key")
	}
	if v.IsSet("http.sample_rate") {
		c.SampleRate = v.GetInt("http.sample_rate")
	}
	if v.IsSet("http.timeout") {
		c.Timeout = v.GetDuration("http.timeout")
	}
	if v.IsSet("http.requests_per_minute") {
		c.RequestsPerMinute = v.GetInt("http.requests_per_minute")
	}
}
