// Package main provides the entry point for the narrator CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/localreader/narrator/internal/config"
)

const appName = "narrator"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	outputJSON   bool
	useClipboard bool

	// flag values, applied over the loaded configuration when set
	flagEngine  string
	flagVoice   string
	flagSpeed   float64
	flagWorkers int
	flagNoise   string
	flagRules   string
	flagSSML    bool
	flagNoCache bool

	// cfg is the validated configuration for the running command.
	cfg config.Config

	rootCmd = &cobra.Command{
		Use:   "narrator",
		Short: "Read documents aloud with natural pacing",
		Long: paragraph(
			fmt.Sprintf("\nTurn documents into speech %s.", keyword("that breathes")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

// validateOptions loads the configuration for the command being run.
func validateOptions(cmd *cobra.Command) error {
	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	dir, err := defaultCacheDir()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	loaded, err := config.Load(viper.GetViper(), dir, func(c *config.Config) {
		if flags.Changed("engine") {
			c.Engine = flagEngine
		}
		if flags.Changed("voice") {
			c.Voice = flagVoice
		}
		if flags.Changed("speed") {
			c.Speed = flagSpeed
		}
		if flags.Changed("workers") {
			c.Workers = flagWorkers
		}
		if flags.Changed("noise") {
			c.Noise = flagNoise
		}
		if flags.Changed("rules") {
			c.RulesFile = flagRules
		}
		if flags.Changed("ssml") {
			c.SSML = flagSSML
		}
		if flags.Changed("no-cache") {
			c.Cache.Disabled = flagNoCache
		}
		c.Cache.Dir = expandPath(c.Cache.Dir)
		c.RulesFile = expandPath(c.RulesFile)
		c.Piper.Model = expandPath(c.Piper.Model)
		c.Piper.ConfigPath = expandPath(c.Piper.ConfigPath)
	})
	if err != nil {
		return err
	}
	cfg = loaded

	log.Debug("configuration loaded", "engine", cfg.Engine, "voice", cfg.Voice, "config", viper.ConfigFileUsed())
	return nil
}

func defaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	pf.StringVarP(&flagEngine, "engine", "e", "", "speech engine: mock, piper or http")
	pf.StringVar(&flagVoice, "voice", "", "voice id, e.g. af_sky")
	pf.Float64VarP(&flagSpeed, "speed", "s", 0, "speaking speed multiplier (0.5 to 2.0)")
	pf.IntVarP(&flagWorkers, "workers", "w", 0, "concurrent synthesis calls")
	pf.StringVar(&flagNoise, "noise", "", "header and footer filter: clean, dim or off")
	pf.StringVar(&flagRules, "rules", "", "pronunciation rule file (.yaml or .toml)")
	pf.BoolVar(&flagSSML, "ssml", false, "mark standalone dialogue with SSML breaks")
	pf.BoolVar(&flagNoCache, "no-cache", false, "do not read or write the audio cache")
	pf.BoolVar(&outputJSON, "json", false, "print JSON even on a terminal")
	pf.BoolVar(&useClipboard, "clipboard", false, "read the source text from the clipboard")

	rootCmd.AddCommand(
		paceCmd,
		planCmd,
		synthCmd,
		noiseCmd,
		exportCmd,
		cacheCmd,
		voicesCmd,
		configCmd,
		manCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, appName)
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, appName)}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		return
	}

	path := filepath.Join(dirs[0], appName+".yml")
	if err := writeDefaultConfig(path); err != nil {
		log.Error("Could not create default configuration", "error", err)
		return
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		log.Warn("Could not parse configuration file", "err", err)
	}
}

func defaultConfigDir() (string, error) {
	dirs, err := gap.NewScope(gap.User, appName).ConfigDirs()
	if err != nil {
		return "", fmt.Errorf("unable to find configuration directory: %w", err)
	}
	if len(dirs) == 0 {
		return "", errors.New("no configuration directory available")
	}
	return dirs[0], nil
}
