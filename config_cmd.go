package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech engine: mock, piper or http
engine: "mock"
# voice id; the two letter prefix selects the language (af_, bf_, jf_, ...)
voice: "af_sky"
# speaking speed multiplier (0.5 to 2.0)
speed: 1.0
# concurrent synthesis calls for paced speech
workers: 4
# header and footer filter: clean, dim or off
noise: "off"
# mark standalone dialogue with SSML breaks instead of a trailing ellipsis
ssml: false
# pronunciation rules (.yaml or .toml)
# rules_file: "~/.config/narrator/rules.yml"

# pause after each punctuation class, in milliseconds
pauses:
  comma: 300
  period: 600
  question: 600
  exclamation: 600
  colon: 400
  semicolon: 400
  newline: 800

# audio cache
cache:
  disabled: false
  # dir: "~/.cache/narrator/audio"
  # size limit in MB
  max_size: 200
  # in-memory front in MB
  memory_size: 32
  # zstd level, 0 to disable compression
  compression_level: 3

# Piper engine
piper:
  binary: "piper"
  # model: "~/voices/en_US-lessac-medium.onnx"
  # config_path: "~/voices/en_US-lessac-medium.onnx.json"
  speaker: -1
  sample_rate: 22050
  timeout: "30s"

# speech server with an OpenAI compatible /v1/audio/speech endpoint
http:
  url: "http://localhost:8880"
  model: "kokoro"
  # api_key: ""
  sample_rate: 24000
  timeout: "60s"
  requests_per_minute: 600
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// editing must work even when the current file does not validate
	PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	if configFile == "" {
		dir, err := defaultConfigDir()
		if err != nil {
			return err
		}
		configFile = filepath.Join(dir, appName+".yml")
	}
	return writeDefaultConfig(configFile)
}

// writeDefaultConfig creates file with the default settings unless it
// already exists.
func writeDefaultConfig(file string) error {
	if ext := path.Ext(file); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(filepath.Dir(file), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
