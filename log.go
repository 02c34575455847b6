package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, appName).CacheDir()
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	return filepath.Join(dir, appName+".log"), nil
}

// setupLog sends warnings to stderr, or everything to a log file in the
// cache directory when NARRATOR_DEBUG is set.
func setupLog() (func() error, error) {
	if os.Getenv("NARRATOR_DEBUG") == "" {
		log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{
			Level:  log.WarnLevel,
			Prefix: appName,
		}))
		return func() error { return nil }, nil
	}

	logFile, err := getLogFilePath()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return nil, err //nolint:wrapcheck
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	log.SetDefault(log.NewWithOptions(f, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
	}))
	return f.Close, nil
}
