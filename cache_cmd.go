package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	pruneOlderThan time.Duration

	cacheCmd = &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the audio cache",
		Args:  cobra.NoArgs,
	}

	cacheStatsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Show cache usage",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("the cache is disabled")
			}
			defer store.Close() //nolint:errcheck

			stats := store.Stats()
			if wantJSON() {
				return writeJSON(os.Stdout, stats)
			}

			row := func(k, v string) { fmt.Printf("%s %s\n", faint(cell(k, 12)), v) }
			row("directory", stats.Dir)
			row("entries", humanize.Comma(int64(stats.Entries)))
			row("size", fmt.Sprintf("%s of %s (%s on disk)",
				humanize.Bytes(uint64(stats.Size)), humanize.Bytes(uint64(stats.MaxBytes)), humanize.Bytes(uint64(stats.StoredSize)))) //nolint:gosec
			row("memory", fmt.Sprintf("%d entries, %s", stats.MemoryEntries, humanize.Bytes(uint64(stats.MemorySize)))) //nolint:gosec
			if !stats.Oldest.IsZero() {
				row("oldest", humanize.Time(stats.Oldest))
				row("newest", humanize.Time(stats.Newest))
			}
			return nil
		},
	}

	cacheClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached clip",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("the cache is disabled")
			}
			defer store.Close() //nolint:errcheck

			n, size, err := store.ClearAll()
			if err != nil {
				return fmt.Errorf("unable to clear cache: %w", err)
			}
			fmt.Printf("%s %d clips (%s)\n", keyword("Removed"), n, humanize.Bytes(uint64(size))) //nolint:gosec
			return nil
		},
	}

	cachePruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete clips not used for a while",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			store, err := openCache(cfg)
			if err != nil {
				return err
			}
			if store == nil {
				return errors.New("the cache is disabled")
			}
			defer store.Close() //nolint:errcheck

			n := store.Prune(pruneOlderThan)
			fmt.Printf("%s %d clips unused for %s\n", keyword("Removed"), n, pruneOlderThan)
			return nil
		},
	}
)

func init() {
	cachePruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 30*24*time.Hour, "remove clips last used before this long ago")
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd, cachePruneCmd)
}
