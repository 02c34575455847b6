package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/localreader/narrator/internal/export"
	"github.com/localreader/narrator/internal/noise"
	"github.com/localreader/narrator/internal/pacing"
)

var (
	exportOutput    string
	exportPacing    bool
	exportSkipFront bool

	exportCmd = &cobra.Command{
		Use:   "export SOURCE",
		Short: "Render a whole document to one WAV file",
		Long: paragraph(fmt.Sprintf("\n%s a document paragraph by paragraph. Interrupting the export still writes the audio produced so far.",
			keyword("Export"))),
		Example: paragraph("narrator export book.txt -o book.wav\nnarrator export --pacing --noise clean chapter.md"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runExport,
	}
)

func runExport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	doc, err := readDocument(ctx, args)
	if err != nil {
		return err
	}

	pages := noise.CleanPages(doc.Pages, cfg.NoiseMode())
	if exportSkipFront {
		if start := noise.FindContentStart(pages, noise.DefaultMaxScan); start > 0 {
			log.Info("skipping front matter", "pages", start)
			pages = pages[start:]
		}
	}

	if exportOutput == "" {
		exportOutput = outputName(doc.Name)
	}

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	exporter := export.New(s.svc,
		export.WithLogger(log.Default()),
		export.WithClassifier(pacing.NewClassifier(pacing.WithSSML(cfg.SSML))),
	)

	showProgress := term.IsTerminal(int(os.Stderr.Fd()))
	start := time.Now()
	res, err := exporter.Export(ctx, pages, exportOutput, export.Options{
		Voice:  cfg.Voice,
		Speed:  cfg.Speed,
		Rules:  s.rules,
		Pacing: exportPacing,
		Progress: func(done, total int) {
			if showProgress {
				fmt.Fprintf(os.Stderr, "\r%s %d/%d", faint("exporting"), done, total)
			}
		},
	})
	if showProgress {
		fmt.Fprintln(os.Stderr)
	}

	if wantJSON() && res.Path != "" {
		if jerr := writeJSON(os.Stdout, res); jerr != nil {
			return jerr
		}
	} else if res.Path != "" {
		printExportSummary(res, time.Since(start))
	}

	if errors.Is(err, export.ErrCanceled) && res.Partial {
		fmt.Fprintln(os.Stderr, warning("Export interrupted, partial audio was written to "+res.Path))
	}
	return err
}

func printExportSummary(res export.Result, elapsed time.Duration) {
	size := ""
	if st, err := os.Stat(res.Path); err == nil {
		size = humanize.Bytes(uint64(st.Size())) //nolint:gosec
	}
	fmt.Fprintf(os.Stderr, "%s %s (%s, %s of audio in %s)\n",
		keyword("Wrote"), res.Path, size, res.Duration.Round(time.Second), elapsed.Round(time.Millisecond))
	fmt.Fprintln(os.Stderr, faint(fmt.Sprintf("%d chunks: %d spoken, %d from cache, %d skipped, %d failed",
		res.Chunks, res.Spoken, res.Cached, res.Skipped, res.Failed)))
	if res.Failed > 0 {
		fmt.Fprintln(os.Stderr, failure(fmt.Sprintf("%d chunks failed, see the log for details", res.Failed)))
	}
}

// outputName derives the WAV file name from the source name.
func outputName(name string) string {
	base := filepath.Base(name)
	if name == "" || base == "." || base == string(filepath.Separator) {
		return "narrator.wav"
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".wav"
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: source name with .wav)")
	exportCmd.Flags().BoolVar(&exportPacing, "pacing", false, "pause by paragraph type instead of a fixed gap")
	exportCmd.Flags().BoolVar(&exportSkipFront, "skip-front-matter", false, "start at the first page with real content")
}
