package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localreader/narrator/internal/noise"
)

var (
	noiseApply bool

	noiseCmd = &cobra.Command{
		Use:   "noise [SOURCE]",
		Short: "Find repeating page headers and footers",
		Long: paragraph(fmt.Sprintf("\n%s running headers, footers and page numbers by comparing each page with its neighbours. With --apply the filtered pages are printed instead.",
			keyword("Detect"))),
		Example: paragraph("narrator noise book.txt\nnarrator noise --apply --noise dim book.txt"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runNoise,
	}
)

type pageNoise struct {
	Page    int      `json:"page"`
	Headers []string `json:"headers"`
	Footers []string `json:"footers"`
}

func runNoise(cmd *cobra.Command, args []string) error {
	doc, err := readDocument(cmd.Context(), args)
	if err != nil {
		return err
	}

	if noiseApply {
		mode := cfg.NoiseMode()
		if mode == noise.ModeOff {
			mode = noise.ModeClean
		}
		_, err := fmt.Fprint(os.Stdout, strings.Join(noise.CleanPages(doc.Pages, mode), "\f"))
		return err //nolint:wrapcheck
	}

	profiles := noise.DetectAll(doc.Pages)
	report := make([]pageNoise, 0, len(profiles))
	for i, p := range profiles {
		if p.Empty() {
			continue
		}
		report = append(report, pageNoise{Page: i + 1, Headers: p.Headers, Footers: p.Footers})
	}
	start := noise.FindContentStart(doc.Pages, noise.DefaultMaxScan)

	if wantJSON() {
		return writeJSON(os.Stdout, struct {
			Pages        int         `json:"pages"`
			ContentStart int         `json:"content_start"`
			Noise        []pageNoise `json:"noise"`
		}{len(doc.Pages), start, report})
	}

	width := termWidth()
	for _, entry := range report {
		fmt.Println(bold(fmt.Sprintf("page %d", entry.Page)))
		for _, h := range entry.Headers {
			fmt.Printf("  %s %s\n", faint("header"), preview(h, width-10))
		}
		for _, f := range entry.Footers {
			fmt.Printf("  %s %s\n", faint("footer"), preview(f, width-10))
		}
	}
	fmt.Println(faint(fmt.Sprintf("%d pages, %d with noise, content starts on page %d",
		len(doc.Pages), len(report), start+1)))
	return nil
}

func init() {
	noiseCmd.Flags().BoolVar(&noiseApply, "apply", false, "print the filtered pages")
}
