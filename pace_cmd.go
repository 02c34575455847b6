package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/localreader/narrator/internal/noise"
	"github.com/localreader/narrator/internal/pacing"
)

var paceCmd = &cobra.Command{
	Use:   "pace [SOURCE]",
	Short: "Classify paragraphs and show the pause after each",
	Long: paragraph(fmt.Sprintf("\n%s every paragraph as header, dialogue or narration and print the pause that follows it.",
		keyword("Classify"))),
	Example: paragraph("narrator pace chapter.txt\ncat chapter.txt | narrator pace --json"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd.Context(), args)
		if err != nil {
			return err
		}

		text := noise.StripMarkers(strings.Join(noise.CleanPages(doc.Pages, cfg.NoiseMode()), "\n"))
		classifier := pacing.NewClassifier(pacing.WithSSML(cfg.SSML))
		segments, stats := classifier.ProcessWithStats(text)

		if wantJSON() {
			return writeJSON(os.Stdout, struct {
				Segments []pacing.Segment `json:"segments"`
				Stats    pacing.Stats     `json:"stats"`
			}{segments, stats})
		}

		width := termWidth()
		for i, s := range segments {
			kind := kindStyles[s.Type].Render(cell(string(s.Type), 9))
			pause := cell(fmt.Sprintf("%.1fs", s.PauseAfter), 5)
			fmt.Printf("%s %s %s %s\n", faint(cell(fmt.Sprint(i+1), 4)), kind, pause, preview(s.Text, width-22))
		}
		fmt.Println()
		fmt.Println(faint(fmt.Sprintf("%d paragraphs: %d dialogue, %d narration, %d headers",
			stats.Total, stats.Dialogue, stats.Narration, stats.Headers)))
		return nil
	},
}
