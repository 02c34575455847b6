package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/localreader/narrator/internal/noise"
	"github.com/localreader/narrator/internal/plan"
)

var planCmd = &cobra.Command{
	Use:   "plan [SOURCE]",
	Short: "Show the speech and silence items for a text",
	Long: paragraph(fmt.Sprintf("\n%s the text at its punctuation into speech items and the silences between them.",
		keyword("Split"))),
	Example: paragraph("narrator plan notes.txt\necho 'Wait, what?' | narrator plan"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readText(cmd.Context(), args)
		if err != nil {
			return err
		}

		p := plan.New(noise.StripMarkers(text), cfg.PauseSettings())

		if wantJSON() {
			return writeJSON(os.Stdout, p)
		}

		width := termWidth()
		for _, item := range p {
			switch item.Kind {
			case plan.Speech:
				fmt.Printf("%s %s\n", keyword(cell(item.Kind.String(), 8)), preview(item.Text, width-9))
			case plan.Silence:
				fmt.Printf("%s %s\n", faint(cell(item.Kind.String(), 8)), faint(fmt.Sprint(time.Duration(item.DurationMs)*time.Millisecond)))
			}
		}
		fmt.Println()
		fmt.Println(faint(fmt.Sprintf("%d speech items, %s of silence",
			p.SpeechCount(), time.Duration(p.TotalSilenceMs())*time.Millisecond)))
		return nil
	},
}
