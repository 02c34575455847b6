package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/localreader/narrator/internal/tts"
)

type voiceInfo struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the voices of the selected engine",
	Example: paragraph("narrator voices\nnarrator voices --engine http emma"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer engine.Close() //nolint:errcheck

		voices := engine.Voices()
		if len(voices) == 0 {
			fmt.Fprintf(os.Stderr, "The %s engine accepts any voice id.\n", engine.Info().Name)
			return nil
		}

		if len(args) == 1 {
			voices = tts.SuggestVoices(args[0], voices, 10)
		} else {
			voices = slices.Sorted(slices.Values(voices))
		}

		list := make([]voiceInfo, len(voices))
		for i, v := range voices {
			list[i] = voiceInfo{Voice: v, Language: tts.LanguageForVoice(v)}
		}

		if wantJSON() {
			return writeJSON(os.Stdout, list)
		}
		for _, v := range list {
			name := cell(v.Voice, 16)
			if v.Voice == cfg.Voice {
				name = keyword(name)
			}
			fmt.Printf("%s %s\n", name, faint(v.Language))
		}
		return nil
	},
}
