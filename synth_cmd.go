package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/plan"
	"github.com/localreader/narrator/internal/synth"
)

var (
	synthOutput string
	synthPlain  bool

	synthCmd = &cobra.Command{
		Use:   "synth [SOURCE]",
		Short: "Synthesize text to a WAV file",
		Long: paragraph(fmt.Sprintf("\n%s a text with pauses at its punctuation. Results are cached, so repeating a request is instant.",
			keyword("Speak"))),
		Example: paragraph("narrator synth -o hello.wav greeting.txt\necho 'Hello, world.' | narrator synth > hello.wav"),
		Args:    cobra.MaximumNArgs(1),
		RunE:    runSynth,
	}
)

func runSynth(cmd *cobra.Command, args []string) error {
	text, err := readText(cmd.Context(), args)
	if err != nil {
		return err
	}

	toStdout := synthOutput == "-" || (synthOutput == "" && !term.IsTerminal(int(os.Stdout.Fd())))
	if synthOutput == "" && !toStdout {
		synthOutput = "narrator.wav"
	}

	s, err := newSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	var pauses plan.PauseSettings
	if !synthPlain {
		pauses = cfg.PauseSettings()
	}

	resp, err := s.svc.Synthesize(cmd.Context(), synth.Request{
		Text:   text,
		Voice:  cfg.Voice,
		Speed:  cfg.Speed,
		Pauses: pauses,
		Rules:  s.rules,
	})
	if err != nil {
		return err
	}

	if toStdout {
		if _, err := os.Stdout.Write(resp.WAV); err != nil {
			return fmt.Errorf("unable to write audio: %w", err)
		}
	} else if err := os.WriteFile(synthOutput, resp.WAV, 0o644); err != nil { //nolint:gosec
		return fmt.Errorf("unable to write audio: %w", err)
	}

	printSynthSummary(resp, toStdout)
	return nil
}

func printSynthSummary(resp *synth.Response, toStdout bool) {
	var length time.Duration
	if buf, err := audio.DecodeWAV(resp.WAV); err == nil {
		length = buf.Duration().Round(10 * time.Millisecond)
	}

	target := synthOutput
	if toStdout {
		target = "stdout"
	}
	status := "synthesized"
	if resp.Cached {
		status = "from cache"
	}
	fmt.Fprintf(os.Stderr, "%s %s (%s, %s, %s, voice %s)\n",
		keyword("Wrote"), target, humanize.Bytes(uint64(len(resp.WAV))), length, status, resp.Voice)

	if n := resp.Failed(); n > 0 {
		fmt.Fprintln(os.Stderr, warning(fmt.Sprintf("%d of %d speech items failed and were left silent", n, len(resp.Results))))
	}
}

func init() {
	synthCmd.Flags().StringVarP(&synthOutput, "output", "o", "", "output file, - for stdout (default narrator.wav on a terminal)")
	synthCmd.Flags().BoolVar(&synthPlain, "plain", false, "synthesize in one call without punctuation pauses")
}
