// Package export renders whole documents to a single WAV file.
package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/document"
	"github.com/localreader/narrator/internal/noise"
	"github.com/localreader/narrator/internal/pacing"
	"github.com/localreader/narrator/internal/pronounce"
	"github.com/localreader/narrator/internal/synth"
)

// ChunkGapMs is the silence appended after every spoken chunk when pacing is
// off.
const ChunkGapMs = 300

var (
	// ErrCanceled is wrapped by the error returned from a canceled export.
	ErrCanceled = errors.New("export canceled")
	// ErrNoAudio is returned when no chunk produced audio.
	ErrNoAudio = errors.New("no audio produced")
)

var alnum = regexp.MustCompile(`[A-Za-z0-9]`)

// Synthesizer turns one request into WAV audio. *synth.Service implements it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (*synth.Response, error)
}

// Options controls a single export.
type Options struct {
	Voice string
	Speed float64
	Rules pronounce.RuleSet
	// Pacing takes chunk boundaries and pauses from the paragraph classifier
	// instead of the fixed gap.
	Pacing bool
	// Progress is called after every chunk with the number of chunks handled
	// so far and the total.
	Progress func(done, total int)
}

// Result describes a finished or interrupted export.
type Result struct {
	JobID    string        `json:"job_id"`
	Path     string        `json:"path,omitempty"`
	Chunks   int           `json:"chunks"`
	Spoken   int           `json:"spoken"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Cached   int           `json:"cached"`
	Duration time.Duration `json:"duration"`
	Partial  bool          `json:"partial"`
}

// unit is one chunk of the export and the pause that follows it.
type unit struct {
	text    string
	pauseMs float64
}

// Exporter renders documents through a Synthesizer.
type Exporter struct {
	synth      Synthesizer
	classifier *pacing.Classifier
	logger     *log.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClassifier sets the classifier used in pacing mode.
func WithClassifier(c *pacing.Classifier) Option {
	return func(e *Exporter) {
		if c != nil {
			e.classifier = c
		}
	}
}

// New creates an Exporter.
func New(s Synthesizer, opts ...Option) *Exporter {
	e := &Exporter{
		synth:      s,
		classifier: pacing.NewClassifier(),
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export synthesizes pages and writes the audio to path. Cancellation is
// checked between chunks; the audio produced before it is still written and
// the returned error wraps ErrCanceled.
func (e *Exporter) Export(ctx context.Context, pages []string, path string, opts Options) (Result, error) {
	res := Result{JobID: uuid.NewString()}
	logger := e.logger.With("job", res.JobID)

	units := e.units(pages, opts.Pacing)
	res.Chunks = len(units)
	logger.Info("export started", "chunks", len(units), "pacing", opts.Pacing)

	var (
		out      audio.Buffer
		canceled bool
	)
	for i, u := range units {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		if !alnum.MatchString(noise.StripMarkers(u.text)) {
			res.Skipped++
			e.progress(opts, i+1, len(units))
			continue
		}

		resp, err := e.synth.Synthesize(ctx, synth.Request{
			Text:  u.text,
			Voice: opts.Voice,
			Speed: opts.Speed,
			Rules: opts.Rules,
		})
		if err != nil {
			if ctx.Err() != nil {
				canceled = true
				break
			}
			res.Failed++
			logger.Warn("chunk failed", "chunk", i, "err", err)
			e.progress(opts, i+1, len(units))
			continue
		}

		buf, err := audio.DecodeWAV(resp.WAV)
		if err != nil {
			res.Failed++
			logger.Warn("chunk audio unreadable", "chunk", i, "err", err)
			e.progress(opts, i+1, len(units))
			continue
		}

		if out.SampleRate == 0 {
			out.SampleRate = buf.SampleRate
		} else if buf.SampleRate != out.SampleRate {
			logger.Warn("sample rate mismatch", "chunk", i, "rate", buf.SampleRate, "want", out.SampleRate)
		}
		out.Append(buf.Samples)
		out.Append(audio.Silence(u.pauseMs, out.SampleRate))

		res.Spoken++
		if resp.Cached {
			res.Cached++
		}
		e.progress(opts, i+1, len(units))
	}

	if out.Len() == 0 {
		if canceled {
			return res, fmt.Errorf("%w before any audio was produced", ErrCanceled)
		}
		return res, ErrNoAudio
	}

	if err := writeFile(path, out); err != nil {
		return res, err
	}
	res.Path = path
	res.Duration = out.Duration()
	res.Partial = canceled

	if canceled {
		logger.Warn("export canceled, partial audio written", "path", path, "spoken", res.Spoken)
		return res, fmt.Errorf("%w after %d of %d chunks: %w", ErrCanceled, res.Spoken+res.Skipped+res.Failed, res.Chunks, context.Cause(ctx))
	}
	logger.Info("export finished", "path", path, "spoken", res.Spoken, "failed", res.Failed, "duration", res.Duration)
	return res, nil
}

// units splits pages into chunks with their trailing pause.
func (e *Exporter) units(pages []string, paced bool) []unit {
	if !paced {
		chunks := document.Chunks(pages)
		units := make([]unit, len(chunks))
		for i, c := range chunks {
			units[i] = unit{text: c, pauseMs: ChunkGapMs}
		}
		return units
	}

	segments := e.classifier.Process(strings.Join(pages, "\n"))
	units := make([]unit, len(segments))
	for i, s := range segments {
		units[i] = unit{text: s.Text, pauseMs: s.PauseAfter * 1000}
	}
	return units
}

func (e *Exporter) progress(opts Options, done, total int) {
	if opts.Progress != nil {
		opts.Progress(done, total)
	}
}

func writeFile(path string, b audio.Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create output: %w", err)
	}
	if err := audio.WriteWAV(f, b); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to write audio: %w", err)
	}
	return f.Close()
}
