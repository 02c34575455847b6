// Package dispatch synthesizes the speech items of a plan concurrently and
// reassembles them, with the plan's silences, into one buffer.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/plan"
	"github.com/localreader/narrator/internal/tts"
)

// DefaultWorkers is the default number of concurrent synthesis calls.
const DefaultWorkers = 4

// emptyFallbackMs is the length of the silence returned when no item
// produced audio.
const emptyFallbackMs = 100

// Result records the outcome of one speech item.
type Result struct {
	Index    int
	Text     string
	Samples  int
	Duration time.Duration
	Err      error
}

// OK reports whether the item produced audio.
func (r Result) OK() bool {
	return r.Err == nil
}

// Dispatcher runs speech items through a tts.Synthesizer with bounded
// concurrency.
type Dispatcher struct {
	synth   tts.Synthesizer
	workers int
	logger  *log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers sets the number of concurrent synthesis calls. Values below 1
// are ignored.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithLogger sets the logger used to report item failures.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates a Dispatcher around synth.
func New(synth tts.Synthesizer, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		synth:   synth,
		workers: DefaultWorkers,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Workers returns the concurrency bound.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Execute synthesizes every speech item of p and concatenates the results in
// plan order, inserting silence items as zero samples. Failed items are
// logged, reported in the returned results and left out of the audio.
//
// The returned error is non-nil only when ctx ends before all items finish.
func (d *Dispatcher) Execute(ctx context.Context, p plan.Plan, voice string, speed float64, language string) (audio.Buffer, []Result, error) {
	clips := make(map[int]audio.Buffer, p.SpeechCount())
	results := make([]Result, 0, p.SpeechCount())
	slots := make(map[int]int, p.SpeechCount())
	for pos, item := range p {
		if item.Kind == plan.Speech {
			slots[pos] = len(results)
			results = append(results, Result{Index: item.Index, Text: item.Text})
		}
	}

	buffers := make([]audio.Buffer, len(results))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for pos, item := range p {
		if item.Kind != plan.Speech {
			continue
		}
		slot := slots[pos]
		req := tts.Request{Text: item.Text, Voice: voice, Speed: speed, Language: language}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[slot].Err = err
				return nil
			}
			start := time.Now()
			buf, err := d.synth.Synthesize(gctx, req)
			results[slot].Duration = time.Since(start)
			if err == nil && buf.Len() == 0 {
				err = errors.New("backend returned no audio")
			}
			if err != nil {
				results[slot].Err = err
				return nil
			}
			results[slot].Samples = buf.Len()
			buffers[slot] = buf
			return nil
		})
	}
	_ = g.Wait()

	for pos, item := range p {
		if item.Kind != plan.Speech {
			continue
		}
		slot := slots[pos]
		r := results[slot]
		if r.Err != nil {
			d.logger.Warn("speech item failed", "index", r.Index, "text", r.Text, "err", r.Err)
			continue
		}
		clips[pos] = buffers[slot]
	}

	out := d.assemble(p, clips)
	if err := ctx.Err(); err != nil {
		return out, results, err
	}
	return out, results, nil
}

// assemble walks p in order, appending each clip and silence.
func (d *Dispatcher) assemble(p plan.Plan, clips map[int]audio.Buffer) audio.Buffer {
	rate := 0
	for pos := range p {
		if clip, ok := clips[pos]; ok {
			rate = clip.SampleRate
			break
		}
	}
	if rate == 0 {
		rate = audio.DefaultSampleRate
	}

	out := audio.Buffer{SampleRate: rate}
	for pos, item := range p {
		switch item.Kind {
		case plan.Speech:
			clip, ok := clips[pos]
			if !ok {
				continue
			}
			if clip.SampleRate != rate {
				d.logger.Warn("sample rate mismatch", "index", item.Index, "rate", clip.SampleRate, "want", rate)
			}
			out.Append(clip.Samples)
		case plan.Silence:
			out.Append(audio.Silence(float64(item.DurationMs), rate))
		}
	}

	if out.Len() == 0 {
		return audio.SilentBuffer(emptyFallbackMs, rate)
	}
	return out
}
