package synth

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localreader/narrator/internal/audio"
	"github.com/localreader/narrator/internal/cache"
	"github.com/localreader/narrator/internal/plan"
	"github.com/localreader/narrator/internal/pronounce"
	"github.com/localreader/narrator/internal/tts"
	"github.com/localreader/narrator/internal/tts/engines"
)

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

func newCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(cache.DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// recordingEngine remembers every request it sees.
type recordingEngine struct {
	*engines.MockEngine
	requests chan tts.Request
}

func newRecordingEngine(cfg engines.MockConfig) *recordingEngine {
	return &recordingEngine{
		MockEngine: engines.NewMockEngine(cfg),
		requests:   make(chan tts.Request, 64),
	}
}

func (e *recordingEngine) Synthesize(ctx context.Context, req tts.Request) (audio.Buffer, error) {
	e.requests <- req
	return e.MockEngine.Synthesize(ctx, req)
}

func (e *recordingEngine) texts() []string {
	var out []string
	for {
		select {
		case req := <-e.requests:
			out = append(out, req.Text)
		default:
			return out
		}
	}
}

func TestSynthesize_Direct(t *testing.T) {
	engine := newRecordingEngine(engines.MockConfig{VoiceList: []string{"af_sky", "bf_emma"}})
	svc := New(engine, WithLogger(quietLogger()))

	resp, err := svc.Synthesize(context.Background(), Request{Text: "Hello world", Voice: "bf_emma"})
	require.NoError(t, err)

	assert.False(t, resp.Cached)
	assert.False(t, resp.Paced)
	assert.Equal(t, "bf_emma", resp.Voice)
	assert.Equal(t, "en-gb", resp.Language)
	assert.Equal(t, []string{"Hello world"}, engine.texts())

	buf, err := audio.DecodeWAV(resp.WAV)
	require.NoError(t, err)
	assert.Equal(t, audio.DefaultSampleRate, buf.SampleRate)
	assert.NotZero(t, buf.Len())
}

func TestSynthesize_UnknownVoiceFallsBack(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{VoiceList: []string{"af_sky", "jf_alpha"}})
	svc := New(engine, WithLogger(quietLogger()), WithDefaultVoice("jf_alpha"))

	resp, err := svc.Synthesize(context.Background(), Request{Text: "konnichiwa", Voice: "zz_nobody"})
	require.NoError(t, err)
	assert.Equal(t, "jf_alpha", resp.Voice)
	assert.Equal(t, "ja", resp.Language)
}

func TestSynthesize_Paced(t *testing.T) {
	engine := newRecordingEngine(engines.MockConfig{})
	svc := New(engine, WithLogger(quietLogger()), WithWorkers(2))

	resp, err := svc.Synthesize(context.Background(), Request{
		Text:   "One, two. Three!",
		Pauses: plan.PauseSettings{plan.Comma: 200, plan.Period: 400, plan.Exclamation: 400},
	})
	require.NoError(t, err)

	assert.True(t, resp.Paced)
	assert.Len(t, resp.Results, 3)
	assert.Zero(t, resp.Failed())
	assert.ElementsMatch(t, []string{"One", "two", "Three"}, engine.texts())

	buf, err := audio.DecodeWAV(resp.WAV)
	require.NoError(t, err)
	// three words plus a full second of pauses
	assert.Greater(t, buf.Duration(), time.Second)
}

func TestSynthesize_PausesWithoutPunctuation(t *testing.T) {
	engine := newRecordingEngine(engines.MockConfig{})
	svc := New(engine, WithLogger(quietLogger()))

	resp, err := svc.Synthesize(context.Background(), Request{
		Text:   "no punctuation here",
		Pauses: plan.DefaultPauseSettings(),
	})
	require.NoError(t, err)
	assert.False(t, resp.Paced)
	assert.Equal(t, []string{"no punctuation here"}, engine.texts())
}

func TestSynthesize_PacedFailureLeavesGap(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{FailOn: []string{"bad"}})
	svc := New(engine, WithLogger(quietLogger()))

	resp, err := svc.Synthesize(context.Background(), Request{
		Text:   "good, bad, good",
		Pauses: plan.DefaultPauseSettings(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Failed())
	assert.NotEmpty(t, resp.WAV)
}

func TestSynthesize_Unspeakable(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{})
	svc := New(engine, WithLogger(quietLogger()))

	resp, err := svc.Synthesize(context.Background(), Request{Text: " ... — "})
	require.NoError(t, err)
	assert.Zero(t, engine.Calls())

	buf, err := audio.DecodeWAV(resp.WAV)
	require.NoError(t, err)
	assert.Equal(t, audio.SilenceSamples(silentFallbackMs, audio.DefaultSampleRate), buf.Len())
}

func TestSynthesize_EngineError(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{FailOn: []string{"boom"}})
	svc := New(engine, WithLogger(quietLogger()), WithStore(newCache(t)))

	_, err := svc.Synthesize(context.Background(), Request{Text: "boom"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, tts.ErrSynthesisFailed))
}

func TestSynthesize_Cache(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{})
	store := newCache(t)
	svc := New(engine, WithLogger(quietLogger()), WithStore(store))
	ctx := context.Background()

	first, err := svc.Synthesize(ctx, Request{Text: "Cache me", Speed: 1.2})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, engine.Calls())

	second, err := svc.Synthesize(ctx, Request{Text: "Cache me", Speed: 1.2})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.WAV, second.WAV)
	assert.Equal(t, 1, engine.Calls())

	// any parameter change is a different entry
	third, err := svc.Synthesize(ctx, Request{Text: "Cache me", Speed: 1.3})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.NotEqual(t, first.Key, third.Key)
	assert.Equal(t, 2, engine.Calls())
}

func TestSynthesize_FailureNotCached(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{FailOn: []string{"flaky"}})
	store := newCache(t)
	svc := New(engine, WithLogger(quietLogger()), WithStore(store))

	_, err := svc.Synthesize(context.Background(), Request{Text: "flaky"})
	require.Error(t, err)
	assert.Zero(t, store.Stats().Entries)
}

func TestSynthesize_PartialFailureNotCached(t *testing.T) {
	store := newCache(t)
	ctx := context.Background()
	req := Request{Text: "Hello, world.", Pauses: plan.DefaultPauseSettings()}

	failing := engines.NewMockEngine(engines.MockConfig{FailOn: []string{"world"}})
	svc := New(failing, WithLogger(quietLogger()), WithStore(store))
	first, err := svc.Synthesize(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Failed())
	assert.Zero(t, store.Stats().Entries)

	healthy := engines.NewMockEngine(engines.MockConfig{})
	svc = New(healthy, WithLogger(quietLogger()), WithStore(store))
	second, err := svc.Synthesize(ctx, req)
	require.NoError(t, err)
	assert.False(t, second.Cached)
	assert.Zero(t, second.Failed())
	assert.Equal(t, 2, healthy.Calls())
	assert.Equal(t, 1, store.Stats().Entries)

	third, err := svc.Synthesize(ctx, req)
	require.NoError(t, err)
	assert.True(t, third.Cached)
}

func TestSynthesize_RulesApplied(t *testing.T) {
	engine := newRecordingEngine(engines.MockConfig{})
	svc := New(engine, WithLogger(quietLogger()))

	resp, err := svc.Synthesize(context.Background(), Request{
		Text: "Dr. Who [DIM]page 4[/DIM] arrives",
		Rules: pronounce.RuleSet{
			Rules: []pronounce.Rule{{Original: "Dr.", Replacement: "Doctor", MatchCase: true}},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Doctor Who arrives", resp.Spoken)
	assert.Equal(t, []string{"Doctor Who arrives"}, engine.texts())
}

func TestSynthesize_Canceled(t *testing.T) {
	engine := engines.NewMockEngine(engines.MockConfig{Delay: time.Second})
	svc := New(engine, WithLogger(quietLogger()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Synthesize(ctx, Request{Text: "a, b, c", Pauses: plan.DefaultPauseSettings()})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
