package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silences(p Plan) []int {
	var out []int
	for _, item := range p {
		if item.Kind == Silence {
			out = append(out, item.DurationMs)
		}
	}
	return out
}

func speech(p Plan) []string {
	var out []string
	for _, item := range p {
		if item.Kind == Speech {
			out = append(out, item.Text)
		}
	}
	return out
}

func TestNew_AlternatesSpeechAndSilence(t *testing.T) {
	settings := PauseSettings{Comma: 300, Period: 600, Question: 600}
	p := New("Hello, world. Wait — really?", settings)

	require.Len(t, p, 6)
	kinds := []Kind{Speech, Silence, Speech, Silence, Speech, Silence}
	for i, item := range p {
		assert.Equal(t, kinds[i], item.Kind, "item %d", i)
	}

	assert.Equal(t, []int{300, 600, 600}, silences(p))
	assert.Equal(t, 1500, p.TotalSilenceMs())
	assert.Equal(t, []string{"Hello", "world", "Wait — really"}, speech(p))
}

func TestNew_SpeechKeepsSplitIndex(t *testing.T) {
	p := New("One. Two. Three.", DefaultPauseSettings())

	var indexes []int
	for _, item := range p {
		if item.Kind == Speech {
			indexes = append(indexes, item.Index)
		}
	}
	assert.Equal(t, []int{0, 2, 4}, indexes)
}

func TestNew_LastCharacterWins(t *testing.T) {
	settings := PauseSettings{Period: 600, Question: 700, Exclamation: 900}

	tests := []struct {
		text string
		want []int
	}{
		{"Really?!", []int{900}},
		{"Really!?", []int{700}},
		{"Wait...", []int{600}},
		{"What?..", []int{600}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, silences(New(tt.text, settings)))
		})
	}
}

func TestNew_CJKPunctuation(t *testing.T) {
	settings := PauseSettings{Comma: 250, Period: 650, Question: 700}
	p := New("你好，世界。真的吗？", settings)

	assert.Equal(t, []string{"你好", "世界", "真的吗"}, speech(p))
	assert.Equal(t, []int{250, 650, 700}, silences(p))
}

func TestNew_IdeographicCommaIsComma(t *testing.T) {
	p := New("りんご、みかん", PauseSettings{Comma: 120})
	assert.Equal(t, []int{120}, silences(p))
}

func TestNew_MissingClassDefaults(t *testing.T) {
	p := New("A; B: C", PauseSettings{Comma: 100})
	assert.Equal(t, []int{DefaultPauseMs, DefaultPauseMs}, silences(p))
}

func TestNew_Newlines(t *testing.T) {
	settings := PauseSettings{Period: 600, Newline: 800}

	t.Run("bare newline pauses", func(t *testing.T) {
		p := New("first line\nsecond line", settings)
		assert.Equal(t, []int{800}, silences(p))
		assert.Equal(t, []string{"first line", "second line"}, speech(p))
	})

	t.Run("newline after punctuation is suppressed", func(t *testing.T) {
		p := New("Done.\nNext", settings)
		assert.Equal(t, []int{600}, silences(p))
	})

	t.Run("whitespace between punctuation and newline is ignored", func(t *testing.T) {
		p := New("Done.  \nNext", settings)
		assert.Equal(t, []int{600}, silences(p))
	})

	t.Run("second newline after punctuation pauses", func(t *testing.T) {
		p := New("Done.\n\nNext", settings)
		assert.Equal(t, []int{600, 800}, silences(p))
	})

	t.Run("floor", func(t *testing.T) {
		p := New("a\nb", PauseSettings{Newline: 50})
		assert.Equal(t, []int{DefaultPauseMs}, silences(p))
	})

	t.Run("missing newline setting", func(t *testing.T) {
		p := New("a\nb", PauseSettings{Comma: 100})
		assert.Equal(t, []int{DefaultPauseMs}, silences(p))
	})
}

func TestNew_DropsUnspeakableSpans(t *testing.T) {
	p := New("Hello, — , world", PauseSettings{Comma: 300})
	assert.Equal(t, []string{"Hello", "world"}, speech(p))
	assert.Equal(t, []int{300, 300}, silences(p))
}

func TestNew_Empty(t *testing.T) {
	assert.Empty(t, New("", DefaultPauseSettings()))
	assert.Empty(t, New("   ", DefaultPauseSettings()))
}

func TestNew_NilSettingsUseDefaults(t *testing.T) {
	p := New("a, b", nil)
	assert.Equal(t, []int{300}, silences(p))
}

func TestHasPunctuation(t *testing.T) {
	assert.True(t, HasPunctuation("a, b"))
	assert.True(t, HasPunctuation("line\nline"))
	assert.True(t, HasPunctuation("你好。"))
	assert.False(t, HasPunctuation("no punctuation here"))
}

func TestIsSpeakable(t *testing.T) {
	assert.True(t, IsSpeakable("abc"))
	assert.True(t, IsSpeakable("42"))
	assert.True(t, IsSpeakable("ひらがな"))
	assert.True(t, IsSpeakable("한국어"))
	assert.False(t, IsSpeakable(" — ... "))
	assert.False(t, IsSpeakable(""))
}
