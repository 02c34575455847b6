package audio

import "time"

// DefaultSampleRate is used when no backend has reported a rate.
const DefaultSampleRate = 24000

// Buffer is single-channel audio. Samples are in the range [-1, 1].
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// Len returns the number of samples in b.
func (b Buffer) Len() int {
	return len(b.Samples)
}

// Duration returns the playing time of b.
func (b Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}

// Append adds samples to the end of b. No resampling is done.
func (b *Buffer) Append(samples []float32) {
	b.Samples = append(b.Samples, samples...)
}

// SilenceSamples returns the number of samples in ms milliseconds at rate,
// truncated toward zero.
func SilenceSamples(ms float64, rate int) int {
	return int(ms / 1000 * float64(rate))
}

// Silence returns ms milliseconds of zero samples at rate. It returns nil
// when the length rounds down to zero.
func Silence(ms float64, rate int) []float32 {
	n := SilenceSamples(ms, rate)
	if n <= 0 {
		return nil
	}
	return make([]float32, n)
}

// SilentBuffer returns a Buffer holding ms milliseconds of silence.
func SilentBuffer(ms float64, rate int) Buffer {
	return Buffer{Samples: Silence(ms, rate), SampleRate: rate}
}
