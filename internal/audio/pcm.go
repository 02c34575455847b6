package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// PCMFormat describes interleaved signed integer PCM.
type PCMFormat struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// PCM16Mono returns the format of raw 16-bit mono output at rate.
func PCM16Mono(rate int) PCMFormat {
	return PCMFormat{SampleRate: rate, Channels: 1, BitDepth: 16}
}

// BytesPerFrame returns the number of bytes for one sample of every channel.
func (f PCMFormat) BytesPerFrame() int {
	return f.BitDepth / 8 * f.Channels
}

// ErrEmptyPCM is returned when PCM data has no samples.
var ErrEmptyPCM = errors.New("empty PCM data")

// ValidatePCMData checks that data is non-empty and frame aligned.
func ValidatePCMData(data []byte, format PCMFormat) error {
	if len(data) == 0 {
		return ErrEmptyPCM
	}
	if bpf := format.BytesPerFrame(); bpf == 0 || len(data)%bpf != 0 {
		return fmt.Errorf("PCM data length %d is not aligned to %d-byte frames", len(data), bpf)
	}
	return nil
}

// DecodePCM16 converts little-endian 16-bit mono PCM into float samples.
func DecodePCM16(data []byte, rate int) (Buffer, error) {
	if err := ValidatePCMData(data, PCM16Mono(rate)); err != nil {
		return Buffer{}, err
	}
	samples := make([]float32, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float32(v) / 32768
	}
	return Buffer{Samples: samples, SampleRate: rate}, nil
}

// Downmix averages interleaved channels down to mono. Mono input is
// returned as is.
func Downmix(data []float32, channels int) []float32 {
	if channels <= 1 {
		return data
	}
	out := make([]float32, len(data)/channels)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += data[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
