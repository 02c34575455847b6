package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/cwbudde/wav"
	goaudio "github.com/go-audio/audio"
)

const (
	wavBitDepth  = 16
	wavPCMFormat = 1
)

// ErrInvalidWAV is returned when data cannot be read as a WAV file.
var ErrInvalidWAV = errors.New("invalid WAV data")

// WriteWAV writes b to w as a 16-bit PCM mono WAV file.
func WriteWAV(w io.WriteSeeker, b Buffer) error {
	if b.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", b.SampleRate)
	}
	enc := wav.NewEncoder(w, b.SampleRate, wavBitDepth, 1, wavPCMFormat)
	buf := &goaudio.Float32Buffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		Data:           b.Samples,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("unable to write samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finish WAV: %w", err)
	}
	return nil
}

// EncodeWAV returns b as the bytes of a 16-bit PCM mono WAV file.
func EncodeWAV(b Buffer) ([]byte, error) {
	ws := &writeSeeker{}
	if err := WriteWAV(ws, b); err != nil {
		return nil, err
	}
	return ws.buf, nil
}

// DecodeWAV reads a WAV file into a mono buffer.
func DecodeWAV(data []byte) (Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Buffer{}, ErrInvalidWAV
	}
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return Buffer{}, fmt.Errorf("%w: %v", ErrInvalidWAV, err)
	}
	channels := int(dec.NumChans)
	if pcm.Format != nil && pcm.Format.NumChannels > 0 {
		channels = pcm.Format.NumChannels
	}
	return Buffer{
		Samples:    Downmix(pcm.Data, channels),
		SampleRate: int(dec.SampleRate),
	}, nil
}

// writeSeeker is an in-memory io.WriteSeeker for the WAV encoder, which
// patches the header sizes after the samples are written.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	if end := w.pos + len(p); end > len(w.buf) {
		w.buf = append(w.buf, make([]byte, end-len(w.buf))...)
	}
	n := copy(w.buf[w.pos:], p)
	w.pos += n
	return n, nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(w.pos) + offset
	case io.SeekEnd:
		abs = int64(len(w.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(abs)
	return abs, nil
}
