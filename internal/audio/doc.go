// Package audio holds mono float sample buffers and converts them to and
// from 16-bit PCM and WAV.
package audio
