// Package audio supplies finite spoken requests as decoded WAV clips.
package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrNotWAV is returned for input that is not a PCM WAV file.
var ErrNotWAV = errors.New("not a PCM WAV file")

// Source produces clips until its context ends.
type Source interface {
	Next(ctx context.Context) (Clip, error)
	Name() string
}

// Clip is one finite utterance.
type Clip struct {
	Name string
	PCM  *goaudio.IntBuffer
}

// SampleRate returns the clip's sample rate in Hz.
func (c Clip) SampleRate() int {
	if c.PCM == nil || c.PCM.Format == nil {
		return 0
	}
	return c.PCM.Format.SampleRate
}

// Channels returns the number of interleaved channels.
func (c Clip) Channels() int {
	if c.PCM == nil || c.PCM.Format == nil {
		return 0
	}
	return c.PCM.Format.NumChannels
}

// Duration returns the clip length.
func (c Clip) Duration() time.Duration {
	rate := c.SampleRate()
	if rate == 0 {
		return 0
	}
	return time.Duration(float64(c.PCM.NumFrames()) / float64(rate) * float64(time.Second))
}

// DecodeWAV reads a complete PCM WAV stream.
func DecodeWAV(name string, r io.ReadSeeker) (Clip, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return Clip{}, fmt.Errorf("%s: %w", name, ErrNotWAV)
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("%s: decode pcm: %w", name, err)
	}
	if buf.SourceBitDepth == 0 {
		buf.SourceBitDepth = int(d.BitDepth)
	}
	if buf.NumFrames() == 0 {
		return Clip{}, fmt.Errorf("%s: empty audio", name)
	}
	return Clip{Name: name, PCM: buf}, nil
}

// FromSamples builds a 16-bit clip from float samples in [-1, 1], clipping
// anything outside that range.
func FromSamples(name string, samples []float64, sampleRate, channels int) Clip {
	data := make([]int, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		data[i] = int(s * 32767)
	}
	return Clip{Name: name, PCM: &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}}
}

// EncodeWAV writes c as a PCM WAV file at its source bit depth.
func EncodeWAV(w io.WriteSeeker, c Clip) error {
	if c.PCM == nil || c.PCM.Format == nil {
		return errors.New("clip has no audio")
	}
	depth := c.PCM.SourceBitDepth
	if depth == 0 {
		depth = 16
	}
	enc := wav.NewEncoder(w, c.SampleRate(), depth, c.Channels(), 1)
	if err := enc.Write(c.PCM); err != nil {
		return fmt.Errorf("encode wav: %w", err)
	}
	return enc.Close()
}

// WAV returns c encoded as an in-memory WAV file.
func (c Clip) WAV() ([]byte, error) {
	var buf seekBuffer
	if err := EncodeWAV(&buf, c); err != nil {
		return nil, err
	}
	return buf.data, nil
}

// seekBuffer is an in-memory io.WriteSeeker; the WAV encoder patches
// chunk sizes after writing the samples.
type seekBuffer struct {
	data []byte
	pos  int
}

func (b *seekBuffer) Write(p []byte) (int, error) {
	if end := b.pos + len(p); end > len(b.data) {
		b.data = append(b.data, make([]byte, end-len(b.data))...)
	}
	n := copy(b.data[b.pos:], p)
	b.pos += n
	return n, nil
}

func (b *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(b.pos) + offset
	case io.SeekEnd:
		abs = int64(len(b.data)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("negative position")
	}
	b.pos = int(abs)
	return abs, nil
}
