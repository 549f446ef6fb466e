// Package audio provides the in-memory audio model used by the segmentation
// engine: decoded PCM buffers, millisecond timelines, slicing, concatenation
// and energy-based silence detection.
package audio

import (
	"errors"
	"fmt"
	"math"

	goaudio "github.com/go-audio/audio"
)

// Static errors for buffer operations.
var (
	// ErrInvalidTimeline is returned when a timeline does not satisfy
	// 0 <= start <= end <= duration.
	ErrInvalidTimeline = errors.New("invalid timeline")
	// ErrFormatMismatch is returned when concatenating buffers whose sample
	// rate, channel count or bit depth differ.
	ErrFormatMismatch = errors.New("audio format mismatch")
	// ErrInvalidFormat is returned when a buffer is built from an unusable format.
	ErrInvalidFormat = errors.New("invalid audio format")
)

// Timeline is a half-open interval [Start, End) over a recording, in milliseconds.
type Timeline struct {
	Start int64
	End   int64
}

// Duration returns End - Start in milliseconds.
func (t Timeline) Duration() int64 {
	return t.End - t.Start
}

// Validate checks 0 <= Start <= End <= total.
func (t Timeline) Validate(total int64) error {
	if t.Start < 0 || t.Start > t.End || t.End > total {
		return fmt.Errorf("%w: [%d, %d) outside [0, %d]", ErrInvalidTimeline, t.Start, t.End, total)
	}
	return nil
}

// String returns a human-readable representation for logging.
func (t Timeline) String() string {
	return fmt.Sprintf("[%.3fs, %.3fs)", float64(t.Start)/1000, float64(t.End)/1000)
}

// Buffer is decoded audio held entirely in memory. Samples are interleaved
// across channels. A Buffer is never mutated after construction; Slice and
// Append return new buffers.
type Buffer struct {
	pcm *goaudio.IntBuffer
}

// NewBuffer wraps interleaved PCM samples. bitDepth is the source bit depth and
// determines the full-scale amplitude used for dBFS computations.
func NewBuffer(samples []int, sampleRate, channels, bitDepth int) (*Buffer, error) {
	if sampleRate <= 0 || channels <= 0 || bitDepth <= 0 {
		return nil, fmt.Errorf("%w: rate=%d channels=%d bits=%d", ErrInvalidFormat, sampleRate, channels, bitDepth)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("%w: %d samples is not a multiple of %d channels", ErrInvalidFormat, len(samples), channels)
	}
	return fromIntBuffer(&goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: channels,
			SampleRate:  sampleRate,
		},
		Data:           samples,
		SourceBitDepth: bitDepth,
	})
}

func fromIntBuffer(pcm *goaudio.IntBuffer) (*Buffer, error) {
	if pcm == nil || pcm.Format == nil {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidFormat)
	}
	if pcm.Format.SampleRate <= 0 || pcm.Format.NumChannels <= 0 || pcm.SourceBitDepth <= 0 {
		return nil, fmt.Errorf("%w: rate=%d channels=%d bits=%d",
			ErrInvalidFormat, pcm.Format.SampleRate, pcm.Format.NumChannels, pcm.SourceBitDepth)
	}
	return &Buffer{pcm: pcm}, nil
}

// SampleRate returns frames per second.
func (b *Buffer) SampleRate() int { return b.pcm.Format.SampleRate }

// Channels returns the number of interleaved channels.
func (b *Buffer) Channels() int { return b.pcm.Format.NumChannels }

// BitDepth returns the source bit depth.
func (b *Buffer) BitDepth() int { return b.pcm.SourceBitDepth }

// Frames returns the number of sample frames.
func (b *Buffer) Frames() int {
	return len(b.pcm.Data) / b.Channels()
}

// Samples returns the interleaved samples. Callers must not modify the slice.
func (b *Buffer) Samples() []int { return b.pcm.Data }

// IntBuffer exposes the underlying go-audio buffer for encoders.
// Callers must not modify it.
func (b *Buffer) IntBuffer() *goaudio.IntBuffer { return b.pcm }

// Duration returns the buffer length in milliseconds, rounded to the nearest ms.
func (b *Buffer) Duration() int64 {
	return int64(math.Round(float64(b.Frames()) * 1000 / float64(b.SampleRate())))
}

// frameAt maps a millisecond offset to a frame index, clamped to the buffer.
func (b *Buffer) frameAt(ms int64) int {
	f := ms * int64(b.SampleRate()) / 1000
	if f < 0 {
		return 0
	}
	if n := int64(b.Frames()); f > n {
		return int(n)
	}
	return int(f)
}

// Slice returns the audio within t as a new buffer sharing no state with b.
func (b *Buffer) Slice(t Timeline) (*Buffer, error) {
	if err := t.Validate(b.Duration()); err != nil {
		return nil, err
	}
	return b.slice(t), nil
}

// slice assumes t was validated or clamped by the caller.
func (b *Buffer) slice(t Timeline) *Buffer {
	ch := b.Channels()
	from, to := b.frameAt(t.Start)*ch, b.frameAt(t.End)*ch
	data := make([]int, to-from)
	copy(data, b.pcm.Data[from:to])
	return b.withData(data)
}

// Append returns a new buffer containing b followed by other.
func (b *Buffer) Append(other *Buffer) (*Buffer, error) {
	if b.SampleRate() != other.SampleRate() || b.Channels() != other.Channels() || b.BitDepth() != other.BitDepth() {
		return nil, fmt.Errorf("%w: %d Hz/%d ch/%d bit vs %d Hz/%d ch/%d bit", ErrFormatMismatch,
			b.SampleRate(), b.Channels(), b.BitDepth(),
			other.SampleRate(), other.Channels(), other.BitDepth())
	}
	data := make([]int, 0, len(b.pcm.Data)+len(other.pcm.Data))
	data = append(data, b.pcm.Data...)
	data = append(data, other.pcm.Data...)
	return b.withData(data), nil
}

// Concat joins buffers in order. It returns an error for an empty list.
func Concat(parts ...*Buffer) (*Buffer, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: nothing to concatenate", ErrInvalidFormat)
	}
	out := parts[0]
	for _, p := range parts[1:] {
		joined, err := out.Append(p)
		if err != nil {
			return nil, err
		}
		out = joined
	}
	return out, nil
}

func (b *Buffer) withData(data []int) *Buffer {
	return &Buffer{pcm: &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: b.Channels(),
			SampleRate:  b.SampleRate(),
		},
		Data:           data,
		SourceBitDepth: b.BitDepth(),
	}}
}

// maxAmplitude is the full-scale value for the buffer's bit depth.
func (b *Buffer) maxAmplitude() float64 {
	return math.Exp2(float64(b.BitDepth() - 1))
}

// DBFS returns the RMS level of the whole buffer relative to full scale.
// An empty or digitally silent buffer returns -Inf.
func (b *Buffer) DBFS() float64 {
	if len(b.pcm.Data) == 0 {
		return math.Inf(-1)
	}
	var sum float64
	for _, s := range b.pcm.Data {
		v := float64(s)
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(b.pcm.Data)))
	if rms == 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(rms/b.maxAmplitude())
}
