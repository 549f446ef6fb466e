package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// ErrUnsupportedWAV is returned for WAV files that cannot be decoded in-process
// (not RIFF/WAVE, compressed or float payloads, 8-bit unsigned samples).
// Callers can fall back to transcoding such files first.
var ErrUnsupportedWAV = errors.New("unsupported WAV file")

// DecodeWAV reads a complete PCM WAV stream into memory.
func DecodeWAV(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid RIFF/WAVE stream", ErrUnsupportedWAV)
	}
	if d.WavAudioFormat != wavFormatPCM && d.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: audio format %d is not integer PCM", ErrUnsupportedWAV, d.WavAudioFormat)
	}
	switch d.BitDepth {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedWAV, d.BitDepth)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}
	return fromIntBuffer(pcm)
}

// ReadWAVFile decodes the WAV file at path.
func ReadWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open wav file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return DecodeWAV(f)
}

// EncodeWAV writes b as an integer PCM WAV stream.
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	enc := wav.NewEncoder(w, b.SampleRate(), b.BitDepth(), b.Channels(), wavFormatPCM)
	if err := enc.Write(b.IntBuffer()); err != nil {
		_ = enc.Close()
		return fmt.Errorf("write wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return nil
}

// WriteWAVFile encodes b into a new file at path, replacing any existing file.
func WriteWAVFile(path string, b *Buffer) error {
	f, err := os.Create(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return fmt.Errorf("create wav file: %w", err)
	}
	if err := EncodeWAV(f, b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("close wav file: %w", err)
	}
	return nil
}
