// Package audiotest builds synthetic PCM buffers for tests.
package audiotest

import (
	"testing"

	"github.com/maauso/versesplit/internal/audio"
)

// Level is the amplitude of generated tones: about -6 dBFS at 16 bits.
const Level = 16384

// Part describes one run of generated audio.
type Part struct {
	Ms     int
	Silent bool
}

// Tone is a square wave run of ms milliseconds at Level.
func Tone(ms int) Part { return Part{Ms: ms} }

// Silence is a digital-zero run of ms milliseconds.
func Silence(ms int) Part { return Part{Ms: ms, Silent: true} }

// Build renders parts into a mono 16-bit buffer at sampleRate.
func Build(t testing.TB, sampleRate int, parts ...Part) *audio.Buffer {
	t.Helper()

	var samples []int
	for _, p := range parts {
		frames := p.Ms * sampleRate / 1000
		for i := 0; i < frames; i++ {
			switch {
			case p.Silent:
				samples = append(samples, 0)
			case i%2 == 0:
				samples = append(samples, Level)
			default:
				samples = append(samples, -Level)
			}
		}
	}

	b, err := audio.NewBuffer(samples, sampleRate, 1, 16)
	if err != nil {
		t.Fatalf("build test buffer: %v", err)
	}
	return b
}

// Ramp returns a mono 16-bit buffer of ms milliseconds whose sample values are
// the frame index modulo 30000, so slices can be checked for exact provenance.
func Ramp(t testing.TB, sampleRate, ms int) *audio.Buffer {
	t.Helper()

	frames := ms * sampleRate / 1000
	samples := make([]int, frames)
	for i := range samples {
		samples[i] = i % 30000
	}
	b, err := audio.NewBuffer(samples, sampleRate, 1, 16)
	if err != nil {
		t.Fatalf("build ramp buffer: %v", err)
	}
	return b
}
