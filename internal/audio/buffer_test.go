package audio_test

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/audio/audiotest"
)

func TestNewBuffer_InvalidFormat(t *testing.T) {
	tests := []struct {
		name     string
		samples  []int
		rate     int
		channels int
		bits     int
	}{
		{"zero rate", []int{0, 0}, 0, 1, 16},
		{"zero channels", []int{0, 0}, 8000, 0, 16},
		{"zero bit depth", []int{0, 0}, 8000, 1, 0},
		{"partial frame", []int{0, 0, 0}, 8000, 2, 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := audio.NewBuffer(tt.samples, tt.rate, tt.channels, tt.bits)
			assert.ErrorIs(t, err, audio.ErrInvalidFormat)
		})
	}
}

func TestBuffer_Duration(t *testing.T) {
	b := audiotest.Ramp(t, 8000, 9000)

	assert.Equal(t, int64(9000), b.Duration())
	assert.Equal(t, 72000, b.Frames())
	assert.Equal(t, 8000, b.SampleRate())
	assert.Equal(t, 1, b.Channels())
	assert.Equal(t, 16, b.BitDepth())
}

func TestBuffer_Slice(t *testing.T) {
	b := audiotest.Ramp(t, 8000, 9000)

	t.Run("exact duration and provenance", func(t *testing.T) {
		s, err := b.Slice(audio.Timeline{Start: 3000, End: 6000})
		require.NoError(t, err)

		assert.Equal(t, int64(3000), s.Duration())
		assert.Equal(t, 24000%30000, s.Samples()[0])
		assert.Equal(t, (48000-1)%30000, s.Samples()[s.Frames()-1])
	})

	t.Run("does not alias source", func(t *testing.T) {
		s, err := b.Slice(audio.Timeline{Start: 0, End: 10})
		require.NoError(t, err)

		s.Samples()[0] = 12345
		assert.Equal(t, 0, b.Samples()[0])
	})

	t.Run("empty slice", func(t *testing.T) {
		s, err := b.Slice(audio.Timeline{Start: 4000, End: 4000})
		require.NoError(t, err)
		assert.Equal(t, int64(0), s.Duration())
	})

	t.Run("rejects out of range", func(t *testing.T) {
		for _, tl := range []audio.Timeline{
			{Start: -1, End: 100},
			{Start: 200, End: 100},
			{Start: 0, End: 9001},
		} {
			_, err := b.Slice(tl)
			assert.ErrorIs(t, err, audio.ErrInvalidTimeline, "timeline %v", tl)
		}
	})
}

func TestBuffer_SliceDurationAtOddRates(t *testing.T) {
	for _, rate := range []int{8000, 11025, 22050, 44100, 48000} {
		b := audiotest.Ramp(t, rate, 20000)
		s, err := b.Slice(audio.Timeline{Start: 10500, End: 14000})
		require.NoError(t, err)
		assert.Equal(t, int64(3500), s.Duration(), "rate %d", rate)
	}
}

func TestBuffer_Append(t *testing.T) {
	a := audiotest.Build(t, 8000, audiotest.Tone(1000))
	b := audiotest.Build(t, 8000, audiotest.Silence(500))

	joined, err := a.Append(b)
	require.NoError(t, err)

	assert.Equal(t, int64(1500), joined.Duration())
	assert.Equal(t, audiotest.Level, joined.Samples()[0])
	assert.Equal(t, 0, joined.Samples()[joined.Frames()-1])
	assert.Equal(t, int64(1000), a.Duration(), "receiver must not change")

	other := audiotest.Build(t, 16000, audiotest.Tone(100))
	_, err = a.Append(other)
	assert.ErrorIs(t, err, audio.ErrFormatMismatch)
}

func TestConcat(t *testing.T) {
	src := audiotest.Ramp(t, 8000, 3000)
	var parts []*audio.Buffer
	for _, tl := range []audio.Timeline{
		{Start: 0, End: 1000},
		{Start: 1000, End: 2000},
		{Start: 2000, End: 3000},
	} {
		p, err := src.Slice(tl)
		require.NoError(t, err)
		parts = append(parts, p)
	}

	joined, err := audio.Concat(parts...)
	require.NoError(t, err)
	assert.Equal(t, src.Samples(), joined.Samples())

	_, err = audio.Concat()
	assert.ErrorIs(t, err, audio.ErrInvalidFormat)
}

func TestBuffer_DBFS(t *testing.T) {
	tone := audiotest.Build(t, 8000, audiotest.Tone(100))
	assert.InDelta(t, -6.02, tone.DBFS(), 0.01)

	silent := audiotest.Build(t, 8000, audiotest.Silence(100))
	assert.True(t, math.IsInf(silent.DBFS(), -1))
}

func TestWAVFileRoundTrip(t *testing.T) {
	src := audiotest.Ramp(t, 8000, 250)
	path := filepath.Join(t.TempDir(), "ramp.wav")

	require.NoError(t, audio.WriteWAVFile(path, src))

	got, err := audio.ReadWAVFile(path)
	require.NoError(t, err)
	assert.Equal(t, src.SampleRate(), got.SampleRate())
	assert.Equal(t, src.Channels(), got.Channels())
	assert.Equal(t, src.BitDepth(), got.BitDepth())
	assert.Equal(t, src.Samples(), got.Samples())
}

func TestReadWAVFile_NotWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.wav")
	require.NoError(t, os.WriteFile(path, []byte("ID3 definitely not a wav file"), 0o600))

	_, err := audio.ReadWAVFile(path)
	assert.ErrorIs(t, err, audio.ErrUnsupportedWAV)
}
