package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/audio/audiotest"
	"github.com/maauso/versesplit/internal/storage"
)

// checkFFmpeg skips the test if ffmpeg or ffprobe is not available.
func checkFFmpeg(t *testing.T) {
	t.Helper()
	for _, bin := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(bin); err != nil {
			t.Skipf("%s not found in PATH, skipping test", bin)
		}
	}
}

// createTestTone renders a sine tone with ffmpeg's lavfi source.
func createTestTone(t *testing.T, path string, durationSec float64) {
	t.Helper()
	cmd := exec.Command("ffmpeg", "-y",
		"-f", "lavfi", "-i", fmt.Sprintf("sine=frequency=440:duration=%.2f", durationSec),
		"-ar", "22050", "-ac", "1",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test tone: %v\noutput: %s", err, output)
	}
}

func TestNewFFmpeg(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		p := NewFFmpeg("")
		assert.Equal(t, "ffmpeg", p.ffmpegPath)
		assert.Equal(t, "ffprobe", p.ffprobePath)
	})

	t.Run("custom path", func(t *testing.T) {
		p := NewFFmpeg("/usr/local/bin/ffmpeg")
		assert.Equal(t, "/usr/local/bin/ffmpeg", p.ffmpegPath)
		assert.Equal(t, "/usr/local/bin/ffprobe", p.ffprobePath)
	})
}

func TestFFmpeg_EmptyPaths(t *testing.T) {
	p := NewFFmpeg("")
	ctx := context.Background()

	assert.ErrorIs(t, p.ToWAV(ctx, "", "out.wav"), ErrEmptyPath)
	assert.ErrorIs(t, p.Encode(ctx, "in.wav", "", "128k"), ErrEmptyPath)
}

func TestFFmpeg_DecodeAndEncode(t *testing.T) {
	checkFFmpeg(t)

	dir := t.TempDir()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	p := NewFFmpeg("")

	t.Run("mp3 source decodes to pcm", func(t *testing.T) {
		src := filepath.Join(dir, "tone.mp3")
		createTestTone(t, src, 2)

		temp, err := storage.NewLocalStorage(filepath.Join(dir, "scratch"))
		require.NoError(t, err)

		buf, err := NewDecoder(p, temp, WithProber(p)).Decode(ctx, src)
		require.NoError(t, err)
		assert.Equal(t, 16, buf.BitDepth())
		assert.Equal(t, 22050, buf.SampleRate())
		assert.InDelta(t, 2000, buf.Duration(), 100)
	})

	t.Run("segment wav encodes to mp3", func(t *testing.T) {
		wavPath := filepath.Join(dir, "segment.wav")
		require.NoError(t, audio.WriteWAVFile(wavPath, audiotest.Build(t, 22050, audiotest.Tone(1500))))

		out := filepath.Join(dir, "verse-1.mp3")
		require.NoError(t, p.Encode(ctx, wavPath, out, "128k"))

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Positive(t, info.Size())

		secs, err := p.Duration(ctx, out)
		require.NoError(t, err)
		assert.InDelta(t, 1.5, secs, 0.1)
	})

	t.Run("invalid input returns FFmpegError", func(t *testing.T) {
		bogus := filepath.Join(dir, "bogus.mp3")
		require.NoError(t, os.WriteFile(bogus, []byte("definitely not audio"), 0o600))

		err := p.ToWAV(ctx, bogus, filepath.Join(dir, "bogus.wav"))
		var ffErr *FFmpegError
		require.True(t, errors.As(err, &ffErr), "expected FFmpegError, got %v", err)
		assert.NotEmpty(t, ffErr.Stderr)
		assert.Contains(t, ffErr.Error(), "ffmpeg error")
	})

	t.Run("probe of missing file fails", func(t *testing.T) {
		_, err := p.Duration(ctx, filepath.Join(dir, "missing.mp3"))
		assert.ErrorIs(t, err, ErrFFprobeExecution)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, ccancel := context.WithCancel(context.Background())
		ccancel()
		err := p.ToWAV(cctx, filepath.Join(dir, "tone.mp3"), filepath.Join(dir, "never.wav"))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
