package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Static errors for media operations.
var (
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
	// ErrEmptyPath is returned when a source or destination path is empty.
	ErrEmptyPath = errors.New("empty media path")
)

// FFmpeg implements Transcoder and Prober using the ffmpeg and ffprobe CLIs.
type FFmpeg struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is looked up next to ffmpegPath.
	ffprobePath string
}

var (
	_ Transcoder = (*FFmpeg)(nil)
	_ Prober     = (*FFmpeg)(nil)
)

// NewFFmpeg creates a new FFmpeg transcoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpeg(ffmpegPath string) *FFmpeg {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpeg{
		ffmpegPath:  ffmpegPath,
		ffprobePath: probePathFor(ffmpegPath),
	}
}

// probePathFor returns the ffprobe binary that ships alongside ffmpegPath.
func probePathFor(ffmpegPath string) string {
	dir := filepath.Dir(ffmpegPath)
	if dir == "." && !strings.ContainsRune(ffmpegPath, filepath.Separator) {
		return "ffprobe"
	}
	return filepath.Join(dir, "ffprobe")
}

// ToWAV decodes src (any container or codec ffmpeg understands) into a
// 16-bit PCM WAV file at dst. Sample rate and channel layout are kept.
func (p *FFmpeg) ToWAV(ctx context.Context, src, dst string) error {
	if src == "" || dst == "" {
		return ErrEmptyPath
	}
	args := []string{
		"-y",      // Overwrite output file without asking
		"-i", src, // Input file
		"-vn",                  // Drop any video stream (cover art)
		"-acodec", "pcm_s16le", // 16-bit little-endian PCM
		"-f", "wav",
		dst,
	}
	return p.runFFmpeg(ctx, args)
}

// Encode re-encodes the audio file src into dst. The output container is
// taken from dst's extension. bitrate (e.g. "128k") is applied when set and
// ignored by lossless codecs.
func (p *FFmpeg) Encode(ctx context.Context, src, dst, bitrate string) error {
	if src == "" || dst == "" {
		return ErrEmptyPath
	}
	args := []string{"-y", "-i", src, "-vn"}
	if bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	args = append(args, dst)
	return p.runFFmpeg(ctx, args)
}

// Duration returns the duration in seconds of a media file.
// It uses ffprobe to extract the duration metadata.
func (p *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	duration, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}
	return duration, nil
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpeg) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, append([]string{"-hide_banner", "-loglevel", "error"}, args...)...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}
	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}
