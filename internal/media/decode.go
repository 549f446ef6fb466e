package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/storage"
)

// Static errors for decoding.
var (
	// ErrSourceNotFound is returned when the source recording does not exist.
	ErrSourceNotFound = errors.New("source recording not found")
	// ErrTranscoderRequired is returned when a source needs transcoding but
	// the decoder has no transcoder.
	ErrTranscoderRequired = errors.New("source needs transcoding but no transcoder is set")
)

// durationTolerance is how far, in milliseconds, the decoded length may
// drift from the container's declared length before a warning is logged.
const durationTolerance = 1000

// Decoder loads a recording of any supported format into memory.
// Integer PCM WAV files are read directly; everything else is converted to
// a scratch WAV with the transcoder first.
type Decoder struct {
	transcoder Transcoder
	temp       storage.TempStore
	prober     Prober
	logger     *slog.Logger
}

// DecoderOption configures a Decoder.
type DecoderOption func(*Decoder)

// WithProber enables a sanity check of the decoded length against the
// container metadata.
func WithProber(p Prober) DecoderOption {
	return func(d *Decoder) { d.prober = p }
}

// WithDecoderLogger sets the logger.
func WithDecoderLogger(l *slog.Logger) DecoderOption {
	return func(d *Decoder) { d.logger = l }
}

// NewDecoder creates a Decoder. temp holds the scratch WAV files.
func NewDecoder(t Transcoder, temp storage.TempStore, opts ...DecoderOption) *Decoder {
	d := &Decoder{transcoder: t, temp: temp, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Decode reads the recording at path into a Buffer.
func (d *Decoder) Decode(ctx context.Context, path string) (*audio.Buffer, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
	}

	if strings.EqualFold(filepath.Ext(path), ".wav") {
		buf, err := audio.ReadWAVFile(path)
		if err == nil {
			d.logFormat(path, buf, "wav")
			return buf, nil
		}
		if !errors.Is(err, audio.ErrUnsupportedWAV) {
			return nil, err
		}
		d.logger.Debug("wav not readable in-process, transcoding", slog.String("path", path), slog.Any("reason", err))
	}

	buf, err := d.transcode(ctx, path)
	if err != nil {
		return nil, err
	}
	d.logFormat(path, buf, "ffmpeg")
	d.checkDuration(ctx, path, buf)
	return buf, nil
}

func (d *Decoder) transcode(ctx context.Context, path string) (*audio.Buffer, error) {
	if d.transcoder == nil || d.temp == nil {
		return nil, fmt.Errorf("%w: %s", ErrTranscoderRequired, path)
	}

	tmp, err := d.temp.CreateTemp(ctx, "source-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create scratch wav: %w", err)
	}
	defer func() {
		if err := d.temp.CleanupTemp(context.WithoutCancel(ctx), []string{tmp}); err != nil {
			d.logger.Warn("failed to remove scratch wav", slog.String("path", tmp), slog.Any("error", err))
		}
	}()

	if err := d.transcoder.ToWAV(ctx, path, tmp); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	buf, err := audio.ReadWAVFile(tmp)
	if err != nil {
		return nil, fmt.Errorf("read decoded %s: %w", path, err)
	}
	return buf, nil
}

func (d *Decoder) checkDuration(ctx context.Context, path string, buf *audio.Buffer) {
	if d.prober == nil {
		return
	}
	secs, err := d.prober.Duration(ctx, path)
	if err != nil {
		d.logger.Debug("duration probe failed", slog.String("path", path), slog.Any("error", err))
		return
	}
	declared := int64(math.Round(secs * 1000))
	if diff := declared - buf.Duration(); diff > durationTolerance || diff < -durationTolerance {
		d.logger.Warn("decoded length differs from container metadata",
			slog.String("path", path),
			slog.Int64("declared_ms", declared),
			slog.Int64("decoded_ms", buf.Duration()),
		)
	}
}

func (d *Decoder) logFormat(path string, buf *audio.Buffer, via string) {
	d.logger.Info("recording decoded",
		slog.String("path", path),
		slog.String("via", via),
		slog.Int64("duration_ms", buf.Duration()),
		slog.Int("sample_rate", buf.SampleRate()),
		slog.Int("channels", buf.Channels()),
		slog.Int("bit_depth", buf.BitDepth()),
	)
}
