// Package export writes segmented verse audio to disk, one file per verse,
// and optionally publishes the files to remote storage.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/media"
	"github.com/maauso/versesplit/internal/segment"
	"github.com/maauso/versesplit/internal/storage"
)

// Static errors for export.
var (
	// ErrExport wraps every per-segment failure.
	ErrExport = errors.New("segment export failed")
	// ErrUnsafeID is returned when a verse id cannot be used as a file name.
	ErrUnsafeID = errors.New("verse id is not a safe file name")
	// ErrUnsupportedFormat is returned for formats outside Formats.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// FormatWAV is written in-process; every other format goes through the transcoder.
const FormatWAV = "wav"

// Formats lists the accepted export formats.
var Formats = []string{"mp3", FormatWAV, "flac", "ogg", "m4a"}

// Default option values.
const (
	DefaultFormat        = "mp3"
	DefaultBitrate       = "128k"
	DefaultMaxConcurrent = 3
)

// ValidateFormat checks that format is one of Formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("%w: %q (want one of %s)", ErrUnsupportedFormat, format, strings.Join(Formats, ", "))
}

// FileName returns the output file name for a verse: verse-<id>.<format>.
// Ids containing path separators or NUL bytes are rejected.
func FileName(id, format string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\\x00") {
		return "", fmt.Errorf("%w: %q", ErrUnsafeID, id)
	}
	name := "verse-" + id + "." + format
	if !filepath.IsLocal(name) || filepath.Base(name) != name {
		return "", fmt.Errorf("%w: %q", ErrUnsafeID, id)
	}
	return name, nil
}

// Result reports the outcome of exporting one segment.
type Result struct {
	VerseID  string
	Timeline audio.Timeline
	// DurationMs is the length of the exported audio.
	DurationMs int64
	// Path is the written file; empty when nothing was written.
	Path string
	// URL is set when the file was published.
	URL string
	Err error
}

// Exporter writes segments to an output directory.
type Exporter struct {
	outDir        string
	format        string
	bitrate       string
	maxConcurrent int
	transcoder    media.Transcoder
	temp          storage.TempStore
	publisher     storage.Publisher
	prefix        string
	logger        *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithFormat sets the output format (file extension). Default: mp3.
func WithFormat(format string) Option {
	return func(e *Exporter) { e.format = strings.ToLower(strings.TrimPrefix(format, ".")) }
}

// WithBitrate sets the encoder bitrate, e.g. "192k". Default: 128k.
func WithBitrate(bitrate string) Option {
	return func(e *Exporter) { e.bitrate = bitrate }
}

// WithMaxConcurrent limits how many segments are exported at once. Default: 3.
func WithMaxConcurrent(n int) Option {
	return func(e *Exporter) {
		if n > 0 {
			e.maxConcurrent = n
		}
	}
}

// WithTranscoder sets the encoder for non-WAV formats and the store for its
// scratch files.
func WithTranscoder(t media.Transcoder, temp storage.TempStore) Option {
	return func(e *Exporter) {
		e.transcoder = t
		e.temp = temp
	}
}

// WithPublisher uploads every exported file under prefix.
func WithPublisher(p storage.Publisher, prefix string) Option {
	return func(e *Exporter) {
		e.publisher = p
		e.prefix = prefix
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Exporter writing into outDir.
func New(outDir string, opts ...Option) *Exporter {
	e := &Exporter{
		outDir:        outDir,
		format:        DefaultFormat,
		bitrate:       DefaultBitrate,
		maxConcurrent: DefaultMaxConcurrent,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Format returns the output format.
func (e *Exporter) Format() string { return e.format }

// OutDir returns the output directory.
func (e *Exporter) OutDir() string { return e.outDir }

// Export writes every segment. A failing segment does not stop the others:
// results are returned in segment order, and the error joins one ErrExport
// per failed segment. Errors that prevent any export (bad format, output
// directory) are returned with nil results.
func (e *Exporter) Export(ctx context.Context, segments []segment.Segment) ([]Result, error) {
	if err := ValidateFormat(e.format); err != nil {
		return nil, err
	}
	if e.format != FormatWAV && (e.transcoder == nil || e.temp == nil) {
		return nil, fmt.Errorf("%w: format %s", media.ErrTranscoderRequired, e.format)
	}
	if err := os.MkdirAll(e.outDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	start := time.Now()
	results := make([]Result, len(segments))

	var g errgroup.Group
	g.SetLimit(e.maxConcurrent)
	for i, seg := range segments {
		i, seg := i, seg
		g.Go(func() error {
			results[i] = e.exportOne(ctx, seg)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%w: verse %s: %w", ErrExport, r.VerseID, r.Err))
		}
	}

	e.logger.Info("export finished",
		slog.Int("segments", len(segments)),
		slog.Int("failed", len(errs)),
		slog.String("format", e.format),
		slog.String("out_dir", e.outDir),
		slog.Duration("elapsed", time.Since(start)),
	)
	return results, errors.Join(errs...)
}

func (e *Exporter) exportOne(ctx context.Context, seg segment.Segment) Result {
	res := Result{VerseID: seg.VerseID, Timeline: seg.Timeline}
	if seg.Audio != nil {
		res.DurationMs = seg.Audio.Duration()
	}

	name, err := FileName(seg.VerseID, e.format)
	if err != nil {
		res.Err = err
		e.logFailure(res)
		return res
	}
	if seg.Audio == nil {
		res.Err = errors.New("segment has no audio")
		e.logFailure(res)
		return res
	}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	dst := filepath.Join(e.outDir, name)
	if err := e.write(ctx, seg.Audio, dst); err != nil {
		res.Err = err
		e.logFailure(res)
		return res
	}
	res.Path = dst

	if e.publisher != nil {
		url, err := e.publish(ctx, dst, storage.ObjectKey(e.prefix, name))
		if err != nil {
			res.Err = err
			e.logFailure(res)
			return res
		}
		res.URL = url
	}

	e.logger.Debug("segment exported",
		slog.String("verse_id", seg.VerseID),
		slog.String("path", dst),
		slog.String("range", seg.Timeline.String()),
	)
	return res
}

func (e *Exporter) write(ctx context.Context, buf *audio.Buffer, dst string) error {
	if e.format == FormatWAV {
		return audio.WriteWAVFile(dst, buf)
	}

	tmp, err := e.temp.CreateTemp(ctx, "segment-*.wav")
	if err != nil {
		return err
	}
	defer func() {
		if err := e.temp.CleanupTemp(context.WithoutCancel(ctx), []string{tmp}); err != nil {
			e.logger.Warn("failed to remove scratch wav", slog.String("path", tmp), slog.Any("error", err))
		}
	}()

	if err := audio.WriteWAVFile(tmp, buf); err != nil {
		return err
	}
	return e.transcoder.Encode(ctx, tmp, dst, e.bitrate)
}

func (e *Exporter) publish(ctx context.Context, path, key string) (string, error) {
	f, err := os.Open(path) // #nosec G304 - path was just written by the exporter
	if err != nil {
		return "", fmt.Errorf("open exported file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return e.publisher.Publish(ctx, key, f)
}

func (e *Exporter) logFailure(r Result) {
	e.logger.Error("segment export failed",
		slog.String("verse_id", r.VerseID),
		slog.String("error", r.Err.Error()),
	)
}
