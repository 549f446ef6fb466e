package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/export"
	"github.com/maauso/versesplit/internal/segment"
	"github.com/maauso/versesplit/internal/verse"
)

// ErrTimingFileRequired is returned when the timing method is chosen
// without a timing document.
var ErrTimingFileRequired = errors.New("timing method requires a timing file")

// Decoder loads a recording into memory.
type Decoder interface {
	Decode(ctx context.Context, path string) (*audio.Buffer, error)
}

// Exporter writes segments to their destination.
type Exporter interface {
	Export(ctx context.Context, segments []segment.Segment) ([]export.Result, error)
	OutDir() string
	Format() string
}

// Input contains the parameters of one run.
type Input struct {
	// AudioPath is the recording to split.
	AudioPath string
	// VersesPath is the verse list document.
	VersesPath string
	// Method selects the segmentation strategy.
	Method segment.Method
	// TimingPath is the timing document; required for MethodTiming.
	TimingPath string
	// Silence configures MethodSilence.
	Silence audio.SilenceOpts
	// Shortfall decides what MethodSilence does with too few chunks.
	Shortfall segment.ShortfallPolicy
	// SkipManifest disables writing manifest.json.
	SkipManifest bool
}

// Service orchestrates a run: load verses, decode, segment, export and
// write the manifest.
type Service struct {
	repo     Repository
	decoder  Decoder
	exporter Exporter
	logger   *slog.Logger
}

// NewService creates a new Service.
func NewService(repo Repository, decoder Decoder, exporter Exporter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		decoder:  decoder,
		exporter: exporter,
		logger:   logger,
	}
}

// GetRun retrieves a run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*Run, error) {
	return s.repo.FindByID(ctx, id)
}

// Process executes one run and returns its final state. The run is
// returned even when err is non-nil, unless it could not be created.
//
// Input problems (verse or timing documents, method) fail the run before
// the recording is decoded. Export failures are per verse: every other
// verse is still written and the run ends FAILED.
func (s *Service) Process(ctx context.Context, in Input) (*Run, error) {
	r := New(in.Method, in.AudioPath, in.VersesPath)
	log := s.logger.With(slog.String("run_id", r.ID))
	log.Info("run created",
		slog.String("method", string(in.Method)),
		slog.String("audio", in.AudioPath),
		slog.String("verses", in.VersesPath),
	)
	if err := s.repo.Save(ctx, r); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	err := s.process(ctx, r, in, log)
	if err != nil {
		if ferr := r.Fail(err.Error()); ferr != nil {
			log.Error("failed to mark run failed", slog.String("error", ferr.Error()))
		}
	} else if cerr := r.Complete(); cerr != nil {
		err = cerr
	}

	if r.Verses != nil && !in.SkipManifest {
		path, merr := WriteManifest(s.exporter.OutDir(), NewManifest(r, s.exporter.Format(), s.exporter.OutDir()))
		if merr != nil {
			log.Error("failed to write manifest", slog.String("error", merr.Error()))
			err = errors.Join(err, merr)
		} else {
			log.Info("manifest written", slog.String("path", path))
		}
	}

	if serr := s.repo.Save(ctx, r); serr != nil {
		err = errors.Join(err, fmt.Errorf("save run: %w", serr))
	}

	exported, failed := r.Counts()
	level := slog.LevelInfo
	if err != nil {
		level = slog.LevelError
	}
	log.Log(ctx, level, "run finished",
		slog.String("status", string(r.GetStatus())),
		slog.Int("exported", exported),
		slog.Int("failed", failed),
	)
	return r.Clone(), err
}

func (s *Service) process(ctx context.Context, r *Run, in Input, log *slog.Logger) error {
	collection, err := verse.Load(in.VersesPath)
	if err != nil {
		return err
	}
	log.Info("verses loaded", slog.Int("count", len(collection.Verses)), slog.String("title", collection.Title))

	strategy, err := s.segmenter(in, log)
	if err != nil {
		return err
	}

	if err := r.TransitionTo(StatusSegmenting); err != nil {
		return err
	}
	s.save(ctx, r, log)

	buf, err := s.decoder.Decode(ctx, in.AudioPath)
	if err != nil {
		return fmt.Errorf("decode recording: %w", err)
	}
	r.SetSourceDuration(buf.Duration())

	segments, err := strategy.Segment(buf, collection.Verses)
	if err != nil {
		return err
	}
	r.SetSegments(segments)
	log.Info("recording segmented", slog.Int("segments", len(segments)), slog.Int64("duration_ms", buf.Duration()))

	if err := r.TransitionTo(StatusExporting); err != nil {
		return err
	}
	s.save(ctx, r, log)

	results, err := s.exporter.Export(ctx, segments)
	r.RecordExport(results)
	return err
}

// segmenter builds the strategy for in.Method.
func (s *Service) segmenter(in Input, log *slog.Logger) (segment.Segmenter, error) {
	switch in.Method {
	case segment.MethodDuration:
		return segment.Uniform{}, nil
	case segment.MethodSilence:
		if err := in.Silence.Validate(); err != nil {
			return nil, err
		}
		return segment.NewSilence(in.Silence, in.Shortfall, log), nil
	case segment.MethodTiming:
		if in.TimingPath == "" {
			return nil, ErrTimingFileRequired
		}
		doc, err := verse.LoadTiming(in.TimingPath)
		if err != nil {
			return nil, err
		}
		return segment.NewTiming(doc), nil
	default:
		_, err := segment.ParseMethod(string(in.Method))
		return nil, err
	}
}

func (s *Service) save(ctx context.Context, r *Run, log *slog.Logger) {
	if err := s.repo.Save(ctx, r); err != nil {
		log.Warn("failed to save run", slog.String("error", err.Error()))
	}
}

// CreateTimingTemplate writes a zeroed timing document for the verses in
// versesPath to outPath, or to verse.DefaultTimingPath when outPath is
// empty. It returns the written path.
func (s *Service) CreateTimingTemplate(versesPath, outPath string) (string, error) {
	collection, err := verse.Load(versesPath)
	if err != nil {
		return "", err
	}
	if outPath == "" {
		outPath = verse.DefaultTimingPath(versesPath)
	}
	if err := verse.SaveTiming(outPath, segment.NewTimingTemplate(collection.Verses)); err != nil {
		return "", err
	}
	s.logger.Info("timing template written",
		slog.String("path", outPath),
		slog.Int("verses", len(collection.Verses)),
	)
	return outPath, nil
}
