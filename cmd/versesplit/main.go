// Package main provides the versesplit command line tool.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maauso/versesplit/internal/bootstrap"
	"github.com/maauso/versesplit/internal/config"
	"github.com/maauso/versesplit/internal/run"
	"github.com/maauso/versesplit/internal/segment"
)

const version = "0.1.0"

func main() {
	if err := execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

type flags struct {
	method       string
	outputDir    string
	timingFile   string
	createTiming bool
	timingOut    string
	format       string
	bitrate      string
	minSilenceMs int
	silenceDB    float64
	keepSilence  int
	shortfall    string
	noManifest   bool
	envFile      string
}

func newRootCmd() *cobra.Command {
	f := &flags{}
	cmd := &cobra.Command{
		Use:   "versesplit <audio_file> <json_file>",
		Short: "Split a recitation recording into one audio file per verse",
		Long: `versesplit cuts a recording of consecutive verses into one file per verse.

Methods:
  duration   equal-length segments, one per verse
  silence    split on pauses, merging chunks when there are more than verses
  timing     explicit start/end seconds per verse from a timing file

Use --create-timing to write a zeroed timing template for the verse list.`,
		Example: `  versesplit recitation.mp3 gita.json
  versesplit recitation.mp3 gita.json --method silence --min-silence-ms 800
  versesplit recitation.mp3 gita.json --create-timing
  versesplit recitation.mp3 gita.json --method timing --timing-file timing-gita.json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSplit(cmd, f, args[0], args[1])
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.method, "method", string(segment.MethodDuration), "Splitting method: duration, silence or timing")
	fl.StringVar(&f.outputDir, "output-dir", "public/audio", "Output directory for verse files")
	fl.StringVar(&f.timingFile, "timing-file", "", "Timing file for the timing method")
	fl.BoolVar(&f.createTiming, "create-timing", false, "Write a timing template and exit")
	fl.StringVar(&f.timingOut, "timing-out", "", "Path for --create-timing (default timing-<json name>.json)")
	fl.StringVar(&f.format, "format", "", "Export format: mp3, wav, flac, ogg or m4a (env EXPORT_FORMAT)")
	fl.StringVar(&f.bitrate, "bitrate", "", "Encoder bitrate, e.g. 192k (env EXPORT_BITRATE)")
	fl.IntVar(&f.minSilenceMs, "min-silence-ms", 0, "Minimum pause length in ms (env SILENCE_MIN_MS)")
	fl.Float64Var(&f.silenceDB, "silence-thresh", 0, "Silence threshold in dBFS (env SILENCE_THRESH_DB)")
	fl.IntVar(&f.keepSilence, "keep-silence-ms", 0, "Silence kept around each chunk in ms (env SILENCE_KEEP_MS)")
	fl.StringVar(&f.shortfall, "on-shortfall", "", "When silence finds too few chunks: fail or uniform (env SILENCE_SHORTFALL)")
	fl.BoolVar(&f.noManifest, "no-manifest", false, "Do not write manifest.json")
	fl.StringVar(&f.envFile, "env-file", "", "Load environment variables from this file")

	return cmd
}

// applyFlags copies explicitly set flags over the environment configuration.
func applyFlags(cmd *cobra.Command, f *flags, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("format") {
		cfg.ExportFormat = f.format
	}
	if changed("bitrate") {
		cfg.ExportBitrate = f.bitrate
	}
	if changed("min-silence-ms") {
		cfg.SilenceMinMs = f.minSilenceMs
	}
	if changed("silence-thresh") {
		cfg.SilenceThreshDB = f.silenceDB
	}
	if changed("keep-silence-ms") {
		cfg.SilenceKeepMs = f.keepSilence
	}
	if changed("on-shortfall") {
		cfg.SilenceShortfall = f.shortfall
	}
}

func runSplit(cmd *cobra.Command, f *flags, audioPath, versesPath string) error {
	ctx := cmd.Context()

	var envFiles []string
	if f.envFile != "" {
		envFiles = append(envFiles, f.envFile)
	}
	cfg, err := config.Load(ctx, envFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, f, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	method, err := segment.ParseMethod(f.method)
	if err != nil {
		return err
	}
	if method == segment.MethodTiming && f.timingFile == "" && !f.createTiming {
		return run.ErrTimingFileRequired
	}
	shortfall, err := cfg.ShortfallPolicy()
	if err != nil {
		return err
	}

	logger, closer := cfg.NewLogger(cmd.ErrOrStderr())
	defer func() { _ = closer.Close() }()
	logger.Debug("configuration loaded", slog.String("config", cfg.String()))

	deps, err := bootstrap.NewDependencies(ctx, cfg, bootstrap.Options{OutputDir: f.outputDir}, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}

	out := cmd.OutOrStdout()
	if f.createTiming {
		path, err := deps.Service.CreateTimingTemplate(versesPath, f.timingOut)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created timing template: %s\n", path)
		fmt.Fprintln(out, "Fill in start and end seconds for each verse, then run with --method timing --timing-file", path)
		return nil
	}

	r, err := deps.Service.Process(ctx, run.Input{
		AudioPath:    audioPath,
		VersesPath:   versesPath,
		Method:       method,
		TimingPath:   f.timingFile,
		Silence:      cfg.SilenceOpts(),
		Shortfall:    shortfall,
		SkipManifest: f.noManifest,
	})
	if r != nil {
		printSummary(out, r, deps.Exporter.OutDir())
	}
	return err
}

func printSummary(w io.Writer, r *run.Run, outDir string) {
	for _, v := range r.Verses {
		switch v.Status {
		case run.VerseStatusExported:
			fmt.Fprintf(w, "verse %s: %s (%.2fs)\n", v.VerseID, v.File, float64(v.DurationMs)/1000)
		case run.VerseStatusFailed:
			fmt.Fprintf(w, "verse %s: FAILED %s\n", v.VerseID, v.Error)
		}
	}
	exported, failed := r.Counts()
	fmt.Fprintf(w, "%s: %d exported, %d failed, output in %s\n", r.Status, exported, failed, outDir)
}
