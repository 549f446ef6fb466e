// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/segment"
)

// ErrInvalidConfig is returned when a configuration value is out of range.
var ErrInvalidConfig = errors.New("config: invalid value")

// Config holds all configuration for the application.
type Config struct {
	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format" validate:"oneof=text json"`
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level" validate:"oneof=debug info warn warning error"`
	LogFile   string `env:"LOG_FILE" json:"log_file,omitempty"` // Rotated file, in addition to stderr

	// Media settings
	FFmpegPath string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path" validate:"required"`
	TempDir    string `env:"TEMP_DIR" json:"temp_dir,omitempty"` // Empty means <os temp>/versesplit

	// Export settings
	ExportFormat         string `env:"EXPORT_FORMAT, default=mp3" json:"export_format" validate:"oneof=mp3 wav flac ogg m4a"`
	ExportBitrate        string `env:"EXPORT_BITRATE, default=128k" json:"export_bitrate"`
	MaxConcurrentExports int    `env:"MAX_CONCURRENT_EXPORTS, default=3" json:"max_concurrent_exports" validate:"gt=0"`

	// Silence detection settings
	SilenceMinMs     int     `env:"SILENCE_MIN_MS, default=1000" json:"silence_min_ms" validate:"gt=0"`
	SilenceThreshDB  float64 `env:"SILENCE_THRESH_DB, default=-40" json:"silence_thresh_db"`
	SilenceKeepMs    int     `env:"SILENCE_KEEP_MS, default=500" json:"silence_keep_ms" validate:"gte=0"`
	SilenceShortfall string  `env:"SILENCE_SHORTFALL, default=fail" json:"silence_shortfall" validate:"oneof=fail uniform"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty" validate:"required_with=S3Bucket"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty" validate:"omitempty,url"`
	S3Prefix           string `env:"S3_PREFIX" json:"s3_prefix,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// SilenceOpts returns the silence detection parameters.
func (c *Config) SilenceOpts() audio.SilenceOpts {
	opts := audio.DefaultSilenceOpts()
	opts.MinSilenceMs = c.SilenceMinMs
	opts.SilenceThreshDB = c.SilenceThreshDB
	opts.KeepSilenceMs = c.SilenceKeepMs
	return opts
}

// ShortfallPolicy returns the configured silence shortfall policy.
func (c *Config) ShortfallPolicy() (segment.ShortfallPolicy, error) {
	return segment.ParseShortfallPolicy(c.SilenceShortfall)
}

// Load reads configuration from environment variables using go-envconfig.
//
// Variables from envFiles are loaded first without overriding the real
// environment. With no envFiles, ./.env is loaded if it exists.
func Load(ctx context.Context, envFiles ...string) (*Config, error) {
	if err := godotenv.Load(envFiles...); err != nil {
		if len(envFiles) > 0 || !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: load env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(ctx, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that every value is usable.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fmt.Sprintf("%s=%v fails %q", fe.Field(), fe.Value(), fe.ActualTag())
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}

// NewLogger creates a structured logger writing to w.
// When LogFormat is "json", it outputs JSON logs; otherwise human-readable
// text. When LogFile is set, logs are also written to a size-rotated file.
// The returned Closer releases the log file.
func (c *Config) NewLogger(w io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer = nopCloser{}
	if c.LogFile != "" {
		rotator := &lumberjack.Logger{
			Filename:   c.LogFile,
			MaxSize:    20, // megabytes
			MaxBackups: 3,
			MaxAge:     30,
		}
		w = io.MultiWriter(w, rotator)
		closer = rotator
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{LogFormat: %s, LogLevel: %s, LogFile: %s, FFmpegPath: %s, TempDir: %s, ExportFormat: %s, ExportBitrate: %s, MaxConcurrentExports: %d, Silence: {%dms, %.1fdB, keep %dms, %s}, S3Bucket: %s, S3Region: %s, S3Endpoint: %s, S3Prefix: %s, AWSAccessKeyID: %s, AWSSecretAccessKey: %s}",
		c.LogFormat,
		c.LogLevel,
		c.LogFile,
		c.FFmpegPath,
		c.TempDir,
		c.ExportFormat,
		c.ExportBitrate,
		c.MaxConcurrentExports,
		c.SilenceMinMs,
		c.SilenceThreshDB,
		c.SilenceKeepMs,
		c.SilenceShortfall,
		c.S3Bucket,
		c.S3Region,
		c.S3Endpoint,
		c.S3Prefix,
		mask(c.AWSAccessKeyID),
		mask(c.AWSSecretAccessKey),
	)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "****"
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
