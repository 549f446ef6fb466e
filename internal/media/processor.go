// Package media decodes source recordings into PCM and encodes exported
// segments, shelling out to ffmpeg for anything beyond plain WAV.
package media

import "context"

// Transcoder converts audio files between formats.
// Implementations should use ffmpeg or similar tools.
type Transcoder interface {
	// ToWAV decodes src into a 16-bit PCM WAV file at dst.
	ToWAV(ctx context.Context, src, dst string) error

	// Encode re-encodes the WAV file src into dst. The output format follows
	// dst's extension; bitrate may be empty.
	Encode(ctx context.Context, src, dst, bitrate string) error
}

// Prober reports container-level metadata without decoding.
type Prober interface {
	// Duration returns the duration of the media file at path in seconds.
	Duration(ctx context.Context, path string) (float64, error)
}
