// Package segment is the segmentation engine: it carves one decoded
// recording into exactly one audio segment per verse, in verse order.
//
// Three strategies are provided. Uniform divides the recording into equal
// intervals, Silence detects spoken runs and reconciles their count with the
// verse count, and Timing slices at manually authored boundaries. Each is a
// pure function of its inputs and never mutates the source buffer.
package segment

import (
	"errors"
	"fmt"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/verse"
)

// Static errors for segmentation.
var (
	// ErrInvalidInput is returned for zero verses, an empty recording, or a
	// recording too short to give every verse audio.
	ErrInvalidInput = errors.New("invalid segmentation input")
	// ErrInsufficientChunks is returned when silence detection finds fewer
	// chunks than verses and the shortfall policy is ShortfallFail.
	ErrInsufficientChunks = errors.New("insufficient silence chunks")
	// ErrMissingTimingEntry is returned when a verse has no timing entry.
	ErrMissingTimingEntry = errors.New("missing timing entry")
	// ErrInvalidRange is returned when a timing entry does not describe a
	// non-empty range inside the recording.
	ErrInvalidRange = errors.New("invalid timing range")
	// ErrUnknownMethod is returned by ParseMethod for unrecognized names.
	ErrUnknownMethod = errors.New("unknown segmentation method")
)

// Segment is the audio for one verse.
type Segment struct {
	// VerseID is the id of the verse this segment belongs to.
	VerseID string
	// Timeline is the range of the source recording the segment covers.
	// For merged silence chunks it spans the first member's start to the
	// last member's end.
	Timeline audio.Timeline
	// Audio holds the segment's samples.
	Audio *audio.Buffer
}

// Segmenter produces one segment per verse from a recording.
type Segmenter interface {
	// Segment returns len(verses) segments, segment i belonging to verses[i].
	Segment(buf *audio.Buffer, verses []verse.Verse) ([]Segment, error)
}

// Method names a segmentation strategy.
type Method string

const (
	// MethodDuration divides the recording into equal intervals.
	MethodDuration Method = "duration"
	// MethodSilence splits on detected silence and reconciles chunk counts.
	MethodSilence Method = "silence"
	// MethodTiming slices at explicit per-verse boundaries.
	MethodTiming Method = "timing"
)

// ParseMethod converts a CLI/config name to a Method.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodDuration, MethodSilence, MethodTiming:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q (want duration, silence or timing)", ErrUnknownMethod, s)
	}
}

func checkInput(buf *audio.Buffer, verses []verse.Verse) error {
	if len(verses) == 0 {
		return fmt.Errorf("%w: no verses", ErrInvalidInput)
	}
	if buf == nil || buf.Duration() == 0 {
		return fmt.Errorf("%w: empty recording", ErrInvalidInput)
	}
	return nil
}
