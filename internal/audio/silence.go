package audio

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidSilenceOpts is returned when silence detection parameters are unusable.
var ErrInvalidSilenceOpts = errors.New("invalid silence options")

// SilenceOpts configures energy-based silence detection.
type SilenceOpts struct {
	// MinSilenceMs is the minimum length of a quiet run, in milliseconds,
	// for it to count as silence.
	// Default: 1000 milliseconds.
	MinSilenceMs int

	// SilenceThreshDB is the RMS level in dBFS at or below which audio is
	// considered silence. Signed, no range restriction.
	// Default: -40 dBFS.
	SilenceThreshDB float64

	// KeepSilenceMs is the padding of surrounding silence retained on each
	// side of a detected chunk so onsets and offsets are not clipped.
	// Default: 500 milliseconds.
	KeepSilenceMs int

	// SeekStepMs is the stride between analysis windows.
	// Default: 1 millisecond.
	SeekStepMs int
}

// DefaultSilenceOpts returns the default options for silence detection.
func DefaultSilenceOpts() SilenceOpts {
	return SilenceOpts{
		MinSilenceMs:    1000,
		SilenceThreshDB: -40,
		KeepSilenceMs:   500,
		SeekStepMs:      1,
	}
}

// Validate checks that the options can drive detection.
func (o SilenceOpts) Validate() error {
	if o.MinSilenceMs <= 0 {
		return fmt.Errorf("%w: min silence must be > 0, got %d ms", ErrInvalidSilenceOpts, o.MinSilenceMs)
	}
	if o.KeepSilenceMs < 0 {
		return fmt.Errorf("%w: keep silence must be >= 0, got %d ms", ErrInvalidSilenceOpts, o.KeepSilenceMs)
	}
	if o.SeekStepMs <= 0 {
		return fmt.Errorf("%w: seek step must be > 0, got %d ms", ErrInvalidSilenceOpts, o.SeekStepMs)
	}
	return nil
}

// String returns the parameters for error messages and logs.
func (o SilenceOpts) String() string {
	return fmt.Sprintf("min_silence=%dms thresh=%.1fdBFS keep=%dms step=%dms",
		o.MinSilenceMs, o.SilenceThreshDB, o.KeepSilenceMs, o.SeekStepMs)
}

// Chunk is a contiguous non-silent run found by SplitOnSilence, including the
// retained padding.
type Chunk struct {
	// Index is the zero-based position of the chunk in the recording.
	Index int
	// Timeline is the range of the source recording the chunk covers.
	Timeline Timeline
	// Audio holds the chunk's samples.
	Audio *Buffer
}

// DetectSilence returns the silent ranges of b in ascending order.
// A recording shorter than MinSilenceMs has no silent ranges.
func DetectSilence(b *Buffer, opts SilenceOpts) ([]Timeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	segLen := b.Duration()
	minLen := int64(opts.MinSilenceMs)
	step := int64(opts.SeekStepMs)
	if segLen < minLen {
		return nil, nil
	}

	thresh := math.Pow(10, opts.SilenceThreshDB/20) * b.maxAmplitude()
	prefix := b.energyPrefix()

	var starts []int64
	check := func(i int64) {
		if b.windowRMS(prefix, i, i+minLen) <= thresh {
			starts = append(starts, i)
		}
	}
	lastStart := segLen - minLen
	for i := int64(0); i <= lastStart; i += step {
		check(i)
	}
	if lastStart%step != 0 {
		check(lastStart)
	}
	if len(starts) == 0 {
		return nil, nil
	}

	var ranges []Timeline
	prev := starts[0]
	rangeStart := prev
	for _, s := range starts[1:] {
		continuous := s == prev+step
		hasGap := s > prev+minLen
		if !continuous && hasGap {
			ranges = append(ranges, Timeline{Start: rangeStart, End: prev + minLen})
			rangeStart = s
		}
		prev = s
	}
	ranges = append(ranges, Timeline{Start: rangeStart, End: prev + minLen})
	return ranges, nil
}

// DetectNonsilent returns the complement of DetectSilence within [0, duration).
// A fully silent recording returns no ranges.
func DetectNonsilent(b *Buffer, opts SilenceOpts) ([]Timeline, error) {
	silent, err := DetectSilence(b, opts)
	if err != nil {
		return nil, err
	}
	segLen := b.Duration()
	if len(silent) == 0 {
		return []Timeline{{Start: 0, End: segLen}}, nil
	}
	if silent[0].Start == 0 && silent[0].End == segLen {
		return nil, nil
	}

	var ranges []Timeline
	var prevEnd int64
	for _, s := range silent {
		ranges = append(ranges, Timeline{Start: prevEnd, End: s.Start})
		prevEnd = s.End
	}
	if last := silent[len(silent)-1]; last.End != segLen {
		ranges = append(ranges, Timeline{Start: prevEnd, End: segLen})
	}
	if ranges[0].Start == 0 && ranges[0].End == 0 {
		ranges = ranges[1:]
	}
	return ranges, nil
}

// SplitOnSilence cuts b into its non-silent runs, each widened by
// KeepSilenceMs on both sides. Where widened neighbours would overlap they
// are split at the midpoint of the overlap. Chunks are clamped to the
// recording and returned in order.
func SplitOnSilence(b *Buffer, opts SilenceOpts) ([]Chunk, error) {
	nonsilent, err := DetectNonsilent(b, opts)
	if err != nil {
		return nil, err
	}

	keep := int64(opts.KeepSilenceMs)
	ranges := make([]Timeline, len(nonsilent))
	for i, r := range nonsilent {
		ranges[i] = Timeline{Start: r.Start - keep, End: r.End + keep}
	}
	for i := 0; i+1 < len(ranges); i++ {
		if lastEnd, nextStart := ranges[i].End, ranges[i+1].Start; nextStart < lastEnd {
			mid := (lastEnd + nextStart) / 2
			ranges[i].End = mid
			ranges[i+1].Start = mid
		}
	}

	total := b.Duration()
	chunks := make([]Chunk, 0, len(ranges))
	for i, r := range ranges {
		t := Timeline{Start: max(r.Start, 0), End: min(r.End, total)}
		chunks = append(chunks, Chunk{
			Index:    i,
			Timeline: t,
			Audio:    b.slice(t),
		})
	}
	return chunks, nil
}

// energyPrefix returns cumulative sums of squared samples per frame boundary:
// prefix[f] is the energy of frames [0, f).
func (b *Buffer) energyPrefix() []float64 {
	ch := b.Channels()
	frames := b.Frames()
	prefix := make([]float64, frames+1)
	data := b.pcm.Data
	for f := 0; f < frames; f++ {
		var e float64
		for c := 0; c < ch; c++ {
			v := float64(data[f*ch+c])
			e += v * v
		}
		prefix[f+1] = prefix[f] + e
	}
	return prefix
}

// windowRMS returns the RMS over all samples in the millisecond window [from, to).
func (b *Buffer) windowRMS(prefix []float64, from, to int64) float64 {
	a, z := b.frameAt(from), b.frameAt(to)
	n := (z - a) * b.Channels()
	if n <= 0 {
		return 0
	}
	energy := prefix[z] - prefix[a]
	if energy < 0 {
		energy = 0
	}
	return math.Sqrt(energy / float64(n))
}
