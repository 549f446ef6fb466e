package segment

import (
	"fmt"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/verse"
)

// Uniform splits a recording into equal-length intervals, one per verse.
type Uniform struct{}

var _ Segmenter = Uniform{}

// Segment implements Segmenter.
func (Uniform) Segment(buf *audio.Buffer, verses []verse.Verse) ([]Segment, error) {
	if err := checkInput(buf, verses); err != nil {
		return nil, err
	}

	timelines, err := UniformTimelines(buf.Duration(), len(verses))
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, len(verses))
	for i, v := range verses {
		clip, err := buf.Slice(timelines[i])
		if err != nil {
			return nil, fmt.Errorf("verse %s: %w", v.ID, err)
		}
		segments[i] = Segment{VerseID: v.ID.String(), Timeline: timelines[i], Audio: clip}
	}
	return segments, nil
}

// UniformTimelines divides [0, total) into n contiguous intervals of
// total/n milliseconds. The last interval ends at total exactly, absorbing
// the division remainder.
func UniformTimelines(total int64, n int) ([]audio.Timeline, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: verse count %d", ErrInvalidInput, n)
	}
	if total <= 0 {
		return nil, fmt.Errorf("%w: duration %d ms", ErrInvalidInput, total)
	}
	step := total / int64(n)
	if step == 0 {
		return nil, fmt.Errorf("%w: %d ms cannot hold %d verses", ErrInvalidInput, total, n)
	}

	out := make([]audio.Timeline, n)
	for i := range out {
		start := int64(i) * step
		end := start + step
		if i == n-1 {
			end = total
		}
		out[i] = audio.Timeline{Start: start, End: end}
	}
	return out, nil
}
