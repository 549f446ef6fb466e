package segment

import (
	"fmt"
	"math"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/verse"
)

// previewRunes is the maximum length, in characters, of template text previews.
const previewRunes = 50

// Timing slices a recording at explicit per-verse boundaries. Entries are
// matched to verses by id, not by position; entries for unknown ids are ignored.
type Timing struct {
	entries map[string]verse.TimingEntry
}

var _ Segmenter = (*Timing)(nil)

// NewTiming creates a Timing strategy from a timing document.
func NewTiming(doc *verse.TimingDocument) *Timing {
	return &Timing{entries: doc.ByID()}
}

// Segment implements Segmenter. It fails on the first verse without an
// entry or with a range that is empty or outside the recording.
func (t *Timing) Segment(buf *audio.Buffer, verses []verse.Verse) ([]Segment, error) {
	if err := checkInput(buf, verses); err != nil {
		return nil, err
	}

	total := buf.Duration()
	segments := make([]Segment, len(verses))
	for i, v := range verses {
		id := v.ID.String()
		entry, ok := t.entries[id]
		if !ok {
			return nil, fmt.Errorf("%w: verse %s", ErrMissingTimingEntry, id)
		}

		tl := audio.Timeline{Start: secondsToMs(entry.StartTime), End: secondsToMs(entry.EndTime)}
		if tl.End <= tl.Start || tl.Start < 0 || tl.End > total {
			return nil, fmt.Errorf("%w: verse %s: %.3fs-%.3fs against recording of %.3fs",
				ErrInvalidRange, id, entry.StartTime, entry.EndTime, float64(total)/1000)
		}

		clip, err := buf.Slice(tl)
		if err != nil {
			return nil, fmt.Errorf("%w: verse %s: %w", ErrInvalidRange, id, err)
		}
		segments[i] = Segment{VerseID: id, Timeline: tl, Audio: clip}
	}
	return segments, nil
}

func secondsToMs(s float64) int64 {
	return int64(math.Round(s * 1000))
}

// NewTimingTemplate returns a timing document with one zeroed entry per
// verse, in verse order, for manual editing. Text previews are cut to at
// most 50 characters, ending in "..." when shortened.
func NewTimingTemplate(verses []verse.Verse) *verse.TimingDocument {
	doc := &verse.TimingDocument{Verses: make([]verse.TimingEntry, len(verses))}
	for i, v := range verses {
		doc.Verses[i] = verse.TimingEntry{
			ID:       v.ID,
			Sanskrit: preview(v.Text()),
		}
	}
	return doc
}

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewRunes {
		return text
	}
	return string(r[:previewRunes-3]) + "..."
}
