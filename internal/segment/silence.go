package segment

import (
	"fmt"
	"log/slog"

	"github.com/maauso/versesplit/internal/audio"
	"github.com/maauso/versesplit/internal/verse"
)

// ShortfallPolicy decides what Silence does when it detects fewer chunks
// than there are verses.
type ShortfallPolicy string

const (
	// ShortfallFail aborts the run with ErrInsufficientChunks.
	ShortfallFail ShortfallPolicy = "fail"
	// ShortfallUniform falls back to Uniform over the whole recording.
	ShortfallUniform ShortfallPolicy = "uniform"
)

// ParseShortfallPolicy converts a CLI/config name to a ShortfallPolicy.
// The empty string selects ShortfallFail.
func ParseShortfallPolicy(s string) (ShortfallPolicy, error) {
	switch p := ShortfallPolicy(s); p {
	case "":
		return ShortfallFail, nil
	case ShortfallFail, ShortfallUniform:
		return p, nil
	default:
		return "", fmt.Errorf("%w: shortfall policy %q (want fail or uniform)", ErrInvalidInput, s)
	}
}

// Silence splits a recording on detected silence and reconciles the number
// of chunks with the number of verses.
type Silence struct {
	opts      audio.SilenceOpts
	shortfall ShortfallPolicy
	logger    *slog.Logger
}

var _ Segmenter = (*Silence)(nil)

// NewSilence creates a Silence strategy. An empty policy means ShortfallFail.
func NewSilence(opts audio.SilenceOpts, shortfall ShortfallPolicy, logger *slog.Logger) *Silence {
	if logger == nil {
		logger = slog.Default()
	}
	if shortfall == "" {
		shortfall = ShortfallFail
	}
	return &Silence{opts: opts, shortfall: shortfall, logger: logger}
}

// Segment implements Segmenter.
//
// With C detected chunks and N verses: C == N maps chunk i to verse i;
// C > N merges chunks into N ordered groups (see GroupSizes); C < N is
// handled by the shortfall policy.
func (s *Silence) Segment(buf *audio.Buffer, verses []verse.Verse) ([]Segment, error) {
	if err := checkInput(buf, verses); err != nil {
		return nil, err
	}

	chunks, err := audio.SplitOnSilence(buf, s.opts)
	if err != nil {
		return nil, err
	}

	n := len(verses)
	s.logger.Info("silence detection finished",
		slog.Int("chunks", len(chunks)),
		slog.Int("verses", n),
		slog.String("params", s.opts.String()),
	)

	if len(chunks) < n {
		switch s.shortfall {
		case ShortfallUniform:
			s.logger.Warn("fewer chunks than verses, falling back to uniform durations",
				slog.Int("chunks", len(chunks)),
				slog.Int("verses", n),
			)
			return Uniform{}.Segment(buf, verses)
		default:
			return nil, fmt.Errorf("%w: detected %d chunks for %d verses (%s)",
				ErrInsufficientChunks, len(chunks), n, s.opts)
		}
	}

	if len(chunks) > n {
		s.logger.Info("merging excess chunks",
			slog.Int("chunks", len(chunks)),
			slog.Int("verses", n),
		)
		if chunks, err = MergeChunks(chunks, n); err != nil {
			return nil, err
		}
	}

	segments := make([]Segment, n)
	for i, v := range verses {
		segments[i] = Segment{
			VerseID:  v.ID.String(),
			Timeline: chunks[i].Timeline,
			Audio:    chunks[i].Audio,
		}
	}
	return segments, nil
}

// GroupSizes distributes c items over n groups: every group gets c/n items
// and the first c%n groups get one more.
func GroupSizes(c, n int) []int {
	if n <= 0 || c < 0 {
		return nil
	}
	base, extra := c/n, c%n
	sizes := make([]int, n)
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// MergeChunks concatenates consecutive chunks into n groups sized by
// GroupSizes. Chunk order is preserved within and across groups; each
// group's Timeline runs from its first chunk's start to its last chunk's end.
func MergeChunks(chunks []audio.Chunk, n int) ([]audio.Chunk, error) {
	if n <= 0 || len(chunks) < n {
		return nil, fmt.Errorf("%w: cannot merge %d chunks into %d groups", ErrInvalidInput, len(chunks), n)
	}

	merged := make([]audio.Chunk, 0, n)
	next := 0
	for i, size := range GroupSizes(len(chunks), n) {
		members := chunks[next : next+size]
		next += size

		parts := make([]*audio.Buffer, len(members))
		for j, m := range members {
			parts[j] = m.Audio
		}
		joined, err := audio.Concat(parts...)
		if err != nil {
			return nil, fmt.Errorf("merge group %d: %w", i, err)
		}

		merged = append(merged, audio.Chunk{
			Index: i,
			Timeline: audio.Timeline{
				Start: members[0].Timeline.Start,
				End:   members[len(members)-1].Timeline.End,
			},
			Audio: joined,
		})
	}
	return merged, nil
}
