package merge

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hotrod462/mikey/internal/metrics"
	"github.com/hotrod462/mikey/internal/transcribe"
)

// DefaultEpsilon is the per-offset bias added to alignment scores. It breaks
// ties between equally dense alignments in favor of the longer one while
// staying far below the weight of a single word match.
const DefaultEpsilon = 1e-4

// AlignmentError reports an internal invariant violation in the overlap
// aligner: the two comparison windows at some offset had different lengths.
type AlignmentError struct {
	Offset     int
	LeftWords  int
	RightWords int
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("alignment windows at offset %d have unequal lengths: left %d, right %d",
		e.Offset, e.LeftWords, e.RightWords)
}

// Resolver removes duplicated boundary text between consecutive chunks.
type Resolver struct {
	// Epsilon biases alignment scoring toward longer overlaps. Zero means
	// DefaultEpsilon.
	Epsilon float64

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewResolver creates an overlap resolver.
func NewResolver(logger *slog.Logger, m *metrics.Metrics) *Resolver {
	return &Resolver{Epsilon: DefaultEpsilon, logger: logger, metrics: m}
}

// Resolve flattens ordered chunk results into one continuous segment list.
// For every chunk except the last, segments reaching into the next chunk's
// window are folded into a single boundary segment and spliced against the
// next chunk's opening segment. Boundaries whose texts share at most one word
// are left unspliced, keeping both versions rather than guessing.
func (r *Resolver) Resolve(chunks []transcribe.ChunkResult) ([]transcribe.Segment, error) {
	var out []transcribe.Segment
	var pending *transcribe.Segment

	for i, chunk := range chunks {
		segs := chunk.Segments

		if pending != nil {
			if len(segs) == 0 {
				out = append(out, *pending)
			} else {
				spliced, ok, err := r.splice(*pending, segs[0])
				if err != nil {
					return nil, err
				}
				if ok {
					out = append(out, spliced)
					if r.metrics != nil {
						r.metrics.RecordSplice()
					}
				} else {
					// Degenerate overlap. Keeping both duplicates is noisy but
					// never loses speech.
					out = append(out, *pending, segs[0])
					if r.metrics != nil {
						r.metrics.RecordSpliceRejection()
					}
					r.logger.Warn("Boundary left unspliced, insufficient word overlap",
						slog.Int("chunk", chunk.Index),
					)
				}
				segs = segs[1:]
			}
			pending = nil
		}

		if i == len(chunks)-1 {
			out = append(out, segs...)
			continue
		}

		nextStart := chunks[i+1].Start
		var boundary []transcribe.Segment
		for _, s := range segs {
			if s.End < nextStart {
				out = append(out, s)
			} else {
				boundary = append(boundary, s)
			}
		}
		if len(boundary) > 0 {
			merged := concatSegments(boundary)
			pending = &merged
		}
	}

	return out, nil
}

// splice aligns the duplicated words of two boundary texts and joins them at
// the midpoint of the best alignment. It reports false when no offset yields
// more than one matching word.
func (r *Resolver) splice(left, right transcribe.Segment) (transcribe.Segment, bool, error) {
	leftWords := strings.Fields(left.Text)
	rightWords := strings.Fields(right.Text)
	if len(leftWords) == 0 || len(rightWords) == 0 {
		return transcribe.Segment{}, false, nil
	}

	epsilon := r.Epsilon
	if epsilon == 0 {
		epsilon = DefaultEpsilon
	}

	bestScore := -1.0
	bestOffset := 0
	bestMatches := 0

	// The last meaningful offset leaves one word in each window; beyond it
	// the windows are empty.
	for offset := 1; offset < len(leftWords)+len(rightWords); offset++ {
		lw, rw := alignmentWindows(leftWords, rightWords, offset)
		matches, err := countMatches(lw, rw, offset)
		if err != nil {
			return transcribe.Segment{}, false, err
		}

		score := float64(matches)/float64(offset) + float64(offset)*epsilon
		if score > bestScore {
			bestScore = score
			bestOffset = offset
			bestMatches = matches
		}
	}

	// One shared word is as likely coincidence as overlap.
	if bestMatches <= 1 {
		return transcribe.Segment{}, false, nil
	}

	lw, _ := alignmentWindows(leftWords, rightWords, bestOffset)
	mid := len(lw) / 2
	leftEnd := leftWindowStart(leftWords, bestOffset) + mid
	rightStart := rightWindowStart(leftWords, rightWords, bestOffset) + mid

	text := strings.Join(leftWords[:leftEnd], " ")
	if tail := strings.Join(rightWords[rightStart:], " "); tail != "" {
		if text != "" {
			text += " "
		}
		text += tail
	}

	r.logger.Debug("Spliced chunk boundary",
		slog.Int("offset", bestOffset),
		slog.Int("matches", bestMatches),
	)

	return transcribe.Segment{
		Start:  left.Start,
		End:    right.End,
		Text:   text,
		Source: left.Source,
	}, true, nil
}

// alignmentWindows returns the word windows compared at the given offset.
// Offset k slides the right text k words leftward across the left text's
// tail; the windows are the regions where the two texts overlap.
func alignmentWindows(left, right []string, offset int) ([]string, []string) {
	return left[leftWindowStart(left, offset) : len(left)-max(0, offset-len(right))],
		right[rightWindowStart(left, right, offset):min(offset, len(right))]
}

func leftWindowStart(left []string, offset int) int {
	return max(0, len(left)-offset)
}

func rightWindowStart(left, right []string, offset int) int {
	return max(0, offset-len(left))
}

// countMatches counts positions where the two windows agree. The windows must
// have equal lengths; a mismatch means the sliding arithmetic is broken and
// any splice computed from it would corrupt the transcript.
func countMatches(left, right []string, offset int) (int, error) {
	if len(left) != len(right) {
		return 0, &AlignmentError{Offset: offset, LeftWords: len(left), RightWords: len(right)}
	}

	matches := 0
	for i := range left {
		if normalizeWord(left[i]) == normalizeWord(right[i]) {
			matches++
		}
	}
	return matches, nil
}

// normalizeWord lowercases and strips trailing punctuation so "Fox," still
// matches "fox".
func normalizeWord(w string) string {
	return strings.ToLower(strings.Trim(w, ".,!?;:\"'"))
}

// concatSegments joins boundary segments into one, spanning from the first
// start to the latest end.
func concatSegments(segs []transcribe.Segment) transcribe.Segment {
	out := segs[0]
	texts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Text != "" {
			texts = append(texts, s.Text)
		}
		if s.End > out.End {
			out.End = s.End
		}
	}
	out.Text = strings.Join(texts, " ")
	return out
}
