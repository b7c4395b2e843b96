package merge

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/hotrod462/mikey/internal/transcribe"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResolveSplicesOverlappingBoundary(t *testing.T) {
	// Two chunks sharing three words of audio around the boundary at 10s.
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 13,
			Segments: []transcribe.Segment{
				{Start: 0, End: 5, Text: "good morning everyone"},
				{Start: 8, End: 13, Text: "the quick brown fox jumps over"},
			},
		},
		{
			Index: 1, Start: 10, End: 20,
			Segments: []transcribe.Segment{
				{Start: 10, End: 16, Text: "fox jumps over the lazy dog"},
				{Start: 17, End: 20, Text: "thanks for listening"},
			},
		},
	}

	r := NewResolver(testLogger(), nil)
	segments, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(segments) != 3 {
		t.Fatalf("Expected 3 segments, got %d: %+v", len(segments), segments)
	}
	if segments[0].Text != "good morning everyone" {
		t.Errorf("First segment changed: %q", segments[0].Text)
	}
	if segments[1].Text != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("Boundary not spliced correctly: %q", segments[1].Text)
	}
	if segments[1].Start != 8 || segments[1].End != 16 {
		t.Errorf("Spliced segment spans [%f, %f], want [8, 16]", segments[1].Start, segments[1].End)
	}
	if segments[2].Text != "thanks for listening" {
		t.Errorf("Trailing segment changed: %q", segments[2].Text)
	}
}

func TestResolveSpliceIgnoresCaseAndPunctuation(t *testing.T) {
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 12,
			Segments: []transcribe.Segment{
				{Start: 0, End: 12, Text: "we should ship the new release Friday"},
			},
		},
		{
			Index: 1, Start: 10, End: 20,
			Segments: []transcribe.Segment{
				{Start: 10, End: 20, Text: "New release friday, after the tests pass"},
			},
		},
	}

	r := NewResolver(testLogger(), nil)
	segments, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected a single spliced segment, got %d", len(segments))
	}
	want := "we should ship the new release friday, after the tests pass"
	if segments[0].Text != want {
		t.Errorf("Spliced text %q, want %q", segments[0].Text, want)
	}
}

func TestResolveKeepsBothSidesWhenOverlapDegenerate(t *testing.T) {
	// The only shared word is "the", which is as likely coincidence as
	// genuine overlap, so nothing should be spliced away.
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 12,
			Segments: []transcribe.Segment{
				{Start: 0, End: 12, Text: "please review the budget"},
			},
		},
		{
			Index: 1, Start: 10, End: 20,
			Segments: []transcribe.Segment{
				{Start: 10, End: 20, Text: "the weather looks great today"},
			},
		},
	}

	r := NewResolver(testLogger(), nil)
	segments, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("Expected both boundary segments kept, got %d", len(segments))
	}
	if segments[0].Text != "please review the budget" || segments[1].Text != "the weather looks great today" {
		t.Errorf("Boundary segments altered: %+v", segments)
	}
}

func TestResolveFoldsMultipleBoundarySegments(t *testing.T) {
	// Two left-side segments reach past the next chunk's start and must be
	// treated as one boundary text.
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 13,
			Segments: []transcribe.Segment{
				{Start: 8, End: 11, Text: "the quick brown"},
				{Start: 11, End: 13, Text: "fox jumps over"},
			},
		},
		{
			Index: 1, Start: 10, End: 20,
			Segments: []transcribe.Segment{
				{Start: 10, End: 16, Text: "brown fox jumps over the lazy dog"},
			},
		},
	}

	r := NewResolver(testLogger(), nil)
	segments, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(segments) != 1 {
		t.Fatalf("Expected one spliced segment, got %d: %+v", len(segments), segments)
	}
	if segments[0].Text != "the quick brown fox jumps over the lazy dog" {
		t.Errorf("Spliced text: %q", segments[0].Text)
	}
}

func TestResolveSingleChunkPassesThrough(t *testing.T) {
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 30,
			Segments: []transcribe.Segment{
				{Start: 0, End: 10, Text: "hello"},
				{Start: 10, End: 20, Text: "world"},
			},
		},
	}

	r := NewResolver(testLogger(), nil)
	segments, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(segments) != 2 || segments[0].Text != "hello" || segments[1].Text != "world" {
		t.Errorf("Single chunk should pass through untouched: %+v", segments)
	}
}

func TestResolveEmptyNextChunk(t *testing.T) {
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 13,
			Segments: []transcribe.Segment{
				{Start: 8, End: 13, Text: "trailing words here"},
			},
		},
		{Index: 1, Start: 10, End: 15},
	}

	r := NewResolver(testLogger(), nil)
	segments, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(segments) != 1 || segments[0].Text != "trailing words here" {
		t.Errorf("Boundary text lost when next chunk is empty: %+v", segments)
	}
}

func TestCountMatchesRejectsUnequalWindows(t *testing.T) {
	_, err := countMatches([]string{"a", "b"}, []string{"a"}, 2)

	var alignErr *AlignmentError
	if !errors.As(err, &alignErr) {
		t.Fatalf("Expected AlignmentError, got %v", err)
	}
	if alignErr.LeftWords != 2 || alignErr.RightWords != 1 {
		t.Errorf("AlignmentError carries wrong window sizes: %+v", alignErr)
	}
	if !strings.Contains(alignErr.Error(), "unequal") {
		t.Errorf("Unexpected error text: %s", alignErr.Error())
	}
}

func TestAlignmentWindowsAlwaysEqualLength(t *testing.T) {
	left := strings.Fields("one two three four five")
	right := strings.Fields("four five six")

	for offset := 1; offset < len(left)+len(right); offset++ {
		lw, rw := alignmentWindows(left, right, offset)
		if len(lw) != len(rw) {
			t.Errorf("Offset %d: window lengths differ (%d vs %d)", offset, len(lw), len(rw))
		}
		if len(lw) == 0 {
			t.Errorf("Offset %d: empty comparison window", offset)
		}
	}
}

func TestResolveIsIdempotentOnSplicedOutput(t *testing.T) {
	chunks := []transcribe.ChunkResult{
		{
			Index: 0, Start: 0, End: 13,
			Segments: []transcribe.Segment{
				{Start: 8, End: 13, Text: "the quick brown fox jumps over"},
			},
		},
		{
			Index: 1, Start: 10, End: 20,
			Segments: []transcribe.Segment{
				{Start: 10, End: 16, Text: "fox jumps over the lazy dog"},
			},
		},
	}

	r := NewResolver(testLogger(), nil)
	first, err := r.Resolve(chunks)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// Re-resolving the already merged output as a single chunk changes
	// nothing: each duplicated region is removed exactly once.
	again, err := r.Resolve([]transcribe.ChunkResult{
		{Index: 0, Start: 0, End: 20, Segments: first},
	})
	if err != nil {
		t.Fatalf("Second resolve failed: %v", err)
	}
	if len(again) != len(first) {
		t.Fatalf("Second resolve changed segment count: %d vs %d", len(again), len(first))
	}
	for i := range first {
		if again[i].Text != first[i].Text {
			t.Errorf("Segment %d changed on re-resolve: %q vs %q", i, again[i].Text, first[i].Text)
		}
	}
}
