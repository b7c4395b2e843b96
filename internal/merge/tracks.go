package merge

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hotrod462/mikey/internal/transcribe"
)

// Speaker labels used in rendered transcripts.
const (
	SpeakerDevice = "Device"
	SpeakerMic    = "Mic"
)

// MergedHeader is the title of the combined transcript document.
const MergedHeader = "# Merged Conversation Transcript"

// TrackOptions controls how the two tracks are combined.
type TrackOptions struct {
	// OrderByStart interleaves segments chronologically instead of keeping
	// each track contiguous. Chronological order reads like a dialogue but
	// shuffles segments whenever both parties speak at once.
	OrderByStart bool
}

// MergeTracks combines the device and microphone segment lists into one,
// stamping each segment with its source. The default order keeps the device
// track whole followed by the microphone track, so each side reads as an
// uninterrupted narrative.
func MergeTracks(deviceSegs, micSegs []transcribe.Segment, opts TrackOptions) []transcribe.Segment {
	out := make([]transcribe.Segment, 0, len(deviceSegs)+len(micSegs))
	for _, s := range deviceSegs {
		s.Source = transcribe.SourceDevice
		out = append(out, s)
	}
	for _, s := range micSegs {
		s.Source = transcribe.SourceMic
		out = append(out, s)
	}

	if opts.OrderByStart {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Start < out[j].Start
		})
	}
	return out
}

// RenderMerged renders the combined transcript as a markdown document with
// one timestamped, speaker-attributed line per segment.
func RenderMerged(segments []transcribe.Segment) string {
	var b strings.Builder
	b.WriteString(MergedHeader)
	b.WriteString("\n\n")
	for _, s := range segments {
		b.WriteString(renderLine(s, speakerLabel(s.Source)))
	}
	return b.String()
}

// RenderTrack renders a single track under the given title, without speaker
// attribution since every line has the same origin.
func RenderTrack(title string, segments []transcribe.Segment) string {
	var b strings.Builder
	b.WriteString("# ")
	b.WriteString(title)
	b.WriteString("\n\n")
	for _, s := range segments {
		fmt.Fprintf(&b, "[%s - %s] %s\n", formatTime(s.Start), formatTime(s.End), s.Text)
	}
	return b.String()
}

func renderLine(s transcribe.Segment, speaker string) string {
	return fmt.Sprintf("[%s - %s] %s: %s\n", formatTime(s.Start), formatTime(s.End), speaker, s.Text)
}

func speakerLabel(src transcribe.Source) string {
	if src == transcribe.SourceMic {
		return SpeakerMic
	}
	return SpeakerDevice
}

// formatTime renders seconds as MM:SS, extending to HH:MM:SS past one hour.
func formatTime(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
