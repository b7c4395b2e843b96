package session

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// File names written into a session directory.
const (
	SystemAudioFile      = "system_audio.wav"
	MicAudioFile         = "mic_audio.wav"
	MergedTranscriptFile = "merged_transcript.md"
	SystemTranscriptFile = "system_transcript.md"
	MicTranscriptFile    = "mic_transcript.md"
	NotesFile            = "meeting_notes.md"
)

// DetectAudioFiles locates the two track recordings in a session directory.
// Files are matched by name first ("mic" marks the microphone track, "system"
// or "device" the loopback track); any WAV files left unmatched fill the
// remaining slots in lexicographic order, so externally produced pairs like
// a.wav/b.wav still resolve deterministically.
func DetectAudioFiles(dir string) (systemPath, micPath string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("failed to read session directory: %w", err)
	}

	var wavs []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".wav") {
			wavs = append(wavs, e.Name())
		}
	}
	if len(wavs) < 2 {
		return "", "", fmt.Errorf("session directory %s holds %d WAV files, need 2", dir, len(wavs))
	}
	sort.Strings(wavs)

	var system, mic string
	var rest []string
	for _, name := range wavs {
		lower := strings.ToLower(name)
		switch {
		case mic == "" && strings.Contains(lower, "mic"):
			mic = name
		case system == "" && (strings.Contains(lower, "system") || strings.Contains(lower, "device")):
			system = name
		default:
			rest = append(rest, name)
		}
	}
	for _, name := range rest {
		switch {
		case system == "":
			system = name
		case mic == "":
			mic = name
		}
	}
	if system == "" || mic == "" {
		return "", "", fmt.Errorf("could not identify both tracks among %v", wavs)
	}

	return filepath.Join(dir, system), filepath.Join(dir, mic), nil
}
