// Package session orchestrates the full recording pipeline: parallel capture
// of the system and microphone streams, noise conditioning, WAV persistence,
// chunked transcription and transcript merging. Each recording lives in its
// own session directory, and transcription can be re-run later from the
// persisted WAV files alone.
package session
