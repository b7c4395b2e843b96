package transcribe

import (
	"context"
	"errors"
	"fmt"
)

// Source labels which capture track a segment came from.
type Source string

const (
	// SourceDevice marks speech captured from the system loopback stream.
	SourceDevice Source = "device"
	// SourceMic marks speech captured from the microphone stream.
	SourceMic Source = "mic"
)

// Segment is one span of transcribed speech. Within one track the chunk
// engine produces segments in non-decreasing start order.
type Segment struct {
	Start  float64 // seconds
	End    float64 // seconds
	Text   string
	Source Source
}

// Result is a backend's transcription of one audio chunk. Segment times are
// relative to the chunk's start.
type Result struct {
	Text     string
	Segments []Segment
}

// Request carries one chunk of audio to a backend.
type Request struct {
	Audio      []byte // WAV-encoded
	SampleRate int
	Channels   int
	Language   string
}

// Backend is the external speech-to-text capability. Implementations signal
// transient rate limiting by returning an error wrapping ErrRateLimited.
type Backend interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)
}

// ErrRateLimited marks a transient rate-limit rejection. The engine consumes
// it in its retry loop; it never surfaces to callers as a failure.
var ErrRateLimited = errors.New("transcription rate limited")

// ChunkError is a non-rate-limit transcription failure. It aborts the whole
// merge, since a missing chunk breaks boundary alignment.
type ChunkError struct {
	Index int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("transcription of chunk %d failed: %v", e.Index, e.Err)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
