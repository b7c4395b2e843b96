package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/hotrod462/mikey/internal/audio"
	"github.com/hotrod462/mikey/internal/metrics"
)

// Default chunking parameters: ten-minute windows overlapping by ten seconds,
// sized for speech-to-text APIs with per-request length limits.
const (
	DefaultChunkSeconds   = 600.0
	DefaultOverlapSeconds = 10.0
	DefaultCooldown       = 60 * time.Second
)

// RetryPolicy governs how the engine handles rate-limited windows. Rate
// limits are transient and the pipeline has no user-facing deadline, so the
// default is an unbounded retry with a fixed cool-down.
type RetryPolicy struct {
	Cooldown    time.Duration
	MaxAttempts int // 0 retries forever
}

// DefaultRetryPolicy returns the unbounded fixed-backoff policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Cooldown: DefaultCooldown}
}

// Window is one fixed-duration slice of an artifact's timeline.
type Window struct {
	Index int
	Start float64 // seconds from artifact start
	End   float64
}

// PlanWindows partitions a duration into windows of chunkSeconds, each
// starting chunkSeconds-overlapSeconds after the previous start so adjacent
// windows share overlapSeconds of audio. The final window is clipped to the
// duration, and the window count is ceil(duration / (chunk - overlap)).
func PlanWindows(duration, chunkSeconds, overlapSeconds float64) []Window {
	if duration <= 0 {
		return nil
	}

	step := chunkSeconds - overlapSeconds
	count := int(math.Ceil(duration / step))

	windows := make([]Window, 0, count)
	for i := 0; i < count; i++ {
		start := float64(i) * step
		end := start + chunkSeconds
		if end > duration {
			end = duration
		}
		windows = append(windows, Window{Index: i, Start: start, End: end})
	}
	return windows
}

// EngineConfig contains chunk transcription parameters.
type EngineConfig struct {
	ChunkSeconds   float64
	OverlapSeconds float64
	Language       string
	Retry          RetryPolicy
}

// ChunkResult is the transcription of one window with segment times shifted
// into the artifact's timeline.
type ChunkResult struct {
	Index    int
	Start    float64 // window start offset in the artifact
	End      float64
	Segments []Segment
}

// Engine submits artifact windows to a speech-to-text backend in strict
// order: window i goes out only after window i-1 has returned, since boundary
// stitching needs the prior chunk's tail text.
type Engine struct {
	backend Backend
	cfg     EngineConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewEngine validates the chunking parameters and creates an engine.
func NewEngine(backend Backend, cfg EngineConfig, logger *slog.Logger, m *metrics.Metrics) (*Engine, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	if cfg.ChunkSeconds <= 0 {
		cfg.ChunkSeconds = DefaultChunkSeconds
	}
	if cfg.OverlapSeconds < 0 {
		return nil, fmt.Errorf("overlap cannot be negative, got %f", cfg.OverlapSeconds)
	}
	if cfg.OverlapSeconds >= cfg.ChunkSeconds {
		return nil, fmt.Errorf("overlap (%fs) must be smaller than chunk size (%fs)", cfg.OverlapSeconds, cfg.ChunkSeconds)
	}
	if cfg.Retry.Cooldown <= 0 {
		cfg.Retry.Cooldown = DefaultCooldown
	}
	return &Engine{backend: backend, cfg: cfg, logger: logger, metrics: m}, nil
}

// Transcribe runs every window of the artifact through the backend and
// returns the ordered chunk results. Rate-limited windows wait out the
// cool-down and are resubmitted; any other backend failure aborts with a
// ChunkError naming the window.
func (e *Engine) Transcribe(ctx context.Context, art *audio.Artifact) ([]ChunkResult, error) {
	windows := PlanWindows(art.Duration(), e.cfg.ChunkSeconds, e.cfg.OverlapSeconds)
	if len(windows) == 0 {
		return nil, fmt.Errorf("artifact is empty, nothing to transcribe")
	}

	e.logger.Info("Transcribing artifact",
		slog.Float64("duration_seconds", art.Duration()),
		slog.Int("windows", len(windows)),
		slog.Float64("chunk_seconds", e.cfg.ChunkSeconds),
		slog.Float64("overlap_seconds", e.cfg.OverlapSeconds),
	)

	results := make([]ChunkResult, 0, len(windows))
	for _, w := range windows {
		res, err := e.transcribeWindow(ctx, art, w, len(windows))
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}
	return results, nil
}

func (e *Engine) transcribeWindow(ctx context.Context, art *audio.Artifact, w Window, total int) (*ChunkResult, error) {
	startFrame := int(w.Start * float64(art.SampleRate))
	endFrame := int(w.End * float64(art.SampleRate))
	if endFrame > art.Frames() {
		endFrame = art.Frames()
	}

	pcm, err := art.PCMSlice(startFrame, endFrame)
	if err != nil {
		return nil, &ChunkError{Index: w.Index, Err: err}
	}
	wav, err := audio.EncodeWAV(pcm, art.SampleRate, art.NumChannels())
	if err != nil {
		return nil, &ChunkError{Index: w.Index, Err: err}
	}

	req := Request{
		Audio:      wav,
		SampleRate: art.SampleRate,
		Channels:   art.NumChannels(),
		Language:   e.cfg.Language,
	}

	attempts := 0
	for {
		if e.metrics != nil {
			e.metrics.RecordChunkSubmitted()
		}
		started := time.Now()

		res, err := e.backend.Transcribe(ctx, req)
		if err == nil {
			if e.metrics != nil {
				e.metrics.RecordChunkSuccess(time.Since(started).Seconds())
			}
			e.logger.Info("Chunk transcribed",
				slog.Int("chunk", w.Index+1),
				slog.Int("total", total),
				slog.Int("segments", len(res.Segments)),
			)
			return shiftResult(res, w), nil
		}

		if !errors.Is(err, ErrRateLimited) {
			if e.metrics != nil {
				e.metrics.RecordChunkFailure()
			}
			return nil, &ChunkError{Index: w.Index, Err: err}
		}

		attempts++
		if e.cfg.Retry.MaxAttempts > 0 && attempts >= e.cfg.Retry.MaxAttempts {
			if e.metrics != nil {
				e.metrics.RecordChunkFailure()
			}
			return nil, &ChunkError{Index: w.Index, Err: fmt.Errorf("still rate limited after %d attempts: %w", attempts, err)}
		}

		if e.metrics != nil {
			e.metrics.RecordRateLimitWait()
		}
		e.logger.Warn("Rate limited, waiting before retry",
			slog.Int("chunk", w.Index+1),
			slog.Duration("cooldown", e.cfg.Retry.Cooldown),
			slog.Int("attempts", attempts),
		)

		select {
		case <-time.After(e.cfg.Retry.Cooldown):
		case <-ctx.Done():
			return nil, &ChunkError{Index: w.Index, Err: ctx.Err()}
		}
	}
}

// shiftResult moves a chunk-relative result into the artifact's timeline. A
// backend that returned flat text without segments gets one synthesized
// segment spanning the whole window.
func shiftResult(res *Result, w Window) *ChunkResult {
	out := &ChunkResult{Index: w.Index, Start: w.Start, End: w.End}

	if len(res.Segments) == 0 {
		if text := strings.TrimSpace(res.Text); text != "" {
			out.Segments = []Segment{{Start: w.Start, End: w.End, Text: text}}
		}
		return out
	}

	out.Segments = make([]Segment, 0, len(res.Segments))
	for _, s := range res.Segments {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		out.Segments = append(out.Segments, Segment{
			Start: w.Start + s.Start,
			End:   w.Start + s.End,
			Text:  text,
		})
	}
	return out
}
