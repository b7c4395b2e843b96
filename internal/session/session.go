package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hotrod462/mikey/internal/audio"
	"github.com/hotrod462/mikey/internal/capture"
	"github.com/hotrod462/mikey/internal/device"
	"github.com/hotrod462/mikey/internal/dsp"
	"github.com/hotrod462/mikey/internal/merge"
	"github.com/hotrod462/mikey/internal/metrics"
	"github.com/hotrod462/mikey/internal/notes"
	"github.com/hotrod462/mikey/internal/transcribe"
)

// Config contains session pipeline parameters.
type Config struct {
	// BaseDir is where session directories are created.
	BaseDir string
	Capture capture.CoordinatorConfig
	Engine  transcribe.EngineConfig
	Tracks  merge.TrackOptions
}

// Manager runs recording and transcription sessions.
type Manager struct {
	cfg         Config
	coordinator *capture.Coordinator
	conditioner *dsp.Conditioner
	engine      *transcribe.Engine
	resolver    *merge.Resolver
	summarizer  notes.Summarizer // nil disables meeting notes
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// NewManager wires the pipeline components over the given device host and
// transcription backend. A nil summarizer disables meeting notes generation.
func NewManager(cfg Config, host device.Host, backend transcribe.Backend, summarizer notes.Summarizer, logger *slog.Logger, m *metrics.Metrics) (*Manager, error) {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "recordings"
	}

	engine, err := transcribe.NewEngine(backend, cfg.Engine, logger, m)
	if err != nil {
		return nil, err
	}

	return &Manager{
		cfg:         cfg,
		coordinator: capture.NewCoordinator(host, cfg.Capture, logger, m),
		conditioner: dsp.NewConditioner(dsp.NewGateReducer(), logger, m),
		engine:      engine,
		resolver:    merge.NewResolver(logger, m),
		summarizer:  summarizer,
		logger:      logger,
		metrics:     m,
	}, nil
}

// Record captures both streams until ctx is cancelled, conditions the raw
// audio and writes system_audio.wav and mic_audio.wav into a fresh session
// directory, whose path is returned. A capture failure on one stream still
// persists whatever the other stream recorded before the error surfaces.
func (mgr *Manager) Record(ctx context.Context, systemID, micID int) (string, error) {
	dir := filepath.Join(mgr.cfg.BaseDir, fmt.Sprintf("session_%s_%s",
		time.Now().Format("20060102_150405"), uuid.NewString()[:8]))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create session directory: %w", err)
	}

	if mgr.metrics != nil {
		mgr.metrics.RecordSessionStarted()
	}
	mgr.logger.Info("Recording session started", slog.String("dir", dir))

	sysBuf, micBuf, captureErr := mgr.coordinator.Record(ctx, dir, systemID, micID)

	// Persist everything that was captured even when one stream failed; a
	// half-recorded meeting beats an empty directory.
	if err := mgr.persistTrack(sysBuf, filepath.Join(dir, SystemAudioFile)); err != nil && captureErr == nil {
		return dir, err
	}
	if err := mgr.persistTrack(micBuf, filepath.Join(dir, MicAudioFile)); err != nil && captureErr == nil {
		return dir, err
	}
	if captureErr != nil {
		return dir, captureErr
	}

	if mgr.metrics != nil {
		mgr.metrics.RecordSessionCompleted()
	}
	mgr.logger.Info("Recording session completed", slog.String("dir", dir))
	return dir, nil
}

func (mgr *Manager) persistTrack(buf *capture.RawBuffer, path string) error {
	if buf == nil || len(buf.Data) == 0 {
		return nil
	}

	art, err := mgr.conditioner.Condition(buf)
	if err != nil {
		return fmt.Errorf("failed to condition %s track: %w", buf.Label, err)
	}
	wav, err := art.EncodeWAV()
	if err != nil {
		return fmt.Errorf("failed to encode %s track: %w", buf.Label, err)
	}
	if err := os.WriteFile(path, wav, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	mgr.logger.Info("Persisted audio track",
		slog.String("path", path),
		slog.Float64("duration_seconds", art.Duration()),
	)
	return nil
}

// Transcribe locates the two WAV tracks in a session directory, runs each
// through chunked transcription and overlap resolution, and writes the
// per-track and merged transcripts. When a summarizer is configured it also
// writes meeting notes; notes failures are logged but do not fail the
// session, since the transcripts are already on disk.
func (mgr *Manager) Transcribe(ctx context.Context, dir string) error {
	systemPath, micPath, err := DetectAudioFiles(dir)
	if err != nil {
		return err
	}
	mgr.logger.Info("Transcribing session",
		slog.String("system", systemPath),
		slog.String("mic", micPath),
	)

	systemSegs, err := mgr.transcribeTrack(ctx, systemPath)
	if err != nil {
		return fmt.Errorf("system track: %w", err)
	}
	micSegs, err := mgr.transcribeTrack(ctx, micPath)
	if err != nil {
		return fmt.Errorf("mic track: %w", err)
	}

	if err := writeDoc(filepath.Join(dir, SystemTranscriptFile),
		merge.RenderTrack("System Audio Transcript", systemSegs)); err != nil {
		return err
	}
	if err := writeDoc(filepath.Join(dir, MicTranscriptFile),
		merge.RenderTrack("Microphone Transcript", micSegs)); err != nil {
		return err
	}

	merged := merge.MergeTracks(systemSegs, micSegs, mgr.cfg.Tracks)
	mergedDoc := merge.RenderMerged(merged)
	if err := writeDoc(filepath.Join(dir, MergedTranscriptFile), mergedDoc); err != nil {
		return err
	}
	mgr.logger.Info("Wrote transcripts",
		slog.String("dir", dir),
		slog.Int("segments", len(merged)),
	)

	if mgr.summarizer != nil {
		if err := mgr.writeNotes(ctx, dir, mergedDoc); err != nil {
			mgr.logger.Warn("Meeting notes generation failed",
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// transcribeTrack loads a persisted WAV and runs it through the chunk engine
// and overlap resolver.
func (mgr *Manager) transcribeTrack(ctx context.Context, path string) ([]transcribe.Segment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	samples, rate, channels, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	art, err := audio.ArtifactFromPCM(samples, rate, channels)
	if err != nil {
		return nil, err
	}

	chunks, err := mgr.engine.Transcribe(ctx, art)
	if err != nil {
		return nil, err
	}
	return mgr.resolver.Resolve(chunks)
}

func (mgr *Manager) writeNotes(ctx context.Context, dir, transcript string) error {
	generated, err := mgr.summarizer.Summarize(ctx, transcript)
	if err != nil {
		return err
	}
	if err := writeDoc(filepath.Join(dir, NotesFile), generated); err != nil {
		return err
	}
	mgr.logger.Info("Wrote meeting notes", slog.String("dir", dir))
	return nil
}

func writeDoc(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
