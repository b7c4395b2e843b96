package capture

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/hotrod462/mikey/internal/device"
	"github.com/hotrod462/mikey/internal/metrics"
)

// Stream labels used for temp file naming, logging and error reporting.
const (
	LabelSystem = "system"
	LabelMic    = "mic"
)

// DefaultFlushInterval bounds peak memory to one interval's worth of audio.
const DefaultFlushInterval = 60 * time.Second

// RawBuffer is the ordered raw audio captured from one device together with
// the stream's format metadata. Append-only while its unit runs, frozen once
// capture stops.
type RawBuffer struct {
	Label      string
	Data       []byte
	Format     device.Format
	Channels   int
	SampleRate int
}

// Duration returns the buffered audio length in seconds.
func (b *RawBuffer) Duration() float64 {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	frames := len(b.Data) / (b.Channels * b.Format.BytesPerSample())
	return float64(frames) / float64(b.SampleRate)
}

// Unit captures from one input device until its context is cancelled. Each
// unit owns its stream handle and its temporary segment files exclusively;
// the shared device host belongs to the coordinator.
type Unit struct {
	host          device.Host
	label         string
	params        device.StreamParams
	dir           string
	flushInterval time.Duration
	logger        *slog.Logger
	metrics       *metrics.Metrics

	segments []string // flushed segment paths in creation order
}

// NewUnit creates a capture unit writing temp segments under dir.
func NewUnit(host device.Host, label string, params device.StreamParams, dir string, flushInterval time.Duration, logger *slog.Logger, m *metrics.Metrics) *Unit {
	if flushInterval <= 0 {
		flushInterval = DefaultFlushInterval
	}
	return &Unit{
		host:          host,
		label:         label,
		params:        params,
		dir:           dir,
		flushInterval: flushInterval,
		logger:        logger,
		metrics:       m,
	}
}

// Run reads frames until ctx is cancelled or a device read fails, then merges
// all flushed segments (in creation order) with the tail still in memory and
// removes the temp files. Cancellation is observed once per frame read, so a
// read already in flight completes before the unit stops. On a read error the
// frames captured so far are still returned alongside the error.
func (u *Unit) Run(ctx context.Context) (*RawBuffer, error) {
	stream, err := u.host.OpenInputStream(u.params)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s stream: %w", u.label, err)
	}
	defer stream.Close()

	u.logger.Info("Capture started",
		slog.String("stream", u.label),
		slog.Int("device", u.params.DeviceID),
		slog.Int("sample_rate", u.params.SampleRate),
		slog.Int("channels", u.params.Channels),
		slog.String("format", u.params.Format.String()),
	)

	started := time.Now()
	lastFlush := started
	var current []byte
	var readErr error

	for {
		select {
		case <-ctx.Done():
			goto done
		default:
		}

		frame, err := stream.ReadFrame()
		if err != nil {
			u.logger.Error("Device read failed, stopping stream early",
				slog.String("stream", u.label),
				slog.String("error", err.Error()),
			)
			if u.metrics != nil {
				u.metrics.RecordCaptureError(u.label)
			}
			readErr = err
			break
		}

		current = append(current, frame...)
		if u.metrics != nil {
			u.metrics.RecordFrame(u.label, len(frame))
		}

		if time.Since(lastFlush) >= u.flushInterval {
			if err := u.flush(current); err != nil {
				readErr = err
				break
			}
			current = current[:0]
			lastFlush = time.Now()
		}
	}

done:
	if len(current) > 0 && len(u.segments) > 0 {
		// Only worth a file if earlier flushes happened; otherwise the tail
		// is the whole recording and stays in memory.
		if err := u.flush(current); err == nil {
			current = nil
		}
	}

	data, mergeErr := u.mergeSegments(current)
	if mergeErr != nil && readErr == nil {
		readErr = mergeErr
	}

	buf := &RawBuffer{
		Label:      u.label,
		Data:       data,
		Format:     u.params.Format,
		Channels:   u.params.Channels,
		SampleRate: u.params.SampleRate,
	}

	if u.metrics != nil {
		u.metrics.RecordCaptureDone(u.label, time.Since(started).Seconds())
	}
	u.logger.Info("Capture finished",
		slog.String("stream", u.label),
		slog.Int("bytes", len(data)),
		slog.Int("segments", len(u.segments)),
		slog.Duration("elapsed", time.Since(started)),
	)

	return buf, readErr
}

// flush writes the buffered frames to a uniquely named temp segment file and
// records it in the unit's ordered segment list.
func (u *Unit) flush(data []byte) error {
	name := fmt.Sprintf("temp_%s_%04d_%s.raw", u.label, len(u.segments), uuid.NewString()[:8])
	path := filepath.Join(u.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to flush %s segment: %w", u.label, err)
	}
	u.segments = append(u.segments, path)
	if u.metrics != nil {
		u.metrics.RecordFlush(u.label)
	}
	u.logger.Debug("Flushed segment",
		slog.String("stream", u.label),
		slog.String("path", path),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// mergeSegments concatenates all flushed segments in creation order followed
// by the unflushed tail, then deletes the temp files.
func (u *Unit) mergeSegments(tail []byte) ([]byte, error) {
	var merged []byte
	for _, path := range u.segments {
		part, err := os.ReadFile(path)
		if err != nil {
			return merged, fmt.Errorf("failed to read back segment %s: %w", path, err)
		}
		merged = append(merged, part...)
	}
	merged = append(merged, tail...)

	for _, path := range u.segments {
		if err := os.Remove(path); err != nil {
			u.logger.Warn("Could not remove temp segment",
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
		}
	}

	return merged, nil
}
