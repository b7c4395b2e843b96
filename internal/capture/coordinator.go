package capture

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hotrod462/mikey/internal/device"
	"github.com/hotrod462/mikey/internal/metrics"
)

// CoordinatorConfig contains dual-stream capture parameters.
type CoordinatorConfig struct {
	FlushInterval time.Duration
	WarmUp        time.Duration // mic profile-switch duration before capture
	SystemFormat  device.Format
	MicFormat     device.Format
	// The system stream reads smaller frames than the mic stream so the
	// loopback device is serviced more often.
	SystemFrameSize int
	MicFrameSize    int
}

// DefaultCoordinatorConfig mirrors the capture defaults of the recorder.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		FlushInterval:   DefaultFlushInterval,
		WarmUp:          2 * time.Second,
		SystemFormat:    device.FormatFloat32,
		MicFormat:       device.FormatInt16,
		SystemFrameSize: 1024,
		MicFrameSize:    4096,
	}
}

// Coordinator starts and stops the two capture units of one recording
// session. It owns the shared device host reference for the session's
// lifetime; the host is torn down by the caller only after Record returns,
// never by an individual unit.
type Coordinator struct {
	host    device.Host
	cfg     CoordinatorConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewCoordinator creates a coordinator over a shared device host.
func NewCoordinator(host device.Host, cfg CoordinatorConfig, logger *slog.Logger, m *metrics.Metrics) *Coordinator {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.SystemFrameSize <= 0 {
		cfg.SystemFrameSize = 1024
	}
	if cfg.MicFrameSize <= 0 {
		cfg.MicFrameSize = 4096
	}
	return &Coordinator{host: host, cfg: cfg, logger: logger, metrics: m}
}

// Record captures the system and mic streams concurrently into dir until ctx
// is cancelled and both units have finished flushing. The mic warm-up runs to
// completion before either unit starts reading frames, so the first seconds
// of mic audio carry committed device metadata. On failure of either unit the
// returned error is a CaptureError naming the stream; both buffers are still
// returned with whatever data was preserved.
func (c *Coordinator) Record(ctx context.Context, dir string, systemID, micID int) (*RawBuffer, *RawBuffer, error) {
	if systemID < 0 {
		return nil, nil, &ConfigError{Reason: "no system audio device selected"}
	}
	if micID < 0 {
		return nil, nil, &ConfigError{Reason: "no microphone device selected"}
	}

	sysInfo, err := c.host.DeviceInfo(systemID)
	if err != nil {
		return nil, nil, &ConfigError{Reason: "invalid system device: " + err.Error()}
	}
	micInfo, err := c.host.DeviceInfo(micID)
	if err != nil {
		return nil, nil, &ConfigError{Reason: "invalid microphone device: " + err.Error()}
	}

	if c.cfg.WarmUp > 0 {
		// Some Bluetooth mics switch audio profiles when an input stream
		// opens; reading and discarding a couple of seconds forces the OS to
		// commit to a stable sample rate before the real capture begins.
		if err := c.warmUpMic(micInfo); err != nil {
			c.logger.Warn("Mic warm-up failed, continuing anyway",
				slog.String("error", err.Error()),
			)
		}
	}

	sysUnit := NewUnit(c.host, LabelSystem, device.StreamParams{
		DeviceID:   systemID,
		Format:     c.cfg.SystemFormat,
		Channels:   inputChannels(sysInfo),
		SampleRate: sysInfo.DefaultSampleRate,
		FrameSize:  c.cfg.SystemFrameSize,
	}, dir, c.cfg.FlushInterval, c.logger, c.metrics)

	micUnit := NewUnit(c.host, LabelMic, device.StreamParams{
		DeviceID:   micID,
		Format:     c.cfg.MicFormat,
		Channels:   inputChannels(micInfo),
		SampleRate: micInfo.DefaultSampleRate,
		FrameSize:  c.cfg.MicFrameSize,
	}, dir, c.cfg.FlushInterval, c.logger, c.metrics)

	c.logger.Info("Starting parallel capture",
		slog.String("system_device", sysInfo.Name),
		slog.String("mic_device", micInfo.Name),
	)

	var wg sync.WaitGroup
	var sysBuf, micBuf *RawBuffer
	var sysErr, micErr error

	wg.Add(2)
	go func() {
		defer wg.Done()
		sysBuf, sysErr = sysUnit.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		micBuf, micErr = micUnit.Run(ctx)
	}()
	wg.Wait()

	if sysErr != nil {
		return sysBuf, micBuf, &CaptureError{Stream: LabelSystem, Err: sysErr}
	}
	if micErr != nil {
		return sysBuf, micBuf, &CaptureError{Stream: LabelMic, Err: micErr}
	}

	return sysBuf, micBuf, nil
}

// warmUpMic opens the mic, discards frames for the configured duration and
// closes the stream again.
func (c *Coordinator) warmUpMic(info device.Info) error {
	c.logger.Info("Triggering microphone profile switch",
		slog.String("device", info.Name),
		slog.Duration("duration", c.cfg.WarmUp),
	)

	params := device.StreamParams{
		DeviceID:   info.ID,
		Format:     device.FormatInt16,
		Channels:   inputChannels(info),
		SampleRate: info.DefaultSampleRate,
		FrameSize:  c.cfg.MicFrameSize,
	}

	stream, err := c.host.OpenInputStream(params)
	if err != nil {
		return err
	}
	defer stream.Close()

	frames := int(float64(params.SampleRate)/float64(params.FrameSize)*c.cfg.WarmUp.Seconds()) + 1
	for i := 0; i < frames; i++ {
		if _, err := stream.ReadFrame(); err != nil {
			return err
		}
	}
	return nil
}

// inputChannels returns the device's input channel count, defaulting to
// stereo when a loopback device reports zero channels.
func inputChannels(info device.Info) int {
	if info.MaxInputChannels < 1 {
		return 2
	}
	return info.MaxInputChannels
}
