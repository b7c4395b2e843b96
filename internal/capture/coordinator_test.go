package capture

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hotrod462/mikey/internal/device"
)

func twoDeviceHost(factory func(p device.StreamParams) (device.Stream, error)) *fakeHost {
	return &fakeHost{
		devices: []device.Info{
			{ID: 0, Name: "Speakers (Loopback)", MaxInputChannels: 2, DefaultSampleRate: 48000},
			{ID: 1, Name: "Headset Microphone", MaxInputChannels: 1, DefaultSampleRate: 16000},
		},
		factory: factory,
	}
}

func TestRecordRequiresSystemDevice(t *testing.T) {
	host := twoDeviceHost(nil)
	cfg := DefaultCoordinatorConfig()
	cfg.WarmUp = 0
	coord := NewCoordinator(host, cfg, testLogger(), nil)

	_, _, err := coord.Record(context.Background(), t.TempDir(), -1, 1)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError, got %v", err)
	}
}

func TestRecordRejectsUnknownDevice(t *testing.T) {
	host := twoDeviceHost(nil)
	cfg := DefaultCoordinatorConfig()
	cfg.WarmUp = 0
	coord := NewCoordinator(host, cfg, testLogger(), nil)

	_, _, err := coord.Record(context.Background(), t.TempDir(), 99, 1)

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Expected ConfigError for unknown device, got %v", err)
	}
}

func TestRecordMicFailurePreservesSystemData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sysFrames := [][]byte{frameBytes(8, 1), frameBytes(8, 2)}
	micErr := errors.New("mic vanished")

	host := twoDeviceHost(nil)
	host.factory = func(p device.StreamParams) (device.Stream, error) {
		if p.DeviceID == 0 {
			return &fakeStream{frames: sysFrames, onExhausted: cancel}, nil
		}
		return &fakeStream{readErr: micErr}, nil
	}

	cfg := DefaultCoordinatorConfig()
	cfg.WarmUp = 0
	coord := NewCoordinator(host, cfg, testLogger(), nil)

	sysBuf, _, err := coord.Record(ctx, t.TempDir(), 0, 1)

	var capErr *CaptureError
	if !errors.As(err, &capErr) {
		t.Fatalf("Expected CaptureError, got %v", err)
	}
	if capErr.Stream != LabelMic {
		t.Errorf("Expected failing stream %q, got %q", LabelMic, capErr.Stream)
	}
	if !errors.Is(err, micErr) {
		t.Error("CaptureError does not wrap the underlying read error")
	}

	want := bytes.Join(sysFrames, nil)
	if sysBuf == nil || !bytes.Equal(sysBuf.Data, want) {
		t.Error("System stream's partial data was not preserved")
	}
}

func TestRecordWarmUpRunsBeforeCapture(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	host := twoDeviceHost(nil)
	host.factory = func(p device.StreamParams) (device.Stream, error) {
		if p.DeviceID == 0 {
			return &fakeStream{frames: [][]byte{frameBytes(8, 1)}, onExhausted: cancel}, nil
		}
		return &fakeStream{frames: [][]byte{frameBytes(8, 9)}, onExhausted: cancel}, nil
	}

	cfg := DefaultCoordinatorConfig()
	cfg.WarmUp = time.Nanosecond
	coord := NewCoordinator(host, cfg, testLogger(), nil)

	if _, _, err := coord.Record(ctx, t.TempDir(), 0, 1); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	opens := host.openOrder()
	if len(opens) != 3 {
		t.Fatalf("Expected 3 stream opens (warm-up + two captures), got %d", len(opens))
	}
	if opens[0] != 1 {
		t.Errorf("Expected first open to be the mic warm-up, got device %d", opens[0])
	}
}

func TestRecordBothStreamsComplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sysFrames := [][]byte{frameBytes(8, 1), frameBytes(8, 2)}
	micFrames := [][]byte{frameBytes(4, 3), frameBytes(4, 4), frameBytes(4, 5)}

	// Cancel only once both streams have delivered everything.
	var remaining atomic.Int32
	remaining.Store(2)
	done := func() {
		if remaining.Add(-1) == 0 {
			cancel()
		}
	}

	host := twoDeviceHost(nil)
	host.factory = func(p device.StreamParams) (device.Stream, error) {
		if p.DeviceID == 0 {
			return &fakeStream{frames: sysFrames, onExhausted: done}, nil
		}
		return &fakeStream{frames: micFrames, onExhausted: done}, nil
	}

	cfg := DefaultCoordinatorConfig()
	cfg.WarmUp = 0
	coord := NewCoordinator(host, cfg, testLogger(), nil)

	sysBuf, micBuf, err := coord.Record(ctx, t.TempDir(), 0, 1)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if sysBuf.Label != LabelSystem || micBuf.Label != LabelMic {
		t.Error("Buffers are not labeled by stream")
	}
	if sysBuf.Channels != 2 || sysBuf.SampleRate != 48000 {
		t.Errorf("System buffer metadata wrong: %d channels at %d Hz", sysBuf.Channels, sysBuf.SampleRate)
	}
	if micBuf.Channels != 1 || micBuf.SampleRate != 16000 {
		t.Errorf("Mic buffer metadata wrong: %d channels at %d Hz", micBuf.Channels, micBuf.SampleRate)
	}
}
