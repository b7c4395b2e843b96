package capture

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/hotrod462/mikey/internal/device"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStream serves scripted frames and then invokes onExhausted (typically a
// context cancel), after which ReadFrame keeps returning the final frame so a
// unit that missed the cancellation would be caught by read counting.
type fakeStream struct {
	mu          sync.Mutex
	frames      [][]byte
	next        int
	reads       int
	readErr     error // returned once frames are exhausted, if set
	onExhausted func()
	closed      bool
}

func (s *fakeStream) ReadFrame() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reads++
	if s.next < len(s.frames) {
		f := s.frames[s.next]
		s.next++
		if s.next == len(s.frames) && s.onExhausted != nil {
			s.onExhausted()
		}
		return f, nil
	}

	if s.readErr != nil {
		return nil, s.readErr
	}
	if len(s.frames) == 0 {
		return []byte{0, 0}, nil
	}
	return s.frames[len(s.frames)-1], nil
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) readCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// fakeHost hands out streams from a factory and records open order.
type fakeHost struct {
	mu      sync.Mutex
	devices []device.Info
	factory func(p device.StreamParams) (device.Stream, error)
	opens   []int
}

func (h *fakeHost) InputDevices() ([]device.Info, error) {
	return h.devices, nil
}

func (h *fakeHost) DeviceInfo(id int) (device.Info, error) {
	for _, d := range h.devices {
		if d.ID == id {
			return d, nil
		}
	}
	return device.Info{}, errors.New("no such device")
}

func (h *fakeHost) OpenInputStream(p device.StreamParams) (device.Stream, error) {
	h.mu.Lock()
	h.opens = append(h.opens, p.DeviceID)
	h.mu.Unlock()
	return h.factory(p)
}

func (h *fakeHost) Close() error { return nil }

func (h *fakeHost) openOrder() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.opens...)
}

func frameBytes(n int, fill byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = fill
	}
	return b
}

func testParams() device.StreamParams {
	return device.StreamParams{
		DeviceID:   0,
		Format:     device.FormatInt16,
		Channels:   1,
		SampleRate: 8000,
		FrameSize:  4,
	}
}

func TestUnitCapturesAllFramesBeforeStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frames := [][]byte{
		frameBytes(8, 1),
		frameBytes(8, 2),
		frameBytes(8, 3),
	}
	stream := &fakeStream{frames: frames, onExhausted: cancel}
	host := &fakeHost{
		devices: []device.Info{{ID: 0, Name: "fake", MaxInputChannels: 1, DefaultSampleRate: 8000}},
		factory: func(device.StreamParams) (device.Stream, error) { return stream, nil },
	}

	unit := NewUnit(host, LabelSystem, testParams(), t.TempDir(), time.Hour, testLogger(), nil)
	buf, err := unit.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := bytes.Join(frames, nil)
	if !bytes.Equal(buf.Data, want) {
		t.Errorf("Expected %d bytes, got %d", len(want), len(buf.Data))
	}

	// The cancel fired inside the last scripted read; no read may happen
	// after the unit observed the stop signal.
	if got := stream.readCount(); got != len(frames) {
		t.Errorf("Expected exactly %d reads, got %d", len(frames), got)
	}

	if !stream.closed {
		t.Error("Stream was not closed")
	}
}

func TestUnitFlushedSegmentsMatchInMemoryCapture(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var frames [][]byte
	for i := 0; i < 12; i++ {
		frames = append(frames, frameBytes(16, byte(i)))
	}
	stream := &fakeStream{frames: frames, onExhausted: cancel}
	host := &fakeHost{
		devices: []device.Info{{ID: 0, Name: "fake", MaxInputChannels: 1, DefaultSampleRate: 8000}},
		factory: func(device.StreamParams) (device.Stream, error) { return stream, nil },
	}

	dir := t.TempDir()
	// Zero-duration interval forces a flush after every frame, exercising the
	// segment merge path end to end.
	unit := NewUnit(host, LabelMic, testParams(), dir, time.Nanosecond, testLogger(), nil)
	buf, err := unit.Run(ctx)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := bytes.Join(frames, nil)
	if !bytes.Equal(buf.Data, want) {
		t.Errorf("Merged segments differ from in-memory capture: want %d bytes, got %d", len(want), len(buf.Data))
	}

	if len(unit.segments) == 0 {
		t.Fatal("Expected at least one flushed segment")
	}
}

func TestUnitReadErrorPreservesPartialData(t *testing.T) {
	readErr := errors.New("device unplugged")
	frames := [][]byte{frameBytes(8, 7), frameBytes(8, 8)}
	stream := &fakeStream{frames: frames, readErr: readErr}
	host := &fakeHost{
		devices: []device.Info{{ID: 0, Name: "fake", MaxInputChannels: 1, DefaultSampleRate: 8000}},
		factory: func(device.StreamParams) (device.Stream, error) { return stream, nil },
	}

	unit := NewUnit(host, LabelSystem, testParams(), t.TempDir(), time.Hour, testLogger(), nil)
	buf, err := unit.Run(context.Background())
	if !errors.Is(err, readErr) {
		t.Fatalf("Expected wrapped read error, got %v", err)
	}

	want := bytes.Join(frames, nil)
	if buf == nil || !bytes.Equal(buf.Data, want) {
		t.Error("Partial data before the read error was not preserved")
	}
}

func TestRawBufferDuration(t *testing.T) {
	buf := &RawBuffer{
		Data:       make([]byte, 8000*2*2), // one second of stereo int16 at 8 kHz
		Format:     device.FormatInt16,
		Channels:   2,
		SampleRate: 8000,
	}
	if d := buf.Duration(); d != 1.0 {
		t.Errorf("Expected 1.0s, got %f", d)
	}
}
