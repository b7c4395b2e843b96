package device

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gordonklaus/portaudio"
)

// PortAudioHost is the production Host backed by the PortAudio library. On
// Windows the WASAPI host API exposes loopback captures of output devices as
// regular input devices, which is what the system-audio stream records from.
type PortAudioHost struct{}

// NewPortAudioHost initializes the PortAudio subsystem.
func NewPortAudioHost() (*PortAudioHost, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	return &PortAudioHost{}, nil
}

// InputDevices lists every device with at least one input channel.
func (h *PortAudioHost) InputDevices() ([]Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list portaudio devices: %w", err)
	}

	var infos []Info
	for i, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		infos = append(infos, Info{
			ID:                i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			DefaultSampleRate: int(d.DefaultSampleRate),
		})
	}
	return infos, nil
}

// DeviceInfo returns metadata for one device by its absolute index.
func (h *PortAudioHost) DeviceInfo(id int) (Info, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return Info{}, fmt.Errorf("failed to list portaudio devices: %w", err)
	}
	if id < 0 || id >= len(devices) {
		return Info{}, fmt.Errorf("device index %d out of range (%d devices)", id, len(devices))
	}
	d := devices[id]
	return Info{
		ID:                id,
		Name:              d.Name,
		MaxInputChannels:  d.MaxInputChannels,
		DefaultSampleRate: int(d.DefaultSampleRate),
	}, nil
}

// OpenInputStream opens and starts an input stream with the given parameters.
func (h *PortAudioHost) OpenInputStream(p StreamParams) (Stream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list portaudio devices: %w", err)
	}
	if p.DeviceID < 0 || p.DeviceID >= len(devices) {
		return nil, fmt.Errorf("device index %d out of range (%d devices)", p.DeviceID, len(devices))
	}

	params := portaudio.LowLatencyParameters(devices[p.DeviceID], nil)
	params.Input.Channels = p.Channels
	params.SampleRate = float64(p.SampleRate)
	params.FramesPerBuffer = p.FrameSize

	ps := &paStream{params: p}

	var stream *portaudio.Stream
	switch p.Format {
	case FormatFloat32:
		ps.float32Buf = make([]float32, p.FrameSize*p.Channels)
		stream, err = portaudio.OpenStream(params, &ps.float32Buf)
	default:
		ps.int16Buf = make([]int16, p.FrameSize*p.Channels)
		stream, err = portaudio.OpenStream(params, &ps.int16Buf)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream on device %d: %w", p.DeviceID, err)
	}

	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("failed to start input stream on device %d: %w", p.DeviceID, err)
	}

	ps.stream = stream
	return ps, nil
}

// Close tears down the PortAudio subsystem.
func (h *PortAudioHost) Close() error {
	if err := portaudio.Terminate(); err != nil {
		return fmt.Errorf("failed to terminate portaudio: %w", err)
	}
	return nil
}

// paStream adapts a portaudio stream to the Stream interface, converting the
// typed sample buffer into little-endian bytes per read.
type paStream struct {
	stream     *portaudio.Stream
	params     StreamParams
	int16Buf   []int16
	float32Buf []float32
}

func (s *paStream) ReadFrame() ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		// Overflows mean the host dropped frames while we were busy; the
		// buffer still holds a full frame, so keep going.
		if err != portaudio.InputOverflowed {
			return nil, fmt.Errorf("failed to read input frame: %w", err)
		}
	}

	out := make([]byte, s.params.BytesPerFrame())
	switch s.params.Format {
	case FormatFloat32:
		for i, v := range s.float32Buf {
			binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
		}
	default:
		for i, v := range s.int16Buf {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
		}
	}
	return out, nil
}

func (s *paStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		s.stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("failed to close input stream: %w", err)
	}
	return nil
}
