package device

import (
	"fmt"
	"strings"
)

// Format identifies the sample encoding delivered by an input stream.
type Format int

const (
	// FormatInt16 is signed 16-bit little-endian PCM.
	FormatInt16 Format = iota
	// FormatFloat32 is 32-bit little-endian IEEE float PCM.
	FormatFloat32
)

// BytesPerSample returns the encoded size of one sample.
func (f Format) BytesPerSample() int {
	switch f {
	case FormatFloat32:
		return 4
	default:
		return 2
	}
}

// String returns the config-file spelling of the format.
func (f Format) String() string {
	switch f {
	case FormatFloat32:
		return "float32"
	default:
		return "int16"
	}
}

// ParseFormat converts a config-file spelling into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "int16":
		return FormatInt16, nil
	case "float32":
		return FormatFloat32, nil
	default:
		return 0, fmt.Errorf("unknown sample format %q (want int16 or float32)", s)
	}
}

// Info describes one input device as reported by the audio subsystem.
type Info struct {
	ID                int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate int
}

// StreamParams describes how an input stream should be opened. Immutable for
// the stream's lifetime.
type StreamParams struct {
	DeviceID   int
	Format     Format
	Channels   int
	SampleRate int
	FrameSize  int // frames per buffer delivered by ReadFrame
}

// BytesPerFrame returns the byte size of one ReadFrame result.
func (p StreamParams) BytesPerFrame() int {
	return p.FrameSize * p.Channels * p.Format.BytesPerSample()
}

// Stream is one open input stream. ReadFrame blocks until a full frame buffer
// is available and returns it as little-endian bytes in the stream's format.
type Stream interface {
	ReadFrame() ([]byte, error)
	Close() error
}

// Host is a handle on the audio subsystem. One Host is shared by all capture
// units of a session and closed only after every unit has finished.
type Host interface {
	InputDevices() ([]Info, error)
	DeviceInfo(id int) (Info, error)
	OpenInputStream(p StreamParams) (Stream, error)
	Close() error
}

// FindLoopback returns the first input device whose name marks it as a
// loopback capture of the system output mix.
func FindLoopback(host Host) (Info, error) {
	devices, err := host.InputDevices()
	if err != nil {
		return Info{}, fmt.Errorf("failed to enumerate input devices: %w", err)
	}

	for _, d := range devices {
		if strings.Contains(d.Name, "Loopback") {
			return d, nil
		}
	}

	return Info{}, fmt.Errorf("no loopback input device found")
}
