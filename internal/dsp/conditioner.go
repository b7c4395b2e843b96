package dsp

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hotrod462/mikey/internal/audio"
	"github.com/hotrod462/mikey/internal/capture"
	"github.com/hotrod462/mikey/internal/device"
	"github.com/hotrod462/mikey/internal/metrics"
)

// Conditioner converts raw capture buffers into canonical audio artifacts.
type Conditioner struct {
	reducer Reducer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewConditioner creates a conditioner using the given noise reducer.
func NewConditioner(reducer Reducer, logger *slog.Logger, m *metrics.Metrics) *Conditioner {
	return &Conditioner{reducer: reducer, logger: logger, metrics: m}
}

// Condition interprets the buffer's raw bytes as float samples, reshapes them
// into per-channel columns, estimates a noise profile from the first second
// of audio (the whole buffer when shorter), reduces noise per channel, clips
// to [-1, 1] and quantizes to 16-bit PCM. The artifact duration equals the
// buffer duration minus rounding to frame boundaries.
func (c *Conditioner) Condition(buf *capture.RawBuffer) (*audio.Artifact, error) {
	if buf == nil || len(buf.Data) == 0 {
		return nil, fmt.Errorf("cannot condition empty capture buffer")
	}
	if buf.Channels < 1 {
		return nil, fmt.Errorf("capture buffer has invalid channel count %d", buf.Channels)
	}
	if buf.SampleRate <= 0 {
		return nil, fmt.Errorf("capture buffer has invalid sample rate %d", buf.SampleRate)
	}

	started := time.Now()

	samples := decodeSamples(buf.Data, buf.Format)
	channels := deinterleave(samples, buf.Channels)
	frames := len(channels[0])
	if frames == 0 {
		return nil, fmt.Errorf("capture buffer holds less than one frame")
	}

	// First second of audio as the noise reference; a shorter buffer serves
	// as its own profile, which degrades reduction but never slices out of
	// range.
	profileFrames := buf.SampleRate
	if profileFrames > frames {
		profileFrames = frames
	}

	// Stereo noise floors differ, so each channel is reduced against its own
	// profile.
	for ch := range channels {
		reduced := c.reducer.Reduce(channels[ch], channels[ch][:profileFrames], buf.SampleRate)
		if len(reduced) != frames {
			return nil, fmt.Errorf("noise reducer changed channel length from %d to %d", frames, len(reduced))
		}
		channels[ch] = reduced
	}

	pcm := make([]int16, frames*len(channels))
	for ch := range channels {
		for i, v := range channels[ch] {
			clipped := math.Max(-1.0, math.Min(1.0, v))
			channels[ch][i] = clipped
			pcm[i*len(channels)+ch] = int16(clipped * 32767)
		}
	}

	art := &audio.Artifact{
		Channels:   channels,
		SampleRate: buf.SampleRate,
		PCM:        pcm,
	}

	if c.metrics != nil {
		c.metrics.RecordConditioning(time.Since(started).Seconds())
	}
	c.logger.Info("Conditioned capture buffer",
		slog.String("stream", buf.Label),
		slog.Int("channels", art.NumChannels()),
		slog.Int("sample_rate", art.SampleRate),
		slog.Float64("duration_seconds", art.Duration()),
	)

	return art, nil
}

// decodeSamples interprets raw little-endian bytes per the declared sample
// format, dropping any trailing partial sample.
func decodeSamples(data []byte, format device.Format) []float64 {
	size := format.BytesPerSample()
	n := len(data) / size
	out := make([]float64, n)

	switch format {
	case device.FormatFloat32:
		for i := 0; i < n; i++ {
			bits := binary.LittleEndian.Uint32(data[i*4:])
			out[i] = float64(math.Float32frombits(bits))
		}
	default:
		for i := 0; i < n; i++ {
			v := int16(binary.LittleEndian.Uint16(data[i*2:]))
			out[i] = float64(v) / 32768.0
		}
	}

	return out
}

// deinterleave reshapes interleaved samples into per-channel columns,
// dropping any trailing partial frame.
func deinterleave(samples []float64, channels int) [][]float64 {
	frames := len(samples) / channels
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, frames)
		for f := 0; f < frames; f++ {
			out[ch][f] = samples[f*channels+ch]
		}
	}
	return out
}
