package dsp

import "math"

// Reducer removes stationary noise from a single channel of audio using a
// noise profile taken from the same channel. Implementations must treat the
// signal as immutable and return a slice of the same length.
type Reducer interface {
	Reduce(signal, noiseProfile []float64, sampleRate int) []float64
}

// GateReducer is a time-domain noise gate: frames whose RMS energy falls
// below a multiple of the noise profile's RMS are attenuated, everything else
// passes through unchanged. Silence stays silence, so conditioning an all-zero
// buffer is a no-op.
type GateReducer struct {
	FrameSize   int     // samples per gating frame
	Threshold   float64 // gate frames below Threshold * noise RMS
	Attenuation float64 // gain applied to gated frames
}

// NewGateReducer returns a gate with the recorder's default parameters.
func NewGateReducer() *GateReducer {
	return &GateReducer{
		FrameSize:   1024,
		Threshold:   1.5,
		Attenuation: 0.1,
	}
}

// Reduce applies the gate frame by frame.
func (g *GateReducer) Reduce(signal, noiseProfile []float64, sampleRate int) []float64 {
	frameSize := g.FrameSize
	if frameSize <= 0 {
		frameSize = 1024
	}

	floor := rms(noiseProfile) * g.Threshold
	out := make([]float64, len(signal))

	for start := 0; start < len(signal); start += frameSize {
		end := start + frameSize
		if end > len(signal) {
			end = len(signal)
		}
		frame := signal[start:end]

		gain := 1.0
		if rms(frame) < floor {
			gain = g.Attenuation
		}
		for i, v := range frame {
			out[start+i] = v * gain
		}
	}

	return out
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, v := range samples {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}
