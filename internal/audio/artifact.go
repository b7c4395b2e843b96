package audio

import "fmt"

// Artifact is canonical post-conditioning audio: per-channel float samples in
// [-1.0, 1.0] alongside the quantized 16-bit PCM encoding used for
// persistence. Duration equals the input buffer duration minus rounding to
// frame boundaries.
type Artifact struct {
	Channels   [][]float64 // one slice per channel, equal lengths
	SampleRate int
	PCM        []int16 // interleaved 16-bit quantization of Channels
}

// NumChannels returns the channel count.
func (a *Artifact) NumChannels() int {
	return len(a.Channels)
}

// Frames returns the number of sample frames per channel.
func (a *Artifact) Frames() int {
	if len(a.Channels) == 0 {
		return 0
	}
	return len(a.Channels[0])
}

// Duration returns the artifact length in seconds.
func (a *Artifact) Duration() float64 {
	if a.SampleRate <= 0 {
		return 0
	}
	return float64(a.Frames()) / float64(a.SampleRate)
}

// EncodeWAV renders the artifact's PCM encoding as a WAV byte stream.
func (a *Artifact) EncodeWAV() ([]byte, error) {
	return EncodeWAV(a.PCM, a.SampleRate, a.NumChannels())
}

// PCMSlice returns the interleaved PCM samples covering the frame range
// [startFrame, endFrame). The returned slice aliases the artifact's PCM data.
func (a *Artifact) PCMSlice(startFrame, endFrame int) ([]int16, error) {
	ch := a.NumChannels()
	if ch == 0 {
		return nil, fmt.Errorf("artifact has no channels")
	}
	if startFrame < 0 || endFrame > a.Frames() || startFrame >= endFrame {
		return nil, fmt.Errorf("invalid frame range [%d, %d), have %d frames", startFrame, endFrame, a.Frames())
	}
	return a.PCM[startFrame*ch : endFrame*ch], nil
}

// ArtifactFromPCM rebuilds an artifact from interleaved PCM-16 samples, the
// inverse of the conditioner's quantization step. Used when re-opening a
// persisted recording for transcription.
func ArtifactFromPCM(samples []int16, sampleRate, channels int) (*Artifact, error) {
	if channels < 1 {
		return nil, fmt.Errorf("channel count must be at least 1, got %d", channels)
	}
	if len(samples)%channels != 0 {
		return nil, fmt.Errorf("sample count %d is not a multiple of channel count %d", len(samples), channels)
	}

	frames := len(samples) / channels
	chans := make([][]float64, channels)
	for c := range chans {
		chans[c] = make([]float64, frames)
	}
	for f := 0; f < frames; f++ {
		for c := 0; c < channels; c++ {
			chans[c][f] = float64(samples[f*channels+c]) / 32767.0
		}
	}

	pcm := make([]int16, len(samples))
	copy(pcm, samples)

	return &Artifact{
		Channels:   chans,
		SampleRate: sampleRate,
		PCM:        pcm,
	}, nil
}
