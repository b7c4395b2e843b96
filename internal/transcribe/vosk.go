package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/hotrod462/mikey/internal/audio"
)

// voskFrameSamples is the number of mono samples sent per websocket message.
const voskFrameSamples = 4000

// VoskConfig holds connection parameters for a Vosk websocket server.
type VoskConfig struct {
	URL string // e.g. ws://localhost:2700
}

// VoskBackend transcribes chunks through a self-hosted Vosk websocket server.
// It has no rate limits, so it never returns ErrRateLimited.
type VoskBackend struct {
	cfg    VoskConfig
	logger *slog.Logger
}

// NewVoskBackend creates a Vosk backend for the given server URL.
func NewVoskBackend(cfg VoskConfig, logger *slog.Logger) (*VoskBackend, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("vosk backend requires a server URL")
	}
	return &VoskBackend{cfg: cfg, logger: logger}, nil
}

type voskResult struct {
	Text   string `json:"text"`
	Result []struct {
		Word  string  `json:"word"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"result"`
}

// Transcribe opens a fresh websocket connection for the chunk, streams its
// mono samples and collects the final recognition results. Word timings are
// folded into one segment per final result.
func (b *VoskBackend) Transcribe(ctx context.Context, req Request) (*Result, error) {
	samples, rate, channels, err := audio.DecodeWAV(req.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode chunk audio: %w", err)
	}
	mono := downmixMono(samples, channels)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, b.cfg.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to vosk server: %w", err)
	}
	defer conn.Close()

	cfgMsg := fmt.Sprintf(`{"config": {"sample_rate": %d, "words": true}}`, rate)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(cfgMsg)); err != nil {
		return nil, fmt.Errorf("failed to send vosk config: %w", err)
	}

	result := &Result{}
	var texts []string

	collect := func(payload []byte) {
		var res voskResult
		if err := json.Unmarshal(payload, &res); err != nil || res.Text == "" {
			return
		}
		texts = append(texts, res.Text)
		seg := Segment{Text: res.Text}
		if len(res.Result) > 0 {
			seg.Start = res.Result[0].Start
			seg.End = res.Result[len(res.Result)-1].End
		}
		result.Segments = append(result.Segments, seg)
	}

	for off := 0; off < len(mono); off += voskFrameSamples {
		end := off + voskFrameSamples
		if end > len(mono) {
			end = len(mono)
		}
		frame := make([]byte, (end-off)*2)
		for i, s := range mono[off:end] {
			frame[i*2] = byte(s)
			frame[i*2+1] = byte(s >> 8)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return nil, fmt.Errorf("failed to stream audio to vosk: %w", err)
		}

		_, payload, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read vosk response: %w", err)
		}
		// Interim responses carry "partial"; only finals carry "text".
		collect(payload)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"eof" : 1}`)); err != nil {
		return nil, fmt.Errorf("failed to finish vosk stream: %w", err)
	}
	_, payload, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("failed to read final vosk response: %w", err)
	}
	collect(payload)

	result.Text = strings.Join(texts, " ")
	return result, nil
}

// downmixMono averages interleaved channels into a single mono track.
func downmixMono(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	mono := make([]int16, frames)
	for f := 0; f < frames; f++ {
		sum := 0
		for ch := 0; ch < channels; ch++ {
			sum += int(samples[f*channels+ch])
		}
		mono[f] = int16(sum / channels)
	}
	return mono
}
