package engine

import (
	"context"

	"github.com/voxpipe/voxpipe/internal/voice"
)

// mockEngine produces deterministic audio without a model. One chunk is
// emitted per 16 runes of text (at least one), each 40 ms long at the
// configured sample rate.
type mockEngine struct {
	sampleRate int
	presets    []voice.Preset
}

// NewMockEngine returns an engine suitable for tests and bring-up.
func NewMockEngine(sampleRate int) Engine {
	return &mockEngine{
		sampleRate: sampleRate,
		presets: []voice.Preset{
			{Key: "en-Alice_woman", DisplayName: "Alice"},
			{Key: "en-Carter_man", DisplayName: "Carter"},
			{Key: "en-Frank_man", DisplayName: "Frank"},
		},
	}
}

func (m *mockEngine) Voices(ctx context.Context) ([]voice.Preset, error) {
	return append([]voice.Preset(nil), m.presets...), nil
}

func (m *mockEngine) Synthesize(ctx context.Context, req Request, stop StopToken) (<-chan Chunk, <-chan error) {
	chunks := make(chan Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		n := (len([]rune(req.Text)) + 15) / 16
		if n < 1 {
			n = 1
		}
		samples := m.sampleRate / 25 // 40 ms
		if samples < 1 {
			samples = 1
		}
		for i := 0; i < n; i++ {
			if stop.Stopped() {
				return
			}
			pcm := make([]byte, samples*2)
			for j := range pcm {
				pcm[j] = byte(i + j)
			}
			select {
			case chunks <- Chunk{PCM: pcm}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return chunks, errs
}
