// Package engine defines the contract with the external synthesis engine and
// the access policy around its single stateful instance.
package engine

import (
	"context"

	"github.com/voxpipe/voxpipe/internal/voice"
)

// Request carries normalized text and a resolved voice key into synthesis.
type Request struct {
	Text     string
	VoiceKey string
}

// Chunk is one unit of generated audio, 16-bit signed little-endian PCM.
// Chunks are consumed one at a time and never buffered beyond the one in
// flight.
type Chunk struct {
	PCM []byte
}

// Engine is the synthesis backend. Synthesize produces a lazy, finite chunk
// sequence; the generation loop polls the stop token between chunks and stops
// promptly, without error, once it is signaled. Voices returns the preset
// catalog in declared order.
type Engine interface {
	Voices(ctx context.Context) ([]voice.Preset, error)
	Synthesize(ctx context.Context, req Request, stop StopToken) (<-chan Chunk, <-chan error)
}
