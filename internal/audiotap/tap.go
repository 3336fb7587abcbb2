// Package audiotap writes synthesized audio to WAV files for diagnostics.
// Each request gets its own file; chunks are appended as they stream, so the
// tap never holds more than the chunk being written.
package audiotap

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/voxpipe/voxpipe/internal/config"
)

type Tap struct {
	cfg        config.CaptureConfig
	sampleRate int
	log        *slog.Logger
	clock      func() time.Time
}

// New returns a tap. A disabled tap hands out nil sessions, which are safe to
// use.
func New(cfg config.CaptureConfig, sampleRate int, log *slog.Logger) *Tap {
	return &Tap{cfg: cfg, sampleRate: sampleRate, log: log, clock: time.Now}
}

// Session captures one request's audio.
type Session struct {
	f   *os.File
	enc *wav.Encoder
	buf *audio.IntBuffer
}

// Begin opens a capture file for one request. Returns nil when capture is
// disabled; Write and Close on a nil session are no-ops.
func (t *Tap) Begin(voiceKey string) *Session {
	if t == nil || !t.cfg.Enabled {
		return nil
	}
	if err := os.MkdirAll(t.cfg.Directory, 0o755); err != nil {
		t.log.Warn("capture dir unavailable", slog.String("error", err.Error()))
		return nil
	}
	name := fmt.Sprintf("%s-%s.wav", t.clock().UTC().Format("20060102-150405.000"), voiceKey)
	f, err := os.Create(filepath.Join(t.cfg.Directory, name))
	if err != nil {
		t.log.Warn("capture file create failed", slog.String("error", err.Error()))
		return nil
	}
	enc := wav.NewEncoder(f, t.sampleRate, 16, 1, 1)
	return &Session{
		f:   f,
		enc: enc,
		buf: &audio.IntBuffer{Format: &audio.Format{NumChannels: 1, SampleRate: t.sampleRate}, SourceBitDepth: 16},
	}
}

// Write appends one PCM chunk (16-bit little-endian) to the capture file.
func (s *Session) Write(pcm []byte) error {
	if s == nil {
		return nil
	}
	samples := len(pcm) / 2
	if cap(s.buf.Data) < samples {
		s.buf.Data = make([]int, samples)
	}
	s.buf.Data = s.buf.Data[:samples]
	for i := 0; i < samples; i++ {
		s.buf.Data[i] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return s.enc.Write(s.buf)
}

// Close finalizes the WAV header and closes the file.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	if err := s.enc.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}
