package audiotap

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/voxpipe/voxpipe/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestDisabledTapIsNoOp(t *testing.T) {
	tap := New(config.CaptureConfig{Enabled: false}, 24000, newLogger())
	s := tap.Begin("en-Alice_woman")
	if s != nil {
		t.Fatal("disabled tap must return nil session")
	}
	if err := s.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("nil session write: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("nil session close: %v", err)
	}
}

func TestCaptureWritesWavFile(t *testing.T) {
	dir := t.TempDir()
	tap := New(config.CaptureConfig{Enabled: true, Directory: dir}, 24000, newLogger())
	s := tap.Begin("en-Alice_woman")
	if s == nil {
		t.Fatal("expected a session")
	}
	pcm := make([]byte, 960*2)
	for i := range pcm {
		pcm[i] = byte(i)
	}
	if err := s.Write(pcm); err != nil {
		t.Fatalf("write chunk: %v", err)
	}
	if err := s.Write(pcm); err != nil {
		t.Fatalf("write second chunk: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close session: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read capture dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 capture file, got %d", len(entries))
	}
	info, err := os.Stat(filepath.Join(dir, entries[0].Name()))
	if err != nil {
		t.Fatalf("stat capture file: %v", err)
	}
	// 44-byte RIFF header plus two chunks of samples.
	if info.Size() <= 44 {
		t.Fatalf("capture file too small: %d bytes", info.Size())
	}
}
