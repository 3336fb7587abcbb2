package server

import (
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/voxpipe/voxpipe/internal/wire"
)

func TestListenerServesUnixSocket(t *testing.T) {
	s := newTestService(t, nil)
	s.listen.SocketPath = filepath.Join(t.TempDir(), "voxpipe.sock")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if !s.Healthy() {
		t.Fatal("service should be healthy after start")
	}

	conn, err := net.DialTimeout("unix", s.listen.SocketPath, time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := wire.WriteRequest(conn, wire.Request{Text: "Hello", Flags: wire.FlagNoSilencePad}); err != nil {
		t.Fatalf("write request: %v", err)
	}
	sawAudio := false
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if frame.Kind == wire.FrameAudio {
			sawAudio = true
			continue
		}
		if frame.Kind != wire.FrameEnd {
			t.Fatalf("unexpected frame kind %d", frame.Kind)
		}
		break
	}
	if !sawAudio {
		t.Fatal("expected at least one audio frame")
	}
}

func TestCloseRemovesSocket(t *testing.T) {
	s := newTestService(t, nil)
	s.listen.SocketPath = filepath.Join(t.TempDir(), "voxpipe.sock")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	s.Close()
	if _, err := os.Stat(s.listen.SocketPath); !os.IsNotExist(err) {
		t.Fatalf("socket file should be removed after close, stat err=%v", err)
	}
}

func TestStartReplacesStaleSocket(t *testing.T) {
	s := newTestService(t, nil)
	s.listen.SocketPath = filepath.Join(t.TempDir(), "voxpipe.sock")
	if err := os.WriteFile(s.listen.SocketPath, nil, 0o644); err != nil {
		t.Fatalf("plant stale socket: %v", err)
	}
	if err := s.Start(); err != nil {
		t.Fatalf("start over stale socket: %v", err)
	}
}
