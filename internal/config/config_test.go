package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen.SocketPath != "/tmp/voxpipe.sock" {
		t.Fatalf("expected default socket path, got %q", cfg.Listen.SocketPath)
	}
	if cfg.Engine.Mode != "mock" {
		t.Fatalf("expected mock engine by default, got %q", cfg.Engine.Mode)
	}
	if cfg.Engine.SampleRate != 24000 {
		t.Fatalf("expected 24000 Hz default, got %d", cfg.Engine.SampleRate)
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voxpipe.yaml")
	doc := `
listen:
  socket_path: /run/voxpipe/voxpipe.sock
engine:
  mode: exec
  command: "python3 runner.py --stream"
  device: cpu
  sample_rate: 22050
history:
  enabled: true
  path: ./hist.db
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen.SocketPath != "/run/voxpipe/voxpipe.sock" {
		t.Fatalf("socket path not loaded: %q", cfg.Listen.SocketPath)
	}
	if cfg.Engine.Mode != "exec" || cfg.Engine.Command == "" {
		t.Fatalf("engine section not loaded: %+v", cfg.Engine)
	}
	if cfg.Engine.SampleRate != 22050 {
		t.Fatalf("expected 22050 Hz, got %d", cfg.Engine.SampleRate)
	}
	if !cfg.History.Enabled {
		t.Fatal("expected history enabled")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VOXPIPE_LISTEN_SOCKET_PATH", "/tmp/test.sock")
	t.Setenv("VOXPIPE_ENGINE_MODE", "exec")
	t.Setenv("VOXPIPE_ENGINE_COMMAND", "runner --stream")
	t.Setenv("VOXPIPE_ENGINE_DEVICE", "cpu")
	t.Setenv("VOXPIPE_ENGINE_SAMPLE_RATE", "16000")
	t.Setenv("VOXPIPE_BUS_ENABLED", "true")
	t.Setenv("VOXPIPE_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("VOXPIPE_HISTORY_ENABLED", "true")
	t.Setenv("VOXPIPE_HISTORY_RETENTION_DAYS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Listen.SocketPath != "/tmp/test.sock" {
		t.Fatalf("expected socket path override, got %q", cfg.Listen.SocketPath)
	}
	if cfg.Engine.Mode != "exec" || cfg.Engine.Command != "runner --stream" || cfg.Engine.Device != "cpu" {
		t.Fatalf("expected engine overrides, got %+v", cfg.Engine)
	}
	if cfg.Engine.SampleRate != 16000 {
		t.Fatalf("expected sample rate 16000, got %d", cfg.Engine.SampleRate)
	}
	if !cfg.Bus.Enabled {
		t.Fatal("expected bus enabled override")
	}
	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.History.RetentionDays != 7 {
		t.Fatalf("expected retention days 7, got %d", cfg.History.RetentionDays)
	}
}

func TestValidateRejectsExecWithoutCommand(t *testing.T) {
	t.Setenv("VOXPIPE_ENGINE_MODE", "exec")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for exec mode without command")
	}
}

func TestValidateRejectsBadSampleRate(t *testing.T) {
	t.Setenv("VOXPIPE_ENGINE_SAMPLE_RATE", "-1")
	if _, err := Load(""); err == nil {
		t.Fatal("expected validation error for negative sample rate")
	}
}
