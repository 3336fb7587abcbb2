package engine

import "testing"

func TestStopTokenStartsUnset(t *testing.T) {
	tok := NewStopToken()
	if tok.Stopped() {
		t.Fatal("fresh token must not report stopped")
	}
}

func TestStopTokenSignalThenStopped(t *testing.T) {
	tok := NewStopToken()
	tok.Signal()
	if !tok.Stopped() {
		t.Fatal("signaled token must report stopped")
	}
	// The signal was consumed but the token stays stopped.
	if !tok.Stopped() {
		t.Fatal("consumed token must keep reporting stopped")
	}
}

func TestStopTokenCopySharesState(t *testing.T) {
	tok := NewStopToken()

	// Embed in a larger value and copy it, the way a generation config
	// might be duplicated by engine internals.
	type generationConfig struct {
		Steps int
		Stop  StopToken
	}
	cfg := generationConfig{Steps: 5, Stop: tok}
	copied := cfg

	tok.Signal()
	if !copied.Stop.Stopped() {
		t.Fatal("copy must observe a signal on the original")
	}
	if !cfg.Stop.Stopped() {
		t.Fatal("original embedded token must stay stopped")
	}
}

func TestStopTokenSignalIdempotent(t *testing.T) {
	tok := NewStopToken()
	tok.Signal()
	tok.Signal()
	if !tok.Stopped() {
		t.Fatal("double signal must still stop")
	}
	tok.Signal() // signaling after consumption is a no-op
	if !tok.Stopped() {
		t.Fatal("token must remain stopped")
	}
}
