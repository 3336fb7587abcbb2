package engine

import "context"

// Guard arbitrates exclusive access to the single engine instance. The
// instance lives inside a one-slot channel; holding the value is holding the
// lock, and goroutines blocked on the receive are admitted in arrival order.
// Exclusion covers one synthesis session, not the whole connection
// conversation, so request parsing and final frame writes never hold it.
type Guard struct {
	slot chan Engine
}

// NewGuard wraps the engine instance.
func NewGuard(eng Engine) *Guard {
	g := &Guard{slot: make(chan Engine, 1)}
	g.slot <- eng
	return g
}

// Session runs fn with exclusive access to the engine. It blocks until the
// prior holder releases or ctx is done.
func (g *Guard) Session(ctx context.Context, fn func(Engine) error) error {
	select {
	case eng := <-g.slot:
		defer func() { g.slot <- eng }()
		return fn(eng)
	case <-ctx.Done():
		return ctx.Err()
	}
}
