package engine

import "sync/atomic"

// Token states. A token moves unset -> signaled -> consumed; the handler is
// the only signaler and the engine generation loop the only consumer.
const (
	tokenUnset int32 = iota
	tokenSignaled
	tokenConsumed
)

// StopToken is a cooperative cancellation flag shared between a connection
// handler and the engine's generation loop. The struct holds a pointer to its
// state, so copying a StopToken (including embedding it in a larger value
// that gets copied) yields a second handle to the same flag rather than a
// duplicate.
type StopToken struct {
	state *atomic.Int32
}

// NewStopToken returns an unset token.
func NewStopToken() StopToken {
	return StopToken{state: new(atomic.Int32)}
}

// Signal requests that generation stop. Signaling more than once, or after
// the token was consumed, has no effect.
func (t StopToken) Signal() {
	t.state.CompareAndSwap(tokenUnset, tokenSignaled)
}

// Stopped reports whether the token was signaled. The first observation of a
// signal consumes it; later calls keep reporting true.
func (t StopToken) Stopped() bool {
	if t.state.CompareAndSwap(tokenSignaled, tokenConsumed) {
		return true
	}
	return t.state.Load() == tokenConsumed
}
