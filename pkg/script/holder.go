package script

import "sync/atomic"

// Holder is the hot-swap point: a script engine can be replaced at
// runtime, but only between commands, never mid-command.
// Holder stores the current Engine behind an atomic pointer so readers
// never observe a torn value; callers that need the "only between
// commands" guarantee simply call Current() once at the top of command
// processing and use that value for the whole command.
type Holder struct {
	engine atomic.Pointer[Engine]
}

// NewHolder builds a Holder initialized to NopEngine.
func NewHolder() *Holder {
	h := &Holder{}
	var e Engine = NopEngine{}
	h.engine.Store(&e)
	return h
}

// Current returns the engine in effect right now.
func (h *Holder) Current() Engine {
	return *h.engine.Load()
}

// Swap installs a new engine, returning the previous one.
func (h *Holder) Swap(e Engine) Engine {
	if e == nil {
		e = NopEngine{}
	}
	old := h.engine.Swap(&e)
	return *old
}
