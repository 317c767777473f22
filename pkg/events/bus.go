// Package events implements the in-process pub/sub event bus and the
// atomic stats counters: Subscribe/Publish under a
// snapshot-then-invoke-without-lock discipline, plus best-effort global
// counters sampled into rolling rates.
package events

import (
	"sync"

	"github.com/m4mm0n/amFTPd-sub003/internal/logger"
)

// Kind names the event types the session and transfer code emit.
type Kind string

const (
	Login          Kind = "login"
	Logout         Kind = "logout"
	LoginFailed    Kind = "login_failed"
	UploadComplete Kind = "upload_complete"
	DownloadStart  Kind = "download_start"
	TransferAbort  Kind = "transfer_abort"
	Nuke           Kind = "nuke"
	Unnuke         Kind = "unnuke"
)

// Event is a single occurrence published on the bus. Fields is an open
// bag so handlers can pull out what they care about without the bus
// needing a type per kind.
type Event struct {
	Kind     Kind
	Username string
	Section  string
	Fields   map[string]any
}

// Handler receives published events. Handlers run synchronously on the
// publishing goroutine with no lock held; a slow or misbehaving handler
// only delays that one Publish call.
type Handler func(Event)

// Bus is an in-process publish/subscribe dispatcher. The zero value is
// ready to use.
type Bus struct {
	mu       sync.Mutex
	handlers []Handler
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{}
}

// Subscribe registers handler to receive all future published events.
// There is no unsubscribe; subscriptions live for the bus's lifetime,
// matching the description of the bus as an add-only registry.
func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

// Publish takes a snapshot of the current subscriber list under the
// lock, then invokes each handler without holding it, so a handler that
// itself calls Subscribe cannot deadlock the bus. A handler that panics
// is recovered and logged; one bad subscriber cannot take down the bus
// or the publishing goroutine.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	snapshot := make([]Handler, len(b.handlers))
	copy(snapshot, b.handlers)
	b.mu.Unlock()

	for _, h := range snapshot {
		b.invoke(h, ev)
	}
}

func (b *Bus) invoke(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("event handler panicked", "kind", ev.Kind, "panic", r)
		}
	}()
	h(ev)
}
