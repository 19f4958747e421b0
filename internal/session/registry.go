package session

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Registry serializes channel membership on the shared transport.
//
// At most one channel binding is active per process. Controllers bind their
// channel-scoped listeners through the registry so that releasing a binding
// removes exactly those listeners and nothing else. The notification relay's
// persistent subscription is outside the registry's scope and survives screen
// transitions.
type Registry struct {
	log *slog.Logger
	tr  Transport

	mu      sync.Mutex
	binding *ChannelBinding
	subs    []Subscription
}

// NewRegistry constructs a Registry over the shared transport.
func NewRegistry(log *slog.Logger, tr Transport) *Registry {
	return &Registry{log: log, tr: tr}
}

// Active returns the current binding, if any.
func (r *Registry) Active() (ChannelBinding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.binding == nil {
		return ChannelBinding{}, false
	}
	return *r.binding, true
}

// Bind activates a channel binding and attaches its listeners.
//
// A bind while another binding is active fails with ErrDuplicateBinding
// rather than silently superseding it; the stale-listener leak that allows
// is exactly the defect this registry exists to prevent.
func (r *Registry) Bind(b ChannelBinding, listeners map[string]func(json.RawMessage)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.binding != nil {
		r.log.Error("registry.bind.duplicate",
			"active_kind", string(r.binding.Kind),
			"requested_kind", string(b.Kind))
		return ErrDuplicateBinding
	}

	subs := make([]Subscription, 0, len(listeners))
	for event, fn := range listeners {
		subs = append(subs, r.tr.On(event, fn))
	}

	r.binding = &b
	r.subs = subs

	r.log.Debug("registry.bind", "kind", string(b.Kind))
	return nil
}

// Update mutates the active binding in place (e.g. recording the chat id a
// private channel was assigned). No-op when nothing is bound.
func (r *Registry) Update(fn func(*ChannelBinding)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.binding != nil {
		fn(r.binding)
	}
}

// Release detaches the active binding's listeners and clears it.
// Idempotent: a second release is a no-op, so double-triggered teardown
// (back navigation plus unmount) performs the removal exactly once.
func (r *Registry) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.binding == nil {
		return
	}

	for _, sub := range r.subs {
		sub.Close()
	}
	r.subs = nil

	r.log.Debug("registry.release", "kind", string(r.binding.Kind))
	r.binding = nil
}
