package session

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/metrics"
)

// Alert is one private-message notification shown app-wide.
type Alert struct {
	SenderID string
	Username string
	Content  string
}

// Toaster renders and clears the app-wide notification banner.
type Toaster interface {
	ShowAlert(a Alert)
	HideAlert()
}

// Navigator opens screens in response to alert taps.
type Navigator interface {
	OpenPrivateChat(peerUserID string)
}

const alertTTL = 4 * time.Second

// NotifyRelay listens for private-message notifications independent of any
// joined channel and raises a transient banner. Each screen owns one relay
// for the time it is on screen; its subscription is not tied to the registry,
// so binding and releasing channels never tears it down.
type NotifyRelay struct {
	log   *slog.Logger
	tr    Transport
	toast Toaster
	nav   Navigator

	ttl time.Duration

	mu      sync.Mutex
	started bool
	sub     Subscription
	current *Alert
	timer   *time.Timer
}

// NewNotifyRelay constructs the relay. Call Start when the owning screen
// comes up and Stop when it goes away.
func NewNotifyRelay(log *slog.Logger, tr Transport, toast Toaster, nav Navigator) *NotifyRelay {
	return &NotifyRelay{
		log:   log,
		tr:    tr,
		toast: toast,
		nav:   nav,
		ttl:   alertTTL,
	}
}

// Start binds the notification listener. Idempotent; the transport keeps the
// listener attached across reconnects for as long as the screen runs.
func (r *NotifyRelay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.sub = r.tr.On(v1.EventPrivateMessageNotification, r.onNotification)
	r.log.Info("relay.started")
}

// Stop detaches the listener and clears any visible alert. Called when the
// owning screen shuts down.
func (r *NotifyRelay) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.started = false
	sub := r.sub
	r.sub = nil
	r.clearLocked()
	r.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
	r.log.Info("relay.stopped")
}

// Current returns the alert on screen, if any.
func (r *NotifyRelay) Current() (Alert, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current == nil {
		return Alert{}, false
	}
	return *r.current, true
}

// Tap dismisses the alert and navigates to the sender's chat.
func (r *NotifyRelay) Tap() {
	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return
	}
	a := *r.current
	r.clearLocked()
	r.mu.Unlock()

	r.toast.HideAlert()
	r.nav.OpenPrivateChat(a.SenderID)
}

// Dismiss hides the alert without navigating.
func (r *NotifyRelay) Dismiss() {
	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return
	}
	r.clearLocked()
	r.mu.Unlock()

	r.toast.HideAlert()
}

func (r *NotifyRelay) onNotification(payload json.RawMessage) {
	var p v1.PrivateMessageNotificationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		r.log.Warn("relay.bad_payload", "err", err)
		return
	}

	a := Alert{SenderID: p.SenderID, Username: p.Username, Content: p.Content}

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	// A newer alert replaces the current one and restarts the clock.
	if r.timer != nil {
		r.timer.Stop()
	}
	r.current = &a
	r.timer = time.AfterFunc(r.ttl, r.expire)
	r.mu.Unlock()

	metrics.RelayAlerts.Inc()
	r.toast.ShowAlert(a)
	r.log.Debug("relay.alert", "sender_id", p.SenderID, "username", p.Username)
}

func (r *NotifyRelay) expire() {
	r.mu.Lock()
	if r.current == nil {
		r.mu.Unlock()
		return
	}
	r.clearLocked()
	r.mu.Unlock()

	r.toast.HideAlert()
}

// clearLocked resets alert state; callers hold r.mu.
func (r *NotifyRelay) clearLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.current = nil
}
