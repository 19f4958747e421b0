package session

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	v1 "loci/contracts/realtime/v1"
)

type fakeToaster struct {
	mu     sync.Mutex
	shown  []Alert
	hidden int
}

func (f *fakeToaster) ShowAlert(a Alert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.shown = append(f.shown, a)
}

func (f *fakeToaster) HideAlert() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hidden++
}

func (f *fakeToaster) hiddenCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hidden
}

type fakeNavigator struct {
	mu     sync.Mutex
	opened []string
}

func (f *fakeNavigator) OpenPrivateChat(peerUserID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, peerUserID)
}

func newRelayFixture(t *testing.T) (*NotifyRelay, *fakeTransport, *fakeToaster, *fakeNavigator) {
	t.Helper()
	tr := newFakeTransport()
	toast := &fakeToaster{}
	nav := &fakeNavigator{}
	r := NewNotifyRelay(testLogger(t), tr, toast, nav)
	return r, tr, toast, nav
}

func notify(t *testing.T, tr *fakeTransport, sender, username, content string) {
	t.Helper()
	tr.fire(t, v1.EventPrivateMessageNotification, v1.PrivateMessageNotificationPayload{
		SenderID: sender,
		Username: username,
		Content:  content,
	})
}

func TestRelayStartIsIdempotent(t *testing.T) {
	t.Parallel()

	r, tr, toast, _ := newRelayFixture(t)
	r.Start()
	r.Start()

	if got := tr.listenerCount(v1.EventPrivateMessageNotification); got != 1 {
		t.Fatalf("notification listeners = %d, want 1", got)
	}

	notify(t, tr, "u2", "bo", "hi")
	if len(toast.shown) != 1 {
		t.Fatalf("alerts shown = %d, want 1", len(toast.shown))
	}
}

func TestRelayAlertAutoExpires(t *testing.T) {
	t.Parallel()

	r, tr, toast, _ := newRelayFixture(t)
	r.ttl = 20 * time.Millisecond
	r.Start()

	notify(t, tr, "u2", "bo", "hi")
	if _, ok := r.Current(); !ok {
		t.Fatal("no current alert after notification")
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, ok := r.Current(); !ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("alert never expired")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if toast.hiddenCount() != 1 {
		t.Fatalf("hide calls = %d, want 1", toast.hiddenCount())
	}
}

func TestRelayTapNavigatesToSender(t *testing.T) {
	t.Parallel()

	r, tr, toast, nav := newRelayFixture(t)
	r.Start()

	notify(t, tr, "u2", "bo", "hi")
	r.Tap()

	if len(nav.opened) != 1 || nav.opened[0] != "u2" {
		t.Fatalf("opened = %v, want [u2]", nav.opened)
	}
	if toast.hiddenCount() != 1 {
		t.Fatalf("hide calls = %d, want 1", toast.hiddenCount())
	}
	// A second tap has nothing to act on.
	r.Tap()
	if len(nav.opened) != 1 {
		t.Fatalf("opened = %v after second tap", nav.opened)
	}
}

func TestRelayDismissHidesWithoutNavigating(t *testing.T) {
	t.Parallel()

	r, tr, toast, nav := newRelayFixture(t)
	r.Start()

	notify(t, tr, "u2", "bo", "hi")
	r.Dismiss()

	if len(nav.opened) != 0 {
		t.Fatalf("dismiss navigated: %v", nav.opened)
	}
	if toast.hiddenCount() != 1 {
		t.Fatalf("hide calls = %d, want 1", toast.hiddenCount())
	}
}

func TestRelayNewerAlertReplacesCurrent(t *testing.T) {
	t.Parallel()

	r, tr, _, nav := newRelayFixture(t)
	r.Start()

	notify(t, tr, "u2", "bo", "first")
	notify(t, tr, "u3", "cy", "second")

	a, ok := r.Current()
	if !ok || a.SenderID != "u3" {
		t.Fatalf("current = %+v, %v, want sender u3", a, ok)
	}

	r.Tap()
	if len(nav.opened) != 1 || nav.opened[0] != "u3" {
		t.Fatalf("opened = %v, want [u3]", nav.opened)
	}
}

func TestRelaySurvivesChannelRelease(t *testing.T) {
	t.Parallel()

	r, tr, toast, _ := newRelayFixture(t)
	r.Start()

	// A room screen binds and releases its channel; the relay's persistent
	// subscription must be untouched.
	reg := NewRegistry(testLogger(t), tr)
	if err := reg.Bind(ChannelBinding{Kind: KindRoom, RoomID: "r1"}, map[string]func(json.RawMessage){
		v1.EventNewMessage: func(json.RawMessage) {},
	}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	reg.Release()

	notify(t, tr, "u2", "bo", "hi")
	if len(toast.shown) != 1 {
		t.Fatalf("alerts shown = %d, want 1", len(toast.shown))
	}
}

func TestRelayStopDetachesAndClears(t *testing.T) {
	t.Parallel()

	r, tr, toast, _ := newRelayFixture(t)
	r.Start()
	notify(t, tr, "u2", "bo", "hi")

	r.Stop()

	if _, ok := r.Current(); ok {
		t.Fatal("alert survived stop")
	}
	if got := tr.listenerCount(v1.EventPrivateMessageNotification); got != 0 {
		t.Fatalf("listeners after stop = %d", got)
	}

	notify(t, tr, "u3", "cy", "late")
	if len(toast.shown) != 1 {
		t.Fatalf("alerts shown = %d after stop, want 1", len(toast.shown))
	}
}
