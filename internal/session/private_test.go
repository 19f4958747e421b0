package session

import (
	"context"
	"errors"
	"fmt"
	"testing"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/rest"
)

type privateFixture struct {
	tr   *fakeTransport
	reg  *Registry
	view *fakePrivateView
	c    *PrivateController
}

func newPrivateFixture(t *testing.T) *privateFixture {
	t.Helper()
	tr := newFakeTransport()
	reg := NewRegistry(testLogger(t), tr)
	view := &fakePrivateView{}
	self := rest.User{ID: "u1", Username: "ada"}
	c := NewPrivateController(testLogger(t), tr, reg, view, "u2", self)
	return &privateFixture{tr: tr, reg: reg, view: view, c: c}
}

func (f *privateFixture) start(t *testing.T) {
	t.Helper()
	if err := f.c.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
}

func (f *privateFixture) initChat(t *testing.T, chatID string, history ...v1.Message) {
	t.Helper()
	f.tr.fire(t, v1.EventPrivateChatInit, v1.PrivateChatInitPayload{ChatID: chatID, Messages: history})
}

func TestPrivateStartBindsBeforeJoinEmit(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)

	if f.tr.listenerCount(v1.EventPrivateChatInit) != 1 {
		t.Fatal("init listener not bound")
	}
	if f.tr.listenerCount(v1.EventNewPrivateMessage) != 1 {
		t.Fatal("message listener not bound")
	}

	emits := f.tr.emitted(v1.EventJoinPrivateChat)
	if len(emits) != 1 {
		t.Fatalf("join-private-chat emitted %d times", len(emits))
	}
	if p := emits[0].payload.(v1.JoinPrivateChatPayload); p.TargetUserID != "u2" {
		t.Fatalf("join payload = %+v", p)
	}
	if got := f.c.State(); got != PrivateInitializing {
		t.Fatalf("state = %s, want initializing", got)
	}
}

func TestPrivateInitMakesChatReady(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)
	f.initChat(t, "chat-7",
		v1.Message{ID: "m1", SenderID: "u2", Username: "bo", Content: "hey"},
		v1.Message{ID: "m2", SenderID: "u1", Username: "ada", Content: "hi"},
	)

	if got := f.c.State(); got != PrivateReady {
		t.Fatalf("state = %s, want ready", got)
	}
	if got := f.c.ChatID(); got != "chat-7" {
		t.Fatalf("chat id = %q", got)
	}
	if b, _ := f.reg.Active(); b.ChatID != "chat-7" {
		t.Fatalf("binding chat id = %q", b.ChatID)
	}
	if len(f.view.history) != 2 {
		t.Fatalf("history shown = %d", len(f.view.history))
	}
	// Ownership in private chats is the sender id.
	if f.view.history[0].Own || !f.view.history[1].Own {
		t.Fatalf("ownership = %v/%v, want false/true", f.view.history[0].Own, f.view.history[1].Own)
	}
}

func TestPrivateEarlyMessagesBufferedUntilInit(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)

	// The peer's message can beat the init acknowledgement to the wire.
	f.tr.fire(t, v1.EventNewPrivateMessage, v1.NewPrivateMessagePayload{Message: v1.Message{
		ID: "early", SenderID: "u2", Username: "bo", Content: "you there?",
	}})

	if len(f.view.appended) != 0 {
		t.Fatal("early message shown before init")
	}

	f.initChat(t, "chat-7", v1.Message{ID: "h1", SenderID: "u2", Username: "bo", Content: "old"})

	if len(f.view.history) != 2 || f.view.history[0].ID != "h1" || f.view.history[1].ID != "early" {
		t.Fatalf("history after init = %+v", f.view.history)
	}

	// Subsequent messages append normally.
	f.tr.fire(t, v1.EventNewPrivateMessage, v1.NewPrivateMessagePayload{Message: v1.Message{
		ID: "m2", SenderID: "u2", Username: "bo", Content: "yes",
	}})
	if len(f.view.appended) != 1 || f.view.appended[0].ID != "m2" {
		t.Fatalf("appended = %+v", f.view.appended)
	}
}

func TestPrivateEarlyBufferIsBounded(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)

	total := defaultHistoryLimit + 5
	for i := 0; i < total; i++ {
		f.tr.fire(t, v1.EventNewPrivateMessage, v1.NewPrivateMessagePayload{Message: v1.Message{
			ID: fmt.Sprintf("m%d", i), SenderID: "u2", Username: "bo", Content: "spam",
		}})
	}

	f.initChat(t, "chat-7")

	got := f.view.history
	if len(got) != defaultHistoryLimit {
		t.Fatalf("buffered %d messages, want %d", len(got), defaultHistoryLimit)
	}
	// Oldest overflow is dropped; the newest survive in receipt order.
	if want := fmt.Sprintf("m%d", total-defaultHistoryLimit); got[0].ID != want {
		t.Fatalf("first buffered id = %s, want %s", got[0].ID, want)
	}
	if want := fmt.Sprintf("m%d", total-1); got[len(got)-1].ID != want {
		t.Fatalf("last buffered id = %s, want %s", got[len(got)-1].ID, want)
	}
}

func TestPrivateSendRequiresReady(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)

	if err := f.c.Send(context.Background(), "hi"); !errors.Is(err, ErrNotJoined) {
		t.Fatalf("send before init = %v, want ErrNotJoined", err)
	}

	f.initChat(t, "chat-7")

	if err := f.c.Send(context.Background(), "  hi  "); err != nil {
		t.Fatalf("send after init: %v", err)
	}
	emits := f.tr.emitted(v1.EventSendPrivateMessage)
	if len(emits) != 1 {
		t.Fatalf("send-private-message emitted %d times", len(emits))
	}
	if p := emits[0].payload.(v1.SendPrivateMessagePayload); p.ChatID != "chat-7" || p.Content != "hi" {
		t.Fatalf("send payload = %+v", p)
	}
}

func TestPrivateSendValidation(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)
	f.initChat(t, "chat-7")

	if err := f.c.Send(context.Background(), "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("whitespace send = %v, want ErrEmptyMessage", err)
	}
	if got := len(f.tr.emitted(v1.EventSendPrivateMessage)); got != 0 {
		t.Fatalf("send-private-message emitted %d times", got)
	}
}

func TestPrivateCloseBeforeInitSkipsLeaveEmit(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)

	// No chat id was ever assigned; there is nothing to leave on the wire.
	f.c.Close(context.Background())

	if got := len(f.tr.emitted(v1.EventLeavePrivateChat)); got != 0 {
		t.Fatalf("leave-private-chat emitted %d times, want 0", got)
	}
	if _, ok := f.reg.Active(); ok {
		t.Fatal("binding still active after close")
	}
}

func TestPrivateCloseIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)
	f.initChat(t, "chat-7")

	f.c.Close(context.Background())
	f.c.Close(context.Background())

	emits := f.tr.emitted(v1.EventLeavePrivateChat)
	if len(emits) != 1 {
		t.Fatalf("leave-private-chat emitted %d times, want 1", len(emits))
	}
	if p := emits[0].payload.(v1.LeavePrivateChatPayload); p.ChatID != "chat-7" {
		t.Fatalf("leave payload = %+v", p)
	}
	if err := f.c.Send(context.Background(), "hi"); !errors.Is(err, ErrClosed) {
		t.Fatalf("send after close = %v, want ErrClosed", err)
	}
}

func TestPrivateStartFailureOnSocketJoin(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.tr.emitErr[v1.EventJoinPrivateChat] = errors.New("pipe broke")

	if err := f.c.Start(context.Background()); !errors.Is(err, ErrJoinFailure) {
		t.Fatalf("start err = %v, want ErrJoinFailure", err)
	}
	if got := f.c.State(); got != PrivateError {
		t.Fatalf("state = %s, want error", got)
	}
	if _, ok := f.reg.Active(); ok {
		t.Fatal("binding left active after failed start")
	}
	if len(f.view.errors) != 1 {
		t.Fatalf("errors shown = %v", f.view.errors)
	}
}

func TestPrivateEventsAfterCloseAreDiscarded(t *testing.T) {
	t.Parallel()

	f := newPrivateFixture(t)
	f.start(t)
	f.initChat(t, "chat-7")
	f.c.Close(context.Background())

	f.c.onNewMessage([]byte(`{"message":{"_id":"stale","content":"x"}}`))

	if len(f.view.appended) != 0 {
		t.Fatalf("appended %d messages after close", len(f.view.appended))
	}
}
