package session

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	v1 "loci/contracts/realtime/v1"
	"loci/internal/app"
	"loci/internal/rest"
)

// fakeTransport is an in-process Transport that records emits and lets tests
// fire inbound events synchronously.
type fakeTransport struct {
	mu         sync.Mutex
	connected  bool
	connectErr error
	emitErr    map[string]error
	emits      []emittedEvent
	nextID     int
	listeners  map[string]map[int]func(json.RawMessage)
}

type emittedEvent struct {
	event   string
	payload any
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		emitErr:   map[string]error{},
		listeners: map[string]map[int]func(json.RawMessage){},
	}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Emit(ctx context.Context, event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.emitErr[event]; err != nil {
		return err
	}
	f.emits = append(f.emits, emittedEvent{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) On(event string, fn func(json.RawMessage)) Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.listeners[event] == nil {
		f.listeners[event] = map[int]func(json.RawMessage){}
	}
	f.listeners[event][id] = fn
	return &fakeSub{tr: f, event: event, id: id}
}

// fire delivers an inbound event to every bound listener, synchronously.
func (f *fakeTransport) fire(t *testing.T, event string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", event, err)
	}
	f.mu.Lock()
	fns := make([]func(json.RawMessage), 0, len(f.listeners[event]))
	for _, fn := range f.listeners[event] {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(raw)
	}
}

func (f *fakeTransport) emitted(event string) []emittedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emittedEvent
	for _, e := range f.emits {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (f *fakeTransport) listenerCount(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners[event])
}

type fakeSub struct {
	tr    *fakeTransport
	event string
	id    int
	once  sync.Once
}

func (s *fakeSub) Close() {
	s.once.Do(func() {
		s.tr.mu.Lock()
		delete(s.tr.listeners[s.event], s.id)
		s.tr.mu.Unlock()
	})
}

// fakeRoomAPI stubs the REST surface a room controller touches.
type fakeRoomAPI struct {
	mu         sync.Mutex
	room       rest.Room
	roomErr    error
	history    []v1.Message
	historyErr error
	joinResult rest.JoinResult
	joinErr    error
	leaveErr   error
	joins      int
	leaves     int

	// onGet runs during GetChatroom, before the response is returned. Lets a
	// test close the screen while the load is in flight.
	onGet func()
}

func (f *fakeRoomAPI) GetChatroom(ctx context.Context, roomID string) (rest.Room, error) {
	if f.onGet != nil {
		f.onGet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.room, f.roomErr
}

func (f *fakeRoomAPI) JoinChatroom(ctx context.Context, roomID string, isAnonymous bool) (rest.JoinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return rest.JoinResult{}, f.joinErr
	}
	f.joins++
	return f.joinResult, nil
}

func (f *fakeRoomAPI) LeaveChatroom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.leaveErr != nil {
		return f.leaveErr
	}
	f.leaves++
	return nil
}

func (f *fakeRoomAPI) ListMessages(ctx context.Context, roomID string, limit int) ([]v1.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, f.historyErr
}

func (f *fakeRoomAPI) joinCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.joins
}

func (f *fakeRoomAPI) leaveCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.leaves
}

// fakeRoomView records everything the controller tells it to display.
type fakeRoomView struct {
	mu       sync.Mutex
	history  []Msg
	appended []Msg
	choices  int
	joined   []string
	left     []string
	errors   []string
}

func (v *fakeRoomView) ShowHistory(msgs []Msg) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = msgs
}

func (v *fakeRoomView) AppendMessage(m Msg) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appended = append(v.appended, m)
}

func (v *fakeRoomView) PresentJoinChoice(selfName string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.choices++
}

func (v *fakeRoomView) ParticipantJoined(username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.joined = append(v.joined, username)
}

func (v *fakeRoomView) ParticipantLeft(username string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.left = append(v.left, username)
}

func (v *fakeRoomView) PeerTyping(username string, typing bool) {}

func (v *fakeRoomView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, msg)
}

func (v *fakeRoomView) appendedCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.appended)
}

// fakePrivateView mirrors fakeRoomView for private chats.
type fakePrivateView struct {
	mu       sync.Mutex
	history  []Msg
	appended []Msg
	errors   []string
}

func (v *fakePrivateView) ShowHistory(msgs []Msg) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history = msgs
}

func (v *fakePrivateView) AppendMessage(m Msg) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.appended = append(v.appended, m)
}

func (v *fakePrivateView) ShowError(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errors = append(v.errors, msg)
}

func testLogger(t *testing.T) app.Logger {
	t.Helper()
	return app.NewLoggerTo(testWriter{t}, "debug", "json")
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}
