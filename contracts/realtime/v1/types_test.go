package v1

import (
	"encoding/json"
	"testing"
	"time"
)

func validEnvelope() Envelope {
	return Envelope{
		V:       Version,
		Event:   EventNewMessage,
		ID:      "01JD0000000000000000000000",
		TS:      time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
		Payload: json.RawMessage(`{"message":{"content":"hi"}}`),
	}
}

func TestEnvelopeValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Envelope)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Envelope) {}, wantErr: false},
		{name: "missing v", mutate: func(e *Envelope) { e.V = "" }, wantErr: true},
		{name: "wrong version", mutate: func(e *Envelope) { e.V = "v2" }, wantErr: true},
		{name: "missing event", mutate: func(e *Envelope) { e.Event = "" }, wantErr: true},
		{name: "whitespace event", mutate: func(e *Envelope) { e.Event = "  " }, wantErr: true},
		{name: "unknown event", mutate: func(e *Envelope) { e.Event = "shrug" }, wantErr: true},
		{name: "typing supported", mutate: func(e *Envelope) { e.Event = EventTyping }, wantErr: false},
		{name: "connected supported", mutate: func(e *Envelope) { e.Event = EventConnected }, wantErr: false},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := validEnvelope()
			tc.mutate(&env)
			err := env.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("Validate() = nil, want error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestMessageRoundTripFieldNames(t *testing.T) {
	t.Parallel()

	// The backend uses Mongo-flavored field names; the contract must not drift.
	raw := []byte(`{"_id":"m1","senderId":"u1","username":"Guest482","content":"hello","isAnonymous":true,"sessionToken":"tok","createdAt":"2026-05-01T12:00:00Z"}`)

	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ID != "m1" || m.SenderID != "u1" || m.Username != "Guest482" {
		t.Fatalf("unexpected identity fields: %+v", m)
	}
	if !m.IsAnonymous || m.SessionToken != "tok" || m.Content != "hello" {
		t.Fatalf("unexpected content fields: %+v", m)
	}

	out, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Message
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("re-unmarshal: %v", err)
	}
	if back != m {
		t.Fatalf("round trip mismatch: got %+v want %+v", back, m)
	}
}
