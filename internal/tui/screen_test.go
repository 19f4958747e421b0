package tui

import (
	"strings"
	"testing"
	"time"

	"loci/internal/session"
)

func TestFormatMsgColorsBySender(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 3, 1, 9, 30, 0, 0, time.Local)

	cases := []struct {
		name string
		msg  session.Msg
		want string
	}{
		{"own", session.Msg{Sender: "ada", Content: "hi", Own: true, CreatedAt: ts}, "[green]"},
		{"peer", session.Msg{Sender: "bo", Content: "hi", CreatedAt: ts}, "[blue]"},
		{"anonymous", session.Msg{Sender: "Guest482", Content: "hi", IsAnonymous: true, CreatedAt: ts}, "[yellow]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := formatMsg(tc.msg)
			if !strings.Contains(got, tc.want) {
				t.Fatalf("formatMsg = %q, want color %q", got, tc.want)
			}
			if !strings.Contains(got, "09:30:00") {
				t.Fatalf("formatMsg = %q, missing timestamp", got)
			}
		})
	}
}

func TestFormatMsgEscapesBrackets(t *testing.T) {
	t.Parallel()

	got := formatMsg(session.Msg{Sender: "bo", Content: "[red]sneaky"})
	if strings.Contains(got, "[red]sneaky") {
		t.Fatalf("formatMsg = %q, content tags not escaped", got)
	}
}
