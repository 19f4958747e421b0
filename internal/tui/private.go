package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"loci/internal/rest"
	"loci/internal/session"
)

// PrivateScreen is the interactive two-party chat view. It implements
// session.PrivateView.
type PrivateScreen struct {
	log   *slog.Logger
	l     *chatLayout
	ctrl  *session.PrivateController
	relay *session.NotifyRelay
	nav   *stopNavigator

	ctx context.Context
}

// NewPrivateScreen wires a screen and its controller for a chat with one
// peer.
func NewPrivateScreen(log *slog.Logger, tr session.Transport, reg *session.Registry, peerUserID string, self rest.User) *PrivateScreen {
	l := newChatLayout("private chat", self.Username)
	s := &PrivateScreen{log: log, l: l}
	s.ctrl = session.NewPrivateController(log, tr, reg, s, peerUserID, self)
	s.nav = &stopNavigator{app: l.app}
	s.relay = session.NewNotifyRelay(log, tr, newBannerToast(l), s.nav)
	return s
}

// Run blocks until the user exits or taps an alert for a different peer.
func (s *PrivateScreen) Run(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.relay.Start()

	s.l.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := s.l.input.GetText()
		s.l.input.SetText("")
		go s.send(text)
	})

	s.l.app.SetInputCapture(s.handleKey)

	go func() {
		if err := s.ctrl.Start(ctx); err != nil {
			s.log.Error("private.start", "err", err)
		}
	}()

	runErr := s.l.app.Run()

	s.relay.Stop()
	s.ctrl.Close(context.WithoutCancel(ctx))
	return s.nav.peer, runErr
}

// handleKey routes screen-level keys; same bindings as the room screen.
func (s *PrivateScreen) handleKey(ev *tcell.EventKey) *tcell.EventKey {
	switch ev.Key() {
	case tcell.KeyCtrlC, tcell.KeyEscape:
		s.l.app.Stop()
		return nil
	case tcell.KeyCtrlO:
		if _, ok := s.relay.Current(); ok {
			s.relay.Tap()
			return nil
		}
	case tcell.KeyCtrlX:
		if _, ok := s.relay.Current(); ok {
			s.relay.Dismiss()
			return nil
		}
	}
	return ev
}

func (s *PrivateScreen) send(text string) {
	err := s.ctrl.Send(s.ctx, text)
	switch {
	case err == nil, errors.Is(err, session.ErrEmptyMessage):
	case errors.Is(err, session.ErrNotJoined):
		s.ShowError("Chat is still opening, try again")
	case errors.Is(err, session.ErrMessageTooLong):
		s.ShowError("Message is too long")
	case errors.Is(err, session.ErrClosed):
	default:
		s.log.Warn("private.send.fail", "err", err)
		s.ShowError("Failed to send message")
	}
}

// ---- session.PrivateView ----

func (s *PrivateScreen) ShowHistory(msgs []session.Msg) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.text.Clear()
		for _, m := range msgs {
			s.l.writeLine(formatMsg(m))
		}
	})
}

func (s *PrivateScreen) AppendMessage(m session.Msg) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.writeLine(formatMsg(m))
	})
}

func (s *PrivateScreen) ShowError(msg string) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.writeLine(formatError(msg))
	})
}
