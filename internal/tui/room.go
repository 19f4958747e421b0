package tui

import (
	"context"
	"errors"
	"log/slog"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"loci/internal/rest"
	"loci/internal/session"
)

// RoomScreen is the interactive room view. It implements session.RoomView;
// the controller owns the lifecycle, the screen only draws and forwards
// input.
type RoomScreen struct {
	log   *slog.Logger
	l     *chatLayout
	ctrl  *session.RoomController
	relay *session.NotifyRelay
	nav   *stopNavigator

	title string
	ctx   context.Context
}

// NewRoomScreen wires a screen, its controller, and a notification relay for
// one room.
func NewRoomScreen(log *slog.Logger, api session.RoomAPI, tr session.Transport, reg *session.Registry, roomID string, self rest.User) *RoomScreen {
	title := "room " + roomID
	l := newChatLayout(title, self.Username)
	s := &RoomScreen{log: log, l: l, title: title}
	s.ctrl = session.NewRoomController(log, api, tr, reg, s, roomID, self)
	s.nav = &stopNavigator{app: l.app}
	s.relay = session.NewNotifyRelay(log, tr, newBannerToast(l), s.nav)
	return s
}

// Run blocks until the user exits or taps a private-message alert. The
// returned peer id is non-empty when the caller should open that private
// chat next.
func (s *RoomScreen) Run(ctx context.Context) (string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.ctx = ctx

	s.relay.Start()

	s.l.input.SetDoneFunc(func(key tcell.Key) {
		if key != tcell.KeyEnter {
			return
		}
		text := s.l.input.GetText()
		// The input clears immediately; delivery is fire-and-forget.
		s.l.input.SetText("")
		go s.send(text)
	})
	s.l.input.SetChangedFunc(func(text string) {
		go s.ctrl.SetTyping(s.ctx, text != "")
	})

	s.l.app.SetInputCapture(s.handleKey)

	go func() {
		if err := s.ctrl.Load(ctx); err != nil {
			s.log.Error("room.load", "err", err)
		}
	}()

	runErr := s.l.app.Run()

	s.relay.Stop()
	s.ctrl.Leave(context.WithoutCancel(ctx))
	return s.nav.peer, runErr
}

// handleKey routes screen-level keys: Esc/Ctrl+C exits, and while a
// private-message alert is on screen Ctrl+O opens the sender's chat and
// Ctrl+X dismisses the banner.
func (s *RoomScreen) handleKey(ev *tcell.EventKey) *tcell.EventKey {
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

func (s *RoomScreen) send(text string) {
	err := s.ctrl.Send(s.ctx, text)
	switch {
	case err == nil, errors.Is(err, session.ErrEmptyMessage):
	case errors.Is(err, session.ErrMessageTooLong):
		s.ShowError("Message is too long")
	case errors.Is(err, session.ErrClosed):
	default:
		s.log.Warn("room.send.fail", "err", err)
		s.ShowError("Failed to send message")
	}
}

// ---- session.RoomView ----

func (s *RoomScreen) ShowHistory(msgs []session.Msg) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.text.Clear()
		for _, m := range msgs {
			s.l.writeLine(formatMsg(m))
		}
	})
}

func (s *RoomScreen) AppendMessage(m session.Msg) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.writeLine(formatMsg(m))
	})
}

func (s *RoomScreen) PresentJoinChoice(selfName string) {
	s.l.app.QueueUpdateDraw(func() {
		modal := tview.NewModal().
			SetText("Join this room?").
			AddButtons([]string{"Join as " + selfName, "Join anonymously", "Cancel"}).
			SetDoneFunc(func(i int, label string) {
				s.l.pages.RemovePage("join")
				s.l.app.SetFocus(s.l.input)
				switch i {
				case 0:
					go s.join(false)
				case 1:
					go s.join(true)
				default:
					s.ctrl.Cancel()
					s.l.app.Stop()
				}
			})
		s.l.pages.AddPage("join", modal, true, true)
	})
}

func (s *RoomScreen) join(anonymous bool) {
	if err := s.ctrl.Join(s.ctx, anonymous); err != nil {
		s.log.Warn("room.join.fail", "err", err)
	}
}

func (s *RoomScreen) ParticipantJoined(username string) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.writeLine(formatNotice(username + " joined the room"))
	})
}

func (s *RoomScreen) ParticipantLeft(username string) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.writeLine(formatNotice(username + " left the room"))
	})
}

func (s *RoomScreen) PeerTyping(username string, typing bool) {
	s.l.app.QueueUpdateDraw(func() {
		if typing {
			s.l.text.SetTitle(" " + s.title + " — " + username + " is typing… ")
		} else {
			s.l.text.SetTitle(" " + s.title + " ")
		}
	})
}

func (s *RoomScreen) ShowError(msg string) {
	s.l.app.QueueUpdateDraw(func() {
		s.l.writeLine(formatError(msg))
	})
}
