package tui

import (
	"fmt"

	"github.com/rivo/tview"

	"loci/internal/session"
)

// bannerToast shows relay alerts in a screen's top banner row. The row has
// zero height until an alert is visible.
type bannerToast struct {
	l *chatLayout
}

func newBannerToast(l *chatLayout) *bannerToast {
	return &bannerToast{l: l}
}

func (t *bannerToast) ShowAlert(a session.Alert) {
	t.l.app.QueueUpdateDraw(func() {
		t.l.banner.SetText(fmt.Sprintf("[black:aqua] ✉ %s: %s  (^O open, ^X dismiss) [-:-]",
			tview.Escape(a.Username), tview.Escape(a.Content)))
		t.l.flex.ResizeItem(t.l.banner, 1, 0)
	})
}

func (t *bannerToast) HideAlert() {
	t.l.app.QueueUpdateDraw(func() {
		t.l.banner.SetText("")
		t.l.flex.ResizeItem(t.l.banner, 0, 0)
	})
}

// stopNavigator answers alert taps by remembering the peer and stopping the
// screen; the command loop then opens the private chat.
type stopNavigator struct {
	app  *tview.Application
	peer string
}

func (n *stopNavigator) OpenPrivateChat(peerUserID string) {
	n.peer = peerUserID
	n.app.Stop()
}
