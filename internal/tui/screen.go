// Package tui renders chat screens in the terminal with tview.
//
// Screens implement the session view interfaces; controller callbacks arrive
// on the transport's dispatcher goroutine, so every draw goes through
// Application.QueueUpdateDraw.
package tui

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"loci/internal/session"
)

// chatLayout is the shared shape of a chat screen: an alert banner, the
// scrolling message pane, and the input line.
type chatLayout struct {
	app    *tview.Application
	pages  *tview.Pages
	flex   *tview.Flex
	banner *tview.TextView
	text   *tview.TextView
	input  *tview.InputField
}

func newChatLayout(title, inputLabel string) *chatLayout {
	app := tview.NewApplication()

	banner := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)

	text := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true).
		ScrollToEnd()
	text.SetBorder(true).SetTitle(" " + title + " ")

	input := tview.NewInputField().
		SetLabel(inputLabel + " ❯ ").
		SetFieldWidth(0)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(banner, 0, 0, false).
		AddItem(text, 0, 1, false).
		AddItem(input, 1, 0, true)

	pages := tview.NewPages().AddPage("chat", flex, true, true)
	app.SetRoot(pages, true).SetFocus(input)

	return &chatLayout{app: app, pages: pages, flex: flex, banner: banner, text: text, input: input}
}

// writeLine appends a line to the message pane. Must run on the UI goroutine.
func (l *chatLayout) writeLine(line string) {
	fmt.Fprintln(l.text, line)
	l.text.ScrollToEnd()
}

func formatMsg(m session.Msg) string {
	ts := m.CreatedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	color := "blue"
	if m.Own {
		color = "green"
	} else if m.IsAnonymous {
		color = "yellow"
	}
	return fmt.Sprintf("[grey][%s] [%s]%s[-]: %s",
		ts.Local().Format("15:04:05"),
		color,
		tview.Escape(m.Sender),
		tview.Escape(m.Content))
}

func formatNotice(text string) string {
	return fmt.Sprintf("[grey]— %s —[-]", tview.Escape(text))
}

func formatError(text string) string {
	return fmt.Sprintf("[red]%s[-]", tview.Escape(text))
}
