package tui

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/taskmate/internal/ui"
)

type noticeKind int

const (
	noticeInfo noticeKind = iota
	noticeSuccess
	noticeError
)

type noticeExpiredMsg struct{ seq int64 }

// noticeSeq numbers notices across all screens, so a tick scheduled by a
// screen that has since been replaced never matches a live notice.
var noticeSeq atomic.Int64

// notifier holds at most one transient message.
type notifier struct {
	ttl  time.Duration
	seq  int64
	kind noticeKind
	text string
}

func (n *notifier) show(kind noticeKind, text string) tea.Cmd {
	n.seq = noticeSeq.Add(1)
	n.kind, n.text = kind, text
	if n.ttl <= 0 {
		return nil
	}
	seq := n.seq
	return tea.Tick(n.ttl, func(time.Time) tea.Msg { return noticeExpiredMsg{seq: seq} })
}

func (n *notifier) expire(msg noticeExpiredMsg) {
	// a newer notice replaced this one
	if msg.seq == n.seq {
		n.text = ""
	}
}

func (n notifier) View() string {
	if n.text == "" {
		return ""
	}
	t := ui.Current()
	switch n.kind {
	case noticeError:
		return t.Error.Render(t.SymFail + " " + n.text)
	case noticeSuccess:
		return t.Success.Render(t.SymOK + " " + n.text)
	default:
		return t.Accent.Render(n.text)
	}
}
