package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// OK prints a success line.
func OK(w io.Writer, msg string) {
	t := Current()
	fmt.Fprintln(w, t.Success.Render(t.SymOK+" "+msg))
}

// Fail prints an error line.
func Fail(w io.Writer, msg string) {
	t := Current()
	fmt.Fprintln(w, t.Error.Render(t.SymFail+" "+msg))
}

// Box renders the checkbox for a completion state.
func Box(done bool) string {
	t := Current()
	if done {
		return t.Success.Render(t.BoxChecked)
	}
	return t.Muted.Render(t.BoxUnchecked)
}

// Panel draws a framed box around lines using the current theme.
func Panel(lines []string) string {
	t := Current()
	border := lipgloss.NewStyle().
		Border(t.Border).
		BorderForeground(t.BorderColor).
		Padding(0, 1)
	return border.Render(strings.Join(lines, "\n"))
}

// ProgressBar renders done/total as width cells, filled ones in the success
// style, then the percentage. done beyond total counts as complete.
func ProgressBar(done, total, width int) string {
	t := Current()
	width = max(width, 5)
	ratio := 0.0
	if total > 0 {
		ratio = min(float64(max(done, 0))/float64(total), 1)
	}
	filled := int(ratio * float64(width))
	return t.Success.Render(strings.Repeat("█", filled)) +
		t.Muted.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3d%%", int(ratio*100))
}
