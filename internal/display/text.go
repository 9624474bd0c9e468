package display

import (
	"fmt"
	"io"
	"strings"
)

// Text writes each frame as a block of lines to w. It stands in for the
// panel on hosts without one. Identical consecutive frames are written once.
type Text struct {
	w     io.Writer
	lines []string
	last  string
}

func NewText(w io.Writer, lines int) *Text {
	return &Text{w: w, lines: make([]string, lines)}
}

func (t *Text) Lines() int { return len(t.lines) }

func (t *Text) Clear() {
	for i := range t.lines {
		t.lines[i] = ""
	}
}

func (t *Text) DrawText(line int, text string) {
	if line < 0 || line >= len(t.lines) {
		return
	}
	t.lines[line] = text
}

func (t *Text) Flush() error {
	var b strings.Builder
	b.WriteString("+----------------+\n")
	for _, l := range t.lines {
		fmt.Fprintf(&b, "|%-16.16s|\n", l)
	}
	b.WriteString("+----------------+\n")

	frame := b.String()
	if frame == t.last {
		return nil
	}
	if _, err := io.WriteString(t.w, frame); err != nil {
		return fmt.Errorf("text display: %w", err)
	}
	t.last = frame
	return nil
}
