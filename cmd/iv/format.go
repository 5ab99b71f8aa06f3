package main

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/zulandar/interviewer/internal/models"
	"golang.org/x/term"
)

const (
	defaultWidth = 80
	minWidth     = 40
	timeLayout   = "2006-01-02 15:04"
)

// termWidth returns the column count of w when it is a terminal, or
// defaultWidth otherwise.
func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return defaultWidth
	}
	cols, _, err := term.GetSize(int(f.Fd()))
	if err != nil || cols <= 0 {
		return defaultWidth
	}
	if cols < minWidth {
		return minWidth
	}
	return cols
}

// wrapText breaks s into lines of at most width runes. Existing line breaks
// are kept; words longer than width are split.
func wrapText(s string, width int) []string {
	if width <= 0 {
		width = defaultWidth
	}
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		var cur []rune
		for _, w := range words {
			r := []rune(w)
			for len(r) > width {
				if len(cur) > 0 {
					lines = append(lines, string(cur))
					cur = nil
				}
				lines = append(lines, string(r[:width]))
				r = r[width:]
			}
			switch {
			case len(r) == 0:
			case len(cur) == 0:
				cur = r
			case len(cur)+1+len(r) <= width:
				cur = append(append(cur, ' '), r...)
			default:
				lines = append(lines, string(cur))
				cur = r
			}
		}
		if len(cur) > 0 {
			lines = append(lines, string(cur))
		}
	}
	return lines
}

// speaker names the author of an archived turn.
func speaker(t models.ArchivedTurn) string {
	if t.Role == "user" && t.UserName != "" {
		return t.UserName
	}
	return t.Role
}

// formatWhen renders a timestamp in local time, or "-" for the zero time.
func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
