package main

import (
	"bytes"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/interviewer/internal/models"
)

func TestWrapText(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  []string
	}{
		{"fits", "hello world", 20, []string{"hello world"}},
		{"wraps on words", "one two three four", 9, []string{"one two", "three", "four"}},
		{"keeps newlines", "a\n\nb", 10, []string{"a", "", "b"}},
		{"splits long word", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"long word after text", "hi abcdefgh", 4, []string{"hi", "abcd", "efgh"}},
		{"collapses spaces", "a   b", 10, []string{"a b"}},
		{"counts runes", "éé éé", 5, []string{"éé éé"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapText(tt.in, tt.width)
			if !slices.Equal(got, tt.want) {
				t.Errorf("wrapText(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
			}
		})
	}
}

func TestWrapText_NonPositiveWidth(t *testing.T) {
	long := strings.Repeat("x ", 60)
	for _, line := range wrapText(long, 0) {
		if len(line) > defaultWidth {
			t.Errorf("line longer than default width: %d", len(line))
		}
	}
}

func TestPrintTranscript_ClampsNarrowWidth(t *testing.T) {
	turns := []models.ArchivedTurn{{Sequence: 1, Role: "assistant", Content: strings.Repeat("mot ", 40)}}
	for _, width := range []int{-1, 0, 3, 4} {
		buf := new(bytes.Buffer)
		printTranscript(buf, "C01", turns, width)

		wrapped := 0
		for _, line := range strings.Split(buf.String(), "\n") {
			if !strings.HasPrefix(line, "    ") {
				continue
			}
			wrapped++
			if len(line) > minWidth {
				t.Errorf("width %d: line exceeds %d columns: %q", width, minWidth, line)
			}
		}
		if wrapped < 2 {
			t.Errorf("width %d: expected content wrapped to %d columns, got %d lines", width, minWidth, wrapped)
		}
	}
}

func TestTermWidth_NotATerminal(t *testing.T) {
	if got := termWidth(new(bytes.Buffer)); got != defaultWidth {
		t.Errorf("termWidth(buffer) = %d, want %d", got, defaultWidth)
	}
}

func TestSpeaker(t *testing.T) {
	tests := []struct {
		turn models.ArchivedTurn
		want string
	}{
		{models.ArchivedTurn{Role: "user", UserName: "alice"}, "alice"},
		{models.ArchivedTurn{Role: "user"}, "user"},
		{models.ArchivedTurn{Role: "assistant"}, "assistant"},
		{models.ArchivedTurn{Role: "system", UserName: "ignored"}, "system"},
	}
	for _, tt := range tests {
		if got := speaker(tt.turn); got != tt.want {
			t.Errorf("speaker(%+v) = %q, want %q", tt.turn, got, tt.want)
		}
	}
}

func TestFormatWhen(t *testing.T) {
	if got := formatWhen(time.Time{}); got != "-" {
		t.Errorf("formatWhen(zero) = %q, want -", got)
	}
	ts := time.Date(2026, 3, 4, 5, 6, 0, 0, time.Local)
	if got := formatWhen(ts); got != "2026-03-04 05:06" {
		t.Errorf("formatWhen = %q", got)
	}
}
