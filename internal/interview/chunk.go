package interview

import (
	"iter"
	"unicode/utf8"
)

// MaxMessageLen is the platform's single-message character limit.
const MaxMessageLen = 2000

// Chunks yields text in consecutive pieces of size characters, the last
// piece holding the remainder. Boundaries fall on character counts only.
// Concatenating the pieces reproduces text exactly.
func Chunks(text string, size int) iter.Seq[string] {
	if size <= 0 {
		size = MaxMessageLen
	}
	return func(yield func(string) bool) {
		rest := text
		for len(rest) > 0 {
			end, n := 0, 0
			for end < len(rest) && n < size {
				_, w := utf8.DecodeRuneInString(rest[end:])
				end += w
				n++
			}
			if !yield(rest[:end]) {
				return
			}
			rest = rest[end:]
		}
	}
}
