// Package segment splits assistant replies into sentence-sized units so speech
// synthesis can start before the full reply is spoken.
package segment

import (
	"strings"
	"unicode"
)

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	default:
		return false
	}
}

// Sentences splits text on boundaries where sentence-terminal punctuation is
// followed by whitespace. Each unit is trimmed; empty units (repeated
// punctuation, trailing whitespace) are dropped. A trailing clause with no
// terminal punctuation is still emitted as the final unit.
func Sentences(text string) []string {
	var out []string
	var cur strings.Builder

	flush := func() {
		s := strings.TrimSpace(cur.String())
		cur.Reset()
		if s != "" {
			out = append(out, s)
		}
	}

	runes := []rune(text)
	for i, r := range runes {
		cur.WriteRune(r)
		if !isTerminal(r) {
			continue
		}
		if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()

	return out
}
