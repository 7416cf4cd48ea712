// Package ansifilter strips SGR escape sequences and recognizes spinner
// frame repaints so the heuristics engine can classify output without
// ever mutating the bytes actually stored in a session's buffer.
package ansifilter

import "regexp"

// sgrPattern matches ESC [ <digits-and-semicolons> m, i.e. SGR (Select
// Graphic Rendition) sequences only. No other CSI sequence is stripped.
var sgrPattern = regexp.MustCompile("\x1b\\[[0-9;]*m")

// spinnerChars are the final characters a spinner repaint may end in.
const spinnerChars = `|/-\`

// Strip removes SGR escape sequences from line, leaving any other
// control sequence untouched.
func Strip(line string) string {
	return sgrPattern.ReplaceAllString(line, "")
}

// IsSpinnerFrame reports whether next is a spinner repaint of prev: after
// stripping ANSI and trailing whitespace, both have equal length, their
// final character is one of '|', '/', '-', '\', and they are otherwise
// identical. The raw bytes of a spinner frame are still appended to a
// session's buffer verbatim; only classification treats it as a no-op.
func IsSpinnerFrame(prev, next string) bool {
	p := trimTrailingSpace(Strip(prev))
	n := trimTrailingSpace(Strip(next))

	if len(p) == 0 || len(n) == 0 {
		return false
	}
	if len(p) != len(n) {
		return false
	}
	if !isSpinnerChar(p[len(p)-1]) || !isSpinnerChar(n[len(n)-1]) {
		return false
	}
	return p[:len(p)-1] == n[:len(n)-1]
}

func isSpinnerChar(c byte) bool {
	for i := 0; i < len(spinnerChars); i++ {
		if spinnerChars[i] == c {
			return true
		}
	}
	return false
}

func trimTrailingSpace(s string) string {
	end := len(s)
	for end > 0 && (s[end-1] == ' ' || s[end-1] == '\t') {
		end--
	}
	return s[:end]
}
