// Package promptdetect recognizes shell prompt re-appearance at the end
// of a line of terminal output, in the small calibrated style of the
// teacher's claude_code_detector.go.
package promptdetect

import "regexp"

// Built-in calibrated prompt patterns. No line can match both, so the
// order in which Detect tries them does not change its result.
var (
	windowsPattern = regexp.MustCompile(`PS [^>]*> $`)
	posixPattern   = regexp.MustCompile(`[$#] $`)
)

// Detect tests line (after ANSI stripping, done by the caller) against the
// built-in prompt patterns and returns the first one that matches, or nil
// if none match. The caller is responsible for caching the result on the
// session: once a pattern is chosen it must never be replaced.
func Detect(line string) *regexp.Regexp {
	if windowsPattern.MatchString(line) {
		return windowsPattern
	}
	if posixPattern.MatchString(line) {
		return posixPattern
	}
	return nil
}
