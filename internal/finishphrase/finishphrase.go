// Package finishphrase recognizes lines that hint a command has finished.
// This signal is advisory only: a true result never by itself transitions
// a session to completed (that is the quiet-complete timer's job); it
// exists to shorten quiet windows in future extensions.
package finishphrase

import "regexp"

// patterns is a fixed, case-insensitive list of completion idioms drawn
// from common build tools, package managers, and dev servers.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)[✔✓]`),
	regexp.MustCompile(`(?i)\bsuccess\b`),
	regexp.MustCompile(`(?i)\bdone\b`),
	regexp.MustCompile(`(?i)\bcompleted\b`),
	regexp.MustCompile(`(?i)all tests passed`),
	regexp.MustCompile(`(?i)(added|audited) \d+ packages`),
	regexp.MustCompile(`(?i)up to date`),
	regexp.MustCompile(`(?i)built successfully`),
	regexp.MustCompile(`(?i)build succeeded`),
	regexp.MustCompile(`(?i)build failed`),
	regexp.MustCompile(`(?i)(listening|running) on https?`),
	regexp.MustCompile(`(?i)\bpublished\b`),
	regexp.MustCompile(`(?i)\bpushed\b`),
	regexp.MustCompile(`(?i)done in \d+(\.\d+)?(ms|s)\b`),
	regexp.MustCompile(`(?i)total time: \d+(\.\d+)?(ms|s|m|h)\b`),
}

// LooksFinished reports whether line matches one of the known
// completion idioms. The result is advisory only.
func LooksFinished(line string) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
