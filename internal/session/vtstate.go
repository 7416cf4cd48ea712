package session

import (
	"strings"
	"sync"

	"github.com/tuzig/vt10x"
)

// vtState is the optional, advisory TUI-state enrichment described in
// SPEC_FULL.md §4.4: it feeds PTY bytes through a virtual terminal
// emulator to produce a richer snapshot than raw heuristics can, without
// ever driving a state transition on its own (spec.md explicitly
// excludes rich terminal emulation as the primary liveness mechanism).
type vtState struct {
	mu         sync.Mutex
	term       vt10x.Terminal
	cols, rows int
}

func newVTState(cols, rows int) *vtState {
	term := vt10x.New(vt10x.WithSize(cols, rows))
	return &vtState{term: term, cols: cols, rows: rows}
}

func (v *vtState) write(data []byte) {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, _ = v.term.Write(data)
}

// hint renders the bottom-most non-blank row of the virtual screen as a
// short advisory string, surfaced on status/attach as tuiHint.
func (v *vtState) hint() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	for row := v.rows - 1; row >= 0; row-- {
		var sb strings.Builder
		for col := 0; col < v.cols; col++ {
			glyph := v.term.Cell(col, row)
			if glyph.Char != 0 {
				sb.WriteRune(glyph.Char)
			} else {
				sb.WriteRune(' ')
			}
		}
		line := strings.TrimRight(sb.String(), " ")
		if line != "" {
			return line
		}
	}
	return ""
}
