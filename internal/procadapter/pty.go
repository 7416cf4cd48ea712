package procadapter

import (
	"bytes"
	"context"
	"os/exec"
	"sync"
)

// ptyCols and ptyRows are the fixed dimensions spec.md §4.4 mandates for
// the pseudo-terminal variant.
const (
	ptyCols = 120
	ptyRows = 30
)

// PTYCols and PTYRows expose the same fixed dimensions for callers that
// enrich a session with virtual-terminal state sized to match.
const (
	PTYCols = ptyCols
	PTYRows = ptyRows
)

// ptyAdapter spawns a command attached to a pseudo-terminal. All bytes,
// including the child's own escape sequences, arrive through a single
// data callback.
type ptyAdapter struct {
	cmd *exec.Cmd
	pty ptyHandle

	mu     sync.Mutex
	onData func(chunk []byte)
	onExit func(exitCode int, exitSignal string)
}

func spawnPTY(ctx context.Context, req SpawnRequest) (Adapter, error) {
	prog, args := shellExecArgs(req.Shell, req.Command)
	cmd := exec.CommandContext(ctx, prog, args...)
	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	cmd.Env = mergeEnv(req.Env)

	handle, err := startPTYWithSize(cmd, ptyCols, ptyRows)
	if err != nil {
		return nil, err
	}

	a := &ptyAdapter{cmd: cmd, pty: handle}
	return a, nil
}

// Start begins reading PTY output and waiting for exit. Callers must
// register OnData/OnExit first, for the same reason as the plain
// adapter's Start: otherwise a fast-exiting child's output or exit event
// can be observed while the callback is still nil and silently dropped.
func (a *ptyAdapter) Start() {
	go a.readLoop()
	go a.wait()
}

// readLoop feeds PTY output to the data callback, answering terminal
// queries (cursor-position DSR, device-attributes DA1) synthetically so
// that CLI tools which probe the terminal on startup don't stall waiting
// for a real terminal to reply.
func (a *ptyAdapter) readLoop() {
	buf := make([]byte, 32768)
	for {
		n, err := a.pty.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			a.respondToTerminalQueries(data)
			a.mu.Lock()
			cb := a.onData
			a.mu.Unlock()
			if cb != nil {
				cb(data)
			}
		}
		if err != nil {
			return
		}
	}
}

func (a *ptyAdapter) respondToTerminalQueries(data []byte) {
	if containsDSRQuery(data) {
		_, _ = a.pty.Write([]byte("\x1b[1;1R"))
	}
	if containsDA1Query(data) {
		_, _ = a.pty.Write([]byte("\x1b[?1;2c"))
	}
}

func (a *ptyAdapter) wait() {
	code, signal, _ := waitPTYProcess(a.cmd)
	a.mu.Lock()
	cb := a.onExit
	a.mu.Unlock()
	if cb != nil {
		cb(code, signal)
	}
}

func (a *ptyAdapter) Write(data []byte) (int, error) {
	return a.pty.Write(data)
}

// Kill ignores signal and always sends the platform default termination,
// per spec.md §4.4.
func (a *ptyAdapter) Kill(signal string) error {
	return terminatePTY(a.cmd)
}

func (a *ptyAdapter) OnData(cb func(chunk []byte)) {
	a.mu.Lock()
	a.onData = cb
	a.mu.Unlock()
}

func (a *ptyAdapter) OnExit(cb func(exitCode int, exitSignal string)) {
	a.mu.Lock()
	a.onExit = cb
	a.mu.Unlock()
}

func (a *ptyAdapter) Release() error {
	return a.pty.Close()
}

// containsDSRQuery reports whether data contains a cursor-position report
// request (ESC [ 6 n).
func containsDSRQuery(data []byte) bool {
	return bytes.Contains(data, []byte("\x1b[6n"))
}

// containsDA1Query reports whether data contains a primary device
// attributes request (ESC [ c or ESC [ 0 c).
func containsDA1Query(data []byte) bool {
	return bytes.Contains(data, []byte("\x1b[c")) || bytes.Contains(data, []byte("\x1b[0c"))
}
