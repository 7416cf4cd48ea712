package procadapter

import (
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
)

// plainAdapter spawns a command as a raw child process with stdout and
// stderr merged into a single data callback.
type plainAdapter struct {
	cmd *exec.Cmd

	stdout io.Reader
	stderr io.Reader

	mu      sync.Mutex
	onData  func(chunk []byte)
	onExit  func(exitCode int, exitSignal string)
	stdin   io.WriteCloser
	done    chan struct{}
	doneErr error
}

func spawnPlain(ctx context.Context, req SpawnRequest) (Adapter, error) {
	prog, args := shellExecArgs(req.Shell, req.Command)
	cmd := exec.CommandContext(ctx, prog, args...)
	if req.Cwd != "" {
		cmd.Dir = req.Cwd
	}
	cmd.Env = mergeEnv(req.Env)
	setProcessGroup(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	a := &plainAdapter{cmd: cmd, stdin: stdin, stdout: stdout, stderr: stderr, done: make(chan struct{})}
	return a, nil
}

// Start begins pumping stdout/stderr and waiting for exit. Callers must
// register OnData/OnExit first: a fast-exiting child could otherwise have
// its only chunk read-and-dropped, or its exit observed while onExit is
// still nil and never delivered, leaving the session's done channel
// unclosed.
func (a *plainAdapter) Start() {
	var wg sync.WaitGroup
	wg.Add(2)
	go a.pump(&wg, a.stdout)
	go a.pump(&wg, a.stderr)

	go func() {
		wg.Wait()
		err := a.cmd.Wait()
		code, signal := decodeExit(err)
		close(a.done)
		a.mu.Lock()
		cb := a.onExit
		a.mu.Unlock()
		if cb != nil {
			cb(code, signal)
		}
	}()
}

func (a *plainAdapter) pump(wg *sync.WaitGroup, r io.Reader) {
	defer wg.Done()
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			a.mu.Lock()
			cb := a.onData
			a.mu.Unlock()
			if cb != nil {
				cb(chunk)
			}
		}
		if err != nil {
			return
		}
	}
}

func (a *plainAdapter) Write(data []byte) (int, error) {
	return a.stdin.Write(data)
}

func (a *plainAdapter) Kill(signal string) error {
	return killProcessGroup(a.cmd, signal)
}

func (a *plainAdapter) OnData(cb func(chunk []byte)) {
	a.mu.Lock()
	a.onData = cb
	a.mu.Unlock()
}

func (a *plainAdapter) OnExit(cb func(exitCode int, exitSignal string)) {
	a.mu.Lock()
	a.onExit = cb
	a.mu.Unlock()
}

func (a *plainAdapter) Release() error {
	return a.stdin.Close()
}

// mergeEnv appends extra env entries onto the current process environment,
// mirroring the teacher's passthrough-plus-override convention.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return os.Environ()
	}
	return append(os.Environ(), extra...)
}
