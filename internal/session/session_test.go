package session

import (
	"sync"
	"testing"
	"time"

	"github.com/vladnoskv/mcp-terminal-awareness/internal/completionsink"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/logging"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/procadapter"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/rpcerrors"
)

func newTestLogger(t *testing.T) *logging.Logger {
	log, err := logging.NewLogger(logging.Config{Level: "error", Format: "json", OutputPath: "stderr"})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	return log
}

// mockAdapter is a hand-written procadapter.Adapter fake: no real process,
// writes/kills are recorded, data/exit callbacks are driven manually by
// the test via emit/exit.
type mockAdapter struct {
	mu       sync.Mutex
	onData   func([]byte)
	onExit   func(int, string)
	writes   [][]byte
	kills    []string
	released bool
}

func (m *mockAdapter) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, append([]byte(nil), data...))
	return len(data), nil
}

func (m *mockAdapter) Kill(signal string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kills = append(m.kills, signal)
	return nil
}

func (m *mockAdapter) OnData(cb func(chunk []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onData = cb
}

func (m *mockAdapter) OnExit(cb func(exitCode int, exitSignal string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExit = cb
}

// Start is a no-op: emit/exit drive the callbacks directly in these tests.
func (m *mockAdapter) Start() {}

func (m *mockAdapter) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.released = true
	return nil
}

func (m *mockAdapter) emit(data []byte) {
	m.mu.Lock()
	cb := m.onData
	m.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

func (m *mockAdapter) exit(code int, signal string) {
	m.mu.Lock()
	cb := m.onExit
	m.mu.Unlock()
	if cb != nil {
		cb(code, signal)
	}
}

func startTestSession(t *testing.T, opts Options, adapter *mockAdapter) *Session {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = newTestLogger(t)
	}
	if opts.ID == "" {
		opts.ID = "test-session"
	}
	sess := New(opts)
	if err := sess.Start(func() (procadapter.Adapter, error) { return adapter, nil }); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	return sess
}

func TestSessionCompletesAfterQuietWindow(t *testing.T) {
	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{QuietMs: 20}, adapter)

	adapter.emit([]byte("hello\n"))
	adapter.exit(0, "")

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not complete within 1s of exit + quiet window")
	}

	snap := sess.Status()
	if snap.Status != StatusCompleted {
		t.Fatalf("Status = %v, want %v", snap.Status, StatusCompleted)
	}
	if snap.ExitCode == nil || *snap.ExitCode != 0 {
		t.Fatalf("ExitCode = %v, want 0", snap.ExitCode)
	}
	if !adapter.released {
		t.Fatal("adapter was not released on completion")
	}
}

func TestSessionRecordsSinkOnCompletion(t *testing.T) {
	var got completionsink.Record
	var mu sync.Mutex
	sink := completionsink.Logging{Log: func(rec completionsink.Record) {
		mu.Lock()
		got = rec
		mu.Unlock()
	}}

	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{QuietMs: 10, Sink: sink, Command: "echo hi"}, adapter)

	adapter.emit([]byte("hi\n"))
	adapter.exit(0, "")
	<-sess.Done()

	mu.Lock()
	defer mu.Unlock()
	if got.Command != "echo hi" {
		t.Fatalf("sink received Command = %q, want %q", got.Command, "echo hi")
	}
}

func TestSessionIdleTickTransitionsForward(t *testing.T) {
	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{
		QuietMs:   50 * 1000, // large: don't let quiet timer fire during this test
		WaitingMs: 10,
		StuckMs:   30,
	}, adapter)
	sess.StartIdleTimers()

	adapter.emit([]byte("working...\n"))

	// idleTick only runs once per second; wait past the first tick.
	time.Sleep(1200 * time.Millisecond)
	snap := sess.Status()
	if snap.Status != StatusWaiting && snap.Status != StatusPossiblyStuck {
		t.Fatalf("Status = %v, want waiting or possibly-stuck after idle", snap.Status)
	}
}

func TestSessionWriteFailsAfterTerminal(t *testing.T) {
	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{QuietMs: 5}, adapter)

	adapter.exit(0, "")
	<-sess.Done()

	if err := sess.Write([]byte("x")); err != rpcerrors.ErrSessionTerminal {
		t.Fatalf("Write() error = %v, want %v", err, rpcerrors.ErrSessionTerminal)
	}
}

func TestSessionSignalCtrlCWritesInterruptByte(t *testing.T) {
	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{QuietMs: 50 * 1000}, adapter)

	if err := sess.Signal("CTRL_C"); err != nil {
		t.Fatalf("Signal(CTRL_C) error = %v", err)
	}

	adapter.mu.Lock()
	defer adapter.mu.Unlock()
	if len(adapter.writes) != 1 || len(adapter.writes[0]) != 1 || adapter.writes[0][0] != 0x03 {
		t.Fatalf("writes = %v, want a single 0x03 byte", adapter.writes)
	}
}

func TestSessionFailTransitionsToError(t *testing.T) {
	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{QuietMs: 50 * 1000}, adapter)

	sess.Fail("command timed out")
	<-sess.Done()

	snap := sess.Status()
	if snap.Status != StatusError {
		t.Fatalf("Status = %v, want %v", snap.Status, StatusError)
	}
	if snap.ErrorReason != "command timed out" {
		t.Fatalf("ErrorReason = %q, want %q", snap.ErrorReason, "command timed out")
	}
}

func TestSessionTimedOutExitTransitionsToErrorNotCompleted(t *testing.T) {
	adapter := &mockAdapter{}
	// A short quiet window so that, absent the timedOut check, the exit
	// event below would race straight through to completed well before
	// any external fallback kill could run.
	sess := startTestSession(t, Options{QuietMs: 5}, adapter)

	sess.MarkTimedOut()
	adapter.exit(0, "terminated")

	select {
	case <-sess.Done():
	case <-time.After(time.Second):
		t.Fatal("session did not reach a terminal state")
	}

	snap := sess.Status()
	if snap.Status != StatusError {
		t.Fatalf("Status = %v, want %v (timed-out exit must not complete)", snap.Status, StatusError)
	}
	if snap.ErrorReason != "Command timed out" {
		t.Fatalf("ErrorReason = %q, want %q", snap.ErrorReason, "Command timed out")
	}
}

func TestSessionSpinnerFramesDoNotArmQuietTimerEarly(t *testing.T) {
	adapter := &mockAdapter{}
	sess := startTestSession(t, Options{QuietMs: 5_000}, adapter)

	// Repaint the same spinner line repeatedly; these must not be treated
	// as a prompt reappearance.
	adapter.emit([]byte("Building... |\n"))
	adapter.emit([]byte("Building... /\n"))
	adapter.emit([]byte("Building... -\n"))

	select {
	case <-sess.Done():
		t.Fatal("session completed early from spinner frames")
	case <-time.After(50 * time.Millisecond):
	}

	snap := sess.Status()
	if snap.Status != StatusRunning {
		t.Fatalf("Status = %v, want %v", snap.Status, StatusRunning)
	}
}
