// Package session implements the per-command state machine: the core
// subsystem that ingests a raw byte stream from a process adapter,
// applies heuristics (prompt detection, quiet window, finish phrases,
// spinner suppression, idle timers) to classify liveness, enforces
// bounded memory under unbounded output, and exposes write/signal
// operations to callers.
package session

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/vladnoskv/mcp-terminal-awareness/internal/ansifilter"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/completionsink"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/finishphrase"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/logging"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/procadapter"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/promptdetect"
	"github.com/vladnoskv/mcp-terminal-awareness/internal/rpcerrors"
)

// Status is one of the states in the spec.md §4.5 state machine.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusRunning        Status = "running"
	StatusWaiting        Status = "waiting"
	StatusPossiblyStuck  Status = "possibly-stuck"
	StatusCompleted      Status = "completed"
	StatusError          Status = "error"
)

// Defaults per spec.md §4.6/§6.
const (
	DefaultQuietMs         = 300
	DefaultWaitingMs       = 10_000
	DefaultStuckMs         = 45_000
	DefaultMaxBufferBytes  = 2_000_000
	DefaultTimeoutMs       = 30_000
)

// ProgressEvent is emitted on waiting/stuck transitions and surfaced as
// the RPC layer's notifications/progress.
type ProgressEvent struct {
	Tool          string
	Message       string
	Indeterminate bool
}

// Options configures a new Session.
type Options struct {
	ID             string
	Command        string
	Cwd            string
	Shell          string
	Env            []string
	UsePTY         bool
	QuietMs        int
	WaitingMs      int
	StuckMs        int
	TimeoutMs      int
	MaxBufferBytes int64

	Logger     *logging.Logger
	Sink       completionsink.Sink
	OnProgress func(ProgressEvent)
}

// Session is the per-command entity described by spec.md §3.
//
// Concurrency model (spec.md §5): onChunk, onExit, quiet-timer fires,
// idle-timer fires, and tool-surface reads/writes on this session are
// all serialized through mu, so they never interleave.
type Session struct {
	id string

	logger     *logging.Logger
	sink       completionsink.Sink
	onProgress func(ProgressEvent)

	command string
	cwd     string
	shell   string

	mu             sync.Mutex
	status         Status
	output         *outputBuffer
	lastByteAt     time.Time
	lastLine       string
	promptPattern  *regexp.Regexp
	quietTimer     *time.Timer
	idleTimer      *time.Timer
	exitCode       *int
	exitSignal     string
	errorReason    string
	adapter        procadapter.Adapter
	maxBufferBytes int64

	quietMs   time.Duration
	waitingMs time.Duration
	stuckMs   time.Duration

	startedAt time.Time
	endedAt   time.Time
	timedOut  bool
	done      chan struct{}
	doneOnce  sync.Once

	vt *vtState
}

// New creates a session in the idle state. It does not spawn the
// adapter; call Start for that.
func New(opts Options) *Session {
	quietMs := opts.QuietMs
	if quietMs <= 0 {
		quietMs = DefaultQuietMs
	}
	waitingMs := opts.WaitingMs
	if waitingMs <= 0 {
		waitingMs = DefaultWaitingMs
	}
	stuckMs := opts.StuckMs
	if stuckMs <= 0 {
		stuckMs = DefaultStuckMs
	}
	maxBufferBytes := opts.MaxBufferBytes
	if maxBufferBytes <= 0 {
		maxBufferBytes = DefaultMaxBufferBytes
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	sink := opts.Sink
	if sink == nil {
		sink = completionsink.NoOp{}
	}

	return &Session{
		id:             opts.ID,
		logger:         log.WithSession(opts.ID),
		sink:           sink,
		onProgress:     opts.OnProgress,
		command:        opts.Command,
		cwd:            opts.Cwd,
		shell:          opts.Shell,
		status:         StatusIdle,
		output:         newOutputBuffer(maxBufferBytes),
		maxBufferBytes: maxBufferBytes,
		quietMs:        time.Duration(quietMs) * time.Millisecond,
		waitingMs:      time.Duration(waitingMs) * time.Millisecond,
		stuckMs:        time.Duration(stuckMs) * time.Millisecond,
		done:           make(chan struct{}),
	}
}

// ID returns the session's identifier.
func (s *Session) ID() string { return s.id }

// Start spawns the adapter and transitions the session to running. On
// spawn failure the session transitions straight to error and the error
// is returned so run() can surface it without throwing.
func (s *Session) Start(spawn func() (procadapter.Adapter, error)) error {
	s.mu.Lock()
	s.startedAt = time.Now()
	s.lastByteAt = s.startedAt
	s.mu.Unlock()

	adapter, err := spawn()
	if err != nil {
		s.mu.Lock()
		s.status = StatusError
		s.errorReason = err.Error()
		s.endedAt = time.Now()
		s.mu.Unlock()
		s.closeDone()
		return err
	}

	s.mu.Lock()
	s.adapter = adapter
	s.status = StatusRunning
	s.mu.Unlock()

	adapter.OnData(s.onChunk)
	adapter.OnExit(s.onExit)
	adapter.Start()
	return nil
}

// Done returns a channel closed once the session reaches a terminal
// state (completed or error).
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}

// onChunk implements spec.md §4.5's onChunk semantics.
func (s *Session) onChunk(chunk []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.vt != nil {
		s.vt.write(chunk)
	}

	for _, line := range splitLines(chunk) {
		stripped := ansifilter.Strip(line)

		if ansifilter.IsSpinnerFrame(s.lastLine, stripped) {
			continue
		}
		s.lastLine = stripped

		if s.promptPattern == nil {
			if p := promptdetect.Detect(stripped); p != nil {
				s.promptPattern = p
			}
		}
		if s.promptPattern != nil && s.promptPattern.MatchString(stripped) {
			s.armQuietTimerLocked()
		}

		_ = finishphrase.LooksFinished(stripped) // advisory only, no state effect
	}

	s.output.append(OutputChunk{Data: chunk, Timestamp: time.Now()})
	s.lastByteAt = time.Now()
}

// onExit implements spec.md §4.5's onExit semantics: record exit info and
// arm the quiet-complete timer to absorb any trailing stdout bytes.
//
// If the exit follows a timeout-kill (MarkTimedOut was called before the
// SIGTERM that produced this exit), the quiet-complete path is skipped
// entirely: the session goes straight to error with reason "Command timed
// out", per spec.md §4.5's failure semantics. Without this check, a
// well-behaved child that dies immediately from SIGTERM would instead
// complete through the normal 300ms quiet window before the timeout
// handler's own fallback kill ever runs.
func (s *Session) onExit(exitCode int, exitSignal string) {
	s.mu.Lock()
	code := exitCode
	s.exitCode = &code
	s.exitSignal = exitSignal
	timedOut := s.timedOut
	if !timedOut {
		s.armQuietTimerLocked()
	}
	s.mu.Unlock()

	if timedOut {
		s.Fail("Command timed out")
	}
}

// MarkTimedOut records that the session is being killed because timeoutMs
// elapsed, so the exit event this produces routes to the error transition
// instead of the normal quiet-complete path. Call before issuing the
// SIGTERM.
func (s *Session) MarkTimedOut() {
	s.mu.Lock()
	s.timedOut = true
	s.mu.Unlock()
}

// armQuietTimerLocked arms or rearms the one-shot quiet-complete timer.
// Caller must hold s.mu.
func (s *Session) armQuietTimerLocked() {
	if s.quietTimer != nil {
		s.quietTimer.Stop()
	}
	s.quietTimer = time.AfterFunc(s.quietMs, s.fireQuietComplete)
}

// fireQuietComplete is the quiet timer callback: if the session is not
// already terminal, complete it.
func (s *Session) fireQuietComplete() {
	s.mu.Lock()
	if s.status == StatusCompleted || s.status == StatusError {
		s.mu.Unlock()
		return
	}
	s.status = StatusCompleted
	s.endedAt = time.Now()
	s.stopIdleTimerLocked()
	adapter := s.adapter
	s.adapter = nil
	rec := s.completionRecordLocked()
	s.mu.Unlock()

	if adapter != nil {
		_ = adapter.Release()
	}
	s.logger.Debug("session completed")
	s.sink.Complete(rec)
	s.closeDone()
}

func (s *Session) completionRecordLocked() completionsink.Record {
	code := 0
	if s.exitCode != nil {
		code = *s.exitCode
	}
	return completionsink.Record{
		Command:    s.command,
		ExitCode:   code,
		DurationMs: s.endedAt.Sub(s.startedAt).Milliseconds(),
		Stdout:     s.output.joined(),
		Cwd:        s.cwd,
		Shell:      s.shell,
		StartedAt:  s.startedAt,
		EndedAt:    s.endedAt,
	}
}

// StartIdleTimers arms the repeating 1 Hz idle poll described in
// spec.md §4.5. It is a no-op once the session has reached a terminal
// state.
func (s *Session) StartIdleTimers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusCompleted || s.status == StatusError {
		return
	}
	s.scheduleIdleTickLocked()
}

func (s *Session) scheduleIdleTickLocked() {
	s.idleTimer = time.AfterFunc(time.Second, s.idleTick)
}

func (s *Session) stopIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

// idleTick implements the idle-timer semantics of spec.md §4.5. Note the
// deliberate "no demotion" rule: possibly-stuck only re-evaluates
// forward on each tick, it never steps back to running just because
// lastByteAt advanced — see SPEC_FULL.md §9 and the Open Question it
// resolves.
func (s *Session) idleTick() {
	s.mu.Lock()
	if s.status == StatusCompleted || s.status == StatusError {
		s.mu.Unlock()
		return
	}

	idle := time.Since(s.lastByteAt)
	prev := s.status

	if s.status == StatusRunning && idle > s.waitingMs {
		s.status = StatusWaiting
	}
	if (s.status == StatusRunning || s.status == StatusWaiting) && idle > s.stuckMs {
		s.status = StatusPossiblyStuck
	}

	changed := s.status != prev
	newStatus := s.status
	waitingMs := s.waitingMs
	stuckMs := s.stuckMs
	s.scheduleIdleTickLocked()
	s.mu.Unlock()

	if changed && s.onProgress != nil {
		switch newStatus {
		case StatusWaiting:
			s.onProgress(ProgressEvent{Tool: "terminal.run", Indeterminate: true,
				Message: fmt.Sprintf("no output for over %s, waiting for input", waitingMs)})
		case StatusPossiblyStuck:
			s.onProgress(ProgressEvent{Tool: "terminal.run", Indeterminate: true,
				Message: fmt.Sprintf("no output for over %s, command may be stuck", stuckMs)})
		}
	}
}

// Fail transitions the session straight to error, e.g. after a
// timeout-kill. reason is stored as errorReason.
func (s *Session) Fail(reason string) {
	s.mu.Lock()
	if s.status == StatusCompleted || s.status == StatusError {
		s.mu.Unlock()
		return
	}
	s.status = StatusError
	s.errorReason = reason
	s.endedAt = time.Now()
	s.stopIdleTimerLocked()
	if s.quietTimer != nil {
		s.quietTimer.Stop()
	}
	adapter := s.adapter
	s.adapter = nil
	rec := s.completionRecordLocked()
	s.mu.Unlock()

	if adapter != nil {
		_ = adapter.Release()
	}
	s.sink.Complete(rec)
	s.closeDone()
}

// Write passes data through to the adapter verbatim. Returns
// procadapter/rpcerrors-compatible errors via the caller's own sentinel
// checks (see internal/rpcerrors.ErrSessionTerminal).
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	adapter := s.adapter
	terminal := s.status == StatusCompleted || s.status == StatusError
	s.mu.Unlock()

	if terminal || adapter == nil {
		return rpcerrors.ErrSessionTerminal
	}
	_, err := adapter.Write(data)
	return err
}

// Signal sends one of SIGINT, SIGTERM, KILL, or the synthetic CTRL_C
// (which writes 0x03 instead of signaling) per spec.md §4.6.
func (s *Session) Signal(signal string) error {
	s.mu.Lock()
	adapter := s.adapter
	terminal := s.status == StatusCompleted || s.status == StatusError
	s.mu.Unlock()

	if terminal || adapter == nil {
		return rpcerrors.ErrSessionTerminal
	}
	if signal == "" {
		signal = "SIGINT"
	}
	if signal == "CTRL_C" {
		_, err := adapter.Write([]byte{0x03})
		return err
	}
	return adapter.Kill(signal)
}

// Snapshot is a consistent point-in-time view of a session, used by
// status/list/attach.
type Snapshot struct {
	ID           string
	Status       Status
	LastOutputAt time.Time
	ExitCode     *int
	ExitSignal   string
	ErrorReason  string
	TotalBytes   int64
	TUIHint      string
}

// Status returns a consistent snapshot of the session's bookkeeping
// fields (spec.md §4.6 status()).
func (s *Session) Status() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		Status:       s.status,
		LastOutputAt: s.lastByteAt,
		ExitCode:     s.exitCode,
		ExitSignal:   s.exitSignal,
		ErrorReason:  s.errorReason,
		TotalBytes:   s.output.totalBytes(),
	}
	if s.vt != nil {
		snap.TUIHint = s.vt.hint()
	}
	return snap
}

// Tail returns the last n bytes of the joined output buffer.
func (s *Session) Tail(n int) string {
	return s.output.tail(n)
}

// Joined returns the full joined output buffer.
func (s *Session) Joined() string {
	return s.output.joined()
}

// EnableVT attaches the optional vt10x-backed TUI state enrichment
// described in SPEC_FULL.md §4.4. Advisory only; never used for state
// transitions.
func (s *Session) EnableVT(cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vt = newVTState(cols, rows)
}

func splitLines(chunk []byte) []string {
	normalized := strings.ReplaceAll(string(chunk), "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	return strings.Split(normalized, "\n")
}
