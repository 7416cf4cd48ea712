// Package procadapter provides a uniform capability for spawning a shell
// command either as a raw child process or under a pseudo-terminal.
package procadapter

import "context"

// Adapter is the uniform contract both the plain and PTY variants satisfy.
type Adapter interface {
	// Write passes bytes through to the child verbatim; the caller is
	// responsible for inserting newlines to submit a line of input.
	Write(data []byte) (int, error)

	// Kill sends signal to the child. The PTY variant ignores the signal
	// name and sends the platform default regardless of what is passed.
	Kill(signal string) error

	// OnData registers the callback invoked with every chunk of merged
	// stdout/stderr (plain variant) or PTY output (PTY variant).
	OnData(cb func(chunk []byte))

	// OnExit registers the callback invoked exactly once when the child
	// process terminates.
	OnExit(cb func(exitCode int, exitSignal string))

	// Start begins delivering data/exit callbacks. Callers must register
	// OnData/OnExit before calling Start, so a fast-exiting child can never
	// have its output pumped or its exit observed before a callback is
	// wired to receive it.
	Start()

	// Release frees adapter resources (closes the PTY or pipes). Safe to
	// call more than once.
	Release() error
}

// Kind selects which adapter variant to spawn.
type Kind int

const (
	// KindPlain merges stdout/stderr into a single data callback.
	KindPlain Kind = iota
	// KindPTY allocates a pseudo-terminal at 120x30.
	KindPTY
)

// SpawnRequest describes a command to start.
type SpawnRequest struct {
	Kind    Kind
	Command string
	Cwd     string
	Shell   string
	Env     []string
}

// Spawn starts the requested adapter variant. When req.Kind is KindPTY and
// PTY initialization fails, the caller (see Select) falls back to plain
// rather than treating it as fatal.
func Spawn(ctx context.Context, req SpawnRequest) (Adapter, error) {
	if req.Kind == KindPTY {
		return spawnPTY(ctx, req)
	}
	return spawnPlain(ctx, req)
}

// Select spawns a PTY adapter when requested, logging and falling back to
// the plain adapter if PTY initialization fails. onPTYFallback, if non-nil,
// is invoked with the PTY error so the caller can log it.
func Select(ctx context.Context, req SpawnRequest, onPTYFallback func(err error)) (Adapter, error) {
	if req.Kind != KindPTY {
		return spawnPlain(ctx, req)
	}
	a, err := spawnPTY(ctx, req)
	if err == nil {
		return a, nil
	}
	if onPTYFallback != nil {
		onPTYFallback(err)
	}
	fallback := req
	fallback.Kind = KindPlain
	return spawnPlain(ctx, fallback)
}
