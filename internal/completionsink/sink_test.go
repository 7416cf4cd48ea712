package completionsink

import "testing"

func TestNoOpDiscardsRecord(t *testing.T) {
	// NoOp must not panic regardless of what it is given.
	NoOp{}.Complete(Record{Command: "echo hi", ExitCode: 1})
}

func TestLoggingInvokesCallback(t *testing.T) {
	var got Record
	called := false
	sink := Logging{Log: func(rec Record) {
		called = true
		got = rec
	}}

	sink.Complete(Record{Command: "ls", ExitCode: 0})

	if !called {
		t.Fatal("Logging.Complete did not invoke Log")
	}
	if got.Command != "ls" {
		t.Fatalf("Command = %q, want %q", got.Command, "ls")
	}
}

func TestLoggingWithNilLogDoesNotPanic(t *testing.T) {
	Logging{}.Complete(Record{Command: "ls"})
}
