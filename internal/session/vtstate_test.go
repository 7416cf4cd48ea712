package session

import "testing"

func TestVTStateHintReflectsLastWrittenLine(t *testing.T) {
	vt := newVTState(40, 5)
	vt.write([]byte("hello from the virtual terminal\r\n"))

	hint := vt.hint()
	if hint == "" {
		t.Fatal("hint() = \"\", want non-empty after writing a line")
	}
}

func TestVTStateHintEmptyWhenNothingWritten(t *testing.T) {
	vt := newVTState(40, 5)
	if got := vt.hint(); got != "" {
		t.Fatalf("hint() = %q, want empty for a blank screen", got)
	}
}
