package promptdetect

import "testing"

func TestDetectPosixPrompt(t *testing.T) {
	p := Detect("user@host:~/project$ ")
	if p == nil {
		t.Fatal("Detect() = nil, want posix pattern match")
	}
}

func TestDetectRootPrompt(t *testing.T) {
	p := Detect("root@host:/# ")
	if p == nil {
		t.Fatal("Detect() = nil, want posix pattern match")
	}
}

func TestDetectWindowsPrompt(t *testing.T) {
	p := Detect(`PS C:\Users\dev> `)
	if p == nil {
		t.Fatal("Detect() = nil, want windows pattern match")
	}
}

func TestDetectNoMatch(t *testing.T) {
	if p := Detect("installing dependencies..."); p != nil {
		t.Fatalf("Detect() = %v, want nil", p)
	}
}

func TestDetectRequiresTrailingSpace(t *testing.T) {
	if p := Detect("$"); p != nil {
		t.Fatalf("Detect() = %v, want nil (no trailing space)", p)
	}
}
