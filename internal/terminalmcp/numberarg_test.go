package terminalmcp

import "testing"

func TestNumberArgReturnsDefaultWhenAbsent(t *testing.T) {
	got := numberArg(map[string]any{}, "timeoutMs", 1234)
	if got != 1234 {
		t.Fatalf("numberArg() = %v, want 1234", got)
	}
}

func TestNumberArgAcceptsFloat64(t *testing.T) {
	got := numberArg(map[string]any{"tail": float64(2000)}, "tail", 0)
	if got != 2000 {
		t.Fatalf("numberArg() = %v, want 2000", got)
	}
}

func TestNumberArgRejectsWrongType(t *testing.T) {
	got := numberArg(map[string]any{"tail": "not-a-number"}, "tail", 42)
	if got != 42 {
		t.Fatalf("numberArg() = %v, want default 42", got)
	}
}
