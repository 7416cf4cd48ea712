package procadapter

import "testing"

func TestContainsDSRQuery(t *testing.T) {
	if !containsDSRQuery([]byte("\x1b[6n")) {
		t.Fatal("containsDSRQuery = false, want true")
	}
	if containsDSRQuery([]byte("no query here")) {
		t.Fatal("containsDSRQuery = true, want false")
	}
}

func TestContainsDA1Query(t *testing.T) {
	if !containsDA1Query([]byte("\x1b[c")) {
		t.Fatal("containsDA1Query(ESC[c) = false, want true")
	}
	if !containsDA1Query([]byte("\x1b[0c")) {
		t.Fatal("containsDA1Query(ESC[0c) = false, want true")
	}
	if containsDA1Query([]byte("plain text")) {
		t.Fatal("containsDA1Query = true, want false")
	}
}
