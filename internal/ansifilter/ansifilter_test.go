package ansifilter

import "testing"

func TestStripRemovesSGRSequences(t *testing.T) {
	in := "\x1b[32mok\x1b[0m"
	got := Strip(in)
	if got != "ok" {
		t.Fatalf("Strip(%q) = %q, want %q", in, got, "ok")
	}
}

func TestStripLeavesPlainTextAlone(t *testing.T) {
	in := "no escapes here"
	if got := Strip(in); got != in {
		t.Fatalf("Strip(%q) = %q, want unchanged", in, got)
	}
}

func TestStripOnlyRemovesSGR(t *testing.T) {
	in := "\x1b[6nplain"
	got := Strip(in)
	if got != in {
		t.Fatalf("Strip(%q) = %q, want unchanged (not an SGR sequence)", in, got)
	}
}

func TestIsSpinnerFrameMatchesTrailingGlyph(t *testing.T) {
	prev := "Building... |"
	next := "Building... /"
	if !IsSpinnerFrame(prev, next) {
		t.Fatalf("IsSpinnerFrame(%q, %q) = false, want true", prev, next)
	}
}

func TestIsSpinnerFrameRejectsDifferentPrefix(t *testing.T) {
	prev := "Building... |"
	next := "Finished... /"
	if IsSpinnerFrame(prev, next) {
		t.Fatalf("IsSpinnerFrame(%q, %q) = true, want false", prev, next)
	}
}

func TestIsSpinnerFrameRejectsNonSpinnerTrailer(t *testing.T) {
	prev := "Building... |"
	next := "Building... x"
	if IsSpinnerFrame(prev, next) {
		t.Fatalf("IsSpinnerFrame(%q, %q) = true, want false", prev, next)
	}
}

func TestIsSpinnerFrameRejectsDifferentLength(t *testing.T) {
	prev := "short |"
	next := "much longer line /"
	if IsSpinnerFrame(prev, next) {
		t.Fatalf("IsSpinnerFrame(%q, %q) = true, want false", prev, next)
	}
}
