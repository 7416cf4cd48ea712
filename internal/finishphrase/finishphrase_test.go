package finishphrase

import "testing"

func TestLooksFinishedRecognizesKnownPhrases(t *testing.T) {
	cases := []string{
		"Build succeeded",
		"added 42 packages in 3s",
		"All tests passed",
		"✔ done",
		"Done in 1.2s",
		"Server listening on http://localhost:3000",
	}
	for _, line := range cases {
		if !LooksFinished(line) {
			t.Errorf("LooksFinished(%q) = false, want true", line)
		}
	}
}

func TestLooksFinishedRejectsUnrelatedOutput(t *testing.T) {
	if LooksFinished("installing dependencies, please wait") {
		t.Fatal("LooksFinished() = true, want false")
	}
}
