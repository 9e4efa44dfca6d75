package transcription

import "testing"

func TestCorrectWordsNoOpOnEmptyWordList(t *testing.T) {
	text := "The quick brown fox jumps."
	if got := CorrectWords(text, nil, 0.5); got != text {
		t.Fatalf("expected no-op on empty word list, got %q", got)
	}
}

func TestCorrectWordsFixesCloseMisspelling(t *testing.T) {
	got := CorrectWords("please open kubernettes now", []string{"kubernetes"}, 0.5)
	want := "please open kubernetes now"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCorrectWordsPreservesCaseAndPunctuation(t *testing.T) {
	got := CorrectWords("(Kubernettes)", []string{"kubernetes"}, 0.5)
	want := "(Kubernetes)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	got = CorrectWords("KUBERNETTES!", []string{"kubernetes"}, 0.5)
	want = "KUBERNETES!"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestCorrectWordsSkipsFarMatches(t *testing.T) {
	text := "an entirely unrelated sentence"
	got := CorrectWords(text, []string{"kubernetes"}, 0.2)
	if got != text {
		t.Fatalf("expected no correction for unrelated text, got %q", got)
	}
}

func TestCorrectWordsIdempotentAtFixpoint(t *testing.T) {
	words := []string{"kubernetes"}
	threshold := 0.3
	once := CorrectWords("kubernettes", words, threshold)
	twice := CorrectWords(once, words, threshold)
	if once != twice {
		t.Fatalf("expected idempotence at fixpoint, got %q then %q", once, twice)
	}
}
