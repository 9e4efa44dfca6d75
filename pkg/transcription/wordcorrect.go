package transcription

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// CorrectWords rewrites tokens of text that are a close phonetic/edit match
// to one of the user-supplied target words in words: each whitespace-separated
// token is corrected independently and the tokens are rejoined with single
// spaces, leading and trailing non-alphabetic
// characters are preserved, and the original token's case pattern is
// reapplied to the accepted candidate. words should already be lowercased by
// the caller's settings snapshot; CorrectWords lowercases them again
// defensively.
//
// CorrectWords is pure and deterministic given (text, words, threshold).
func CorrectWords(text string, words []string, threshold float64) string {
	if len(words) == 0 {
		return text
	}

	lowered := make([]string, len(words))
	for i, w := range words {
		lowered[i] = strings.ToLower(w)
	}

	tokens := strings.Fields(text)
	for i, tok := range tokens {
		tokens[i] = correctToken(tok, lowered, threshold)
	}
	return strings.Join(tokens, " ")
}

func correctToken(token string, words []string, threshold float64) string {
	start := strings.IndexFunc(token, unicode.IsLetter)
	if start == -1 {
		return token
	}
	end := strings.LastIndexFunc(token, unicode.IsLetter)
	_, size := utf8.DecodeRuneInString(token[end:])
	end += size

	prefix := token[:start]
	core := token[start:end]
	suffix := token[end:]

	if utf8.RuneCountInString(core) > 50 {
		return token
	}
	lowerCore := strings.ToLower(core)

	best := ""
	bestScore := threshold
	found := false
	for _, w := range words {
		if abs(len(lowerCore)-len(w)) > 5 {
			continue
		}
		dist := matchr.Levenshtein(lowerCore, w)
		maxLen := len(lowerCore)
		if len(w) > maxLen {
			maxLen = len(w)
		}
		if maxLen == 0 {
			continue
		}
		l := float64(dist) / float64(maxLen)

		score := l
		if matchr.Soundex(lowerCore) == matchr.Soundex(w) {
			score = l * 0.3
		}

		if score < bestScore {
			bestScore = score
			best = w
			found = true
		}
	}

	if !found {
		return token
	}
	return prefix + applyCase(core, best) + suffix
}

// applyCase reapplies original's case pattern to candidate: ALL-CAPS stays
// all caps, a leading capital on the first alphabetic rune is preserved,
// otherwise candidate is used as-is (already lowercase).
func applyCase(original, candidate string) string {
	if original == strings.ToUpper(original) {
		return strings.ToUpper(candidate)
	}
	runes := []rune(original)
	if len(runes) > 0 && unicode.IsUpper(runes[0]) {
		c := []rune(candidate)
		if len(c) > 0 {
			c[0] = unicode.ToUpper(c[0])
		}
		return string(c)
	}
	return candidate
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
