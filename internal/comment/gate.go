package comment

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Skip reasons reported by EvaluateAdmission.
const (
	ReasonEmpty        = "empty"
	ReasonTooShort     = "too_short"
	ReasonLowWordCount = "low_word_count"
	ReasonLowVariance  = "low_variance"
)

const (
	minCompactLen      = 40
	minLatinNormLen    = 80
	minLatinCompactLen = 80
	minWordCount       = 15
	minDistinctRunes   = 5
)

// Admission is the gate verdict. Reason is set only when Admit is false.
type Admission struct {
	Admit  bool
	Reason string
}

// EvaluateAdmission decides whether diary text is substantial enough to spend
// a model call on. It is pure and cheap; the scheduler runs it before
// enqueuing and the runner runs it again against the current content before
// generating, so edits between the two points are caught.
//
// Short Japanese text is deliberately not penalized the way short
// space-delimited text is: ideographic scripts pack far more meaning per
// character, so the word-count rules only apply when no CJK characters are
// present.
func EvaluateAdmission(text string) Admission {
	normalized := collapseWhitespace(text)
	compact := stripWhitespace(text)

	if compact == "" {
		return Admission{Reason: ReasonEmpty}
	}
	if utf8.RuneCountInString(compact) < minCompactLen {
		return Admission{Reason: ReasonTooShort}
	}

	if !containsCJK(compact) {
		if utf8.RuneCountInString(normalized) < minLatinNormLen {
			return Admission{Reason: ReasonTooShort}
		}
		words := len(strings.Fields(normalized))
		if words < minWordCount && utf8.RuneCountInString(compact) < minLatinCompactLen {
			return Admission{Reason: ReasonLowWordCount}
		}
	}

	// Repeated-character spam ("ああああ…") passes every length check.
	if distinctRunes(compact) < minDistinctRunes {
		return Admission{Reason: ReasonLowVariance}
	}

	return Admission{Admit: true}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func stripWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if !unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// containsCJK reports whether s has at least one character in the Hiragana,
// Katakana, CJK-symbol, or CJK-unified-ideograph blocks.
func containsCJK(s string) bool {
	for _, r := range s {
		switch {
		case r >= 0x3040 && r <= 0x309F: // Hiragana
			return true
		case r >= 0x30A0 && r <= 0x30FF: // Katakana
			return true
		case r >= 0x3000 && r <= 0x303F: // CJK symbols and punctuation
			return true
		case r >= 0x4E00 && r <= 0x9FFF: // CJK unified ideographs
			return true
		}
	}
	return false
}

func distinctRunes(s string) int {
	seen := map[rune]struct{}{}
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return len(seen)
}
