package lexicon

import "strings"

// Stem strips common English inflections. It is deliberately small: both sides of
// every comparison go through it, so consistency matters more than linguistic accuracy.
func Stem(word string) string {
	n := len(word)

	switch {
	case n > 4 && strings.HasSuffix(word, "ies"):
		return word[:n-3] + "y"
	case n > 5 && strings.HasSuffix(word, "ing"):
		return trimDoubled(word[:n-3])
	case n > 4 && strings.HasSuffix(word, "ed"):
		return trimDoubled(word[:n-2])
	case n > 4 && hasAnySuffix(word, "ches", "shes", "sses", "xes", "zes"):
		return word[:n-2]
	case n > 3 && strings.HasSuffix(word, "s") && !hasAnySuffix(word, "ss", "us", "is"):
		return word[:n-1]
	}

	return word
}

func trimDoubled(word string) string {
	n := len(word)
	if n < 3 || word[n-1] != word[n-2] {
		return word
	}

	switch word[n-1] {
	case 'l', 's', 'z':
		return word
	}

	return word[:n-1]
}

func hasAnySuffix(word string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(word, suffix) {
			return true
		}
	}

	return false
}

// TypoBudget is the number of edits tolerated between two tokens of the given length.
func TypoBudget(length int) int {
	switch {
	case length >= 8:
		return 2
	case length >= 4:
		return 1
	default:
		return 0
	}
}

// WithinEditDistance reports whether the Levenshtein distance between a and b is at
// most limit. It stops as soon as every cell of a row exceeds the limit.
func WithinEditDistance(a, b string, limit int) bool {
	ra, rb := []rune(a), []rune(b)
	if abs(len(ra)-len(rb)) > limit {
		return false
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		rowMin := curr[0]

		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}

			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
			rowMin = min(rowMin, curr[j])
		}

		if rowMin > limit {
			return false
		}

		prev, curr = curr, prev
	}

	return prev[len(rb)] <= limit
}

func abs(v int) int {
	if v < 0 {
		return -v
	}

	return v
}
