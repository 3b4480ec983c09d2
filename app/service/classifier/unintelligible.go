package classifier

import (
	"strings"
	"unicode"

	"govassist/app/service/lexicon"
)

type Reason string

const (
	ReasonEmpty      Reason = "empty"
	ReasonGibberish  Reason = "gibberish"
	ReasonRepetition Reason = "repetition"
)

const (
	minAlphanumeric  = 2
	minRepeatedWord  = 4
	minRepeatedRunes = 3
	minMashLength    = 4
	maxConsonantRun  = 6
)

// DetectUnintelligible reports input that cannot carry a request: too short, keyboard
// mash, or one word or letter repeated over and over.
func DetectUnintelligible(u lexicon.Utterance) (Reason, bool) {
	alnum := []rune(strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, u.Text()))

	if len(alnum) < minAlphanumeric {
		return ReasonEmpty, true
	}

	if len(alnum) >= minRepeatedRunes && allSame(alnum) {
		return ReasonRepetition, true
	}

	tokens := u.Tokens()

	run := 1
	for i := 1; i < len(tokens); i++ {
		if tokens[i] == tokens[i-1] {
			run++
			if run >= minRepeatedWord {
				return ReasonRepetition, true
			}
		} else {
			run = 1
		}
	}

	var words, mashed int
	for _, token := range tokens {
		if len(token) < minMashLength || !isAlpha(token) {
			continue
		}

		words++
		if isMash(token) {
			mashed++
		}
	}

	if mashed > 0 && mashed*2 >= words {
		return ReasonGibberish, true
	}

	return "", false
}

func allSame(runes []rune) bool {
	for _, r := range runes[1:] {
		if r != runes[0] {
			return false
		}
	}

	return true
}

func isAlpha(token string) bool {
	for _, r := range token {
		if !unicode.IsLetter(r) {
			return false
		}
	}

	return true
}

// isMash flags tokens with no vowel at all or with an unpronounceable consonant run.
func isMash(token string) bool {
	var vowels, run, longest int

	for _, r := range token {
		if strings.ContainsRune("aeiouy", r) {
			vowels++
			run = 0
			continue
		}

		run++
		longest = max(longest, run)
	}

	return vowels == 0 || longest >= maxConsonantRun
}
