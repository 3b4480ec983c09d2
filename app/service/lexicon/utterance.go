package lexicon

import (
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
)

// Utterance is one user input. The zero value is an empty utterance.
type Utterance struct {
	raw        string
	normalized string
	tokens     []string
}

func NewUtterance(raw string) Utterance {
	text := norm.NFKC.String(raw)
	text = quoteReplacer.Replace(text)
	text = strings.ToLower(text)
	text = strings.Join(strings.Fields(text), " ")

	return Utterance{
		raw:        raw,
		normalized: text,
		tokens:     Tokenize(text),
	}
}

func (u Utterance) Raw() string {
	return u.raw
}

// Text returns the lowercased, trimmed and whitespace-collapsed form.
func (u Utterance) Text() string {
	return u.normalized
}

func (u Utterance) Tokens() []string {
	return slices.Clone(u.tokens)
}

func (u Utterance) IsEmpty() bool {
	return u.normalized == ""
}

// Stems returns the stemmed tokens in order, duplicates included.
func (u Utterance) Stems() []string {
	result := make([]string, len(u.tokens))
	for i, token := range u.tokens {
		result[i] = Stem(token)
	}

	return result
}

// Tokenize splits text into lowercase word tokens. Apostrophes are dropped so that
// "driver's" and "drivers" produce the same token.
func Tokenize(text string) []string {
	var (
		result  []string
		builder strings.Builder
	)

	flush := func() {
		if builder.Len() > 0 {
			result = append(result, builder.String())
			builder.Reset()
		}
	}

	for _, r := range strings.ToLower(text) {
		switch {
		case r == '\'':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			builder.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return result
}
