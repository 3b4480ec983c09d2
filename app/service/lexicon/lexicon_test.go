package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDefault(t *testing.T) *Library {
	t.Helper()

	lib, err := Default()
	require.NoError(t, err)

	return lib
}

func TestDefaultLibrary(t *testing.T) {
	lib := mustDefault(t)

	require.NotEmpty(t, lib.Intents)
	for _, intent := range lib.Intents {
		found, ok := lib.Intent(intent.Name)
		require.True(t, ok, intent.Name)
		assert.Same(t, intent, found)
	}

	crime, ok := lib.Intent("reportCrime")
	require.True(t, ok)
	require.True(t, crime.HasFollowUp())
	assert.Equal(t, "theft_minor", crime.FollowUp.Options[0].Value)

	_, ok = lib.Intent("doesNotExist")
	assert.False(t, ok)
}

func TestNewUtterance(t *testing.T) {
	u := NewUtterance("  I’m   LOOKING\tfor the Driver’s  License ")

	assert.Equal(t, "  I’m   LOOKING\tfor the Driver’s  License ", u.Raw())
	assert.Equal(t, "i'm looking for the driver's license", u.Text())
	assert.Equal(t, []string{"im", "looking", "for", "the", "drivers", "license"}, u.Tokens())
	assert.Equal(t, []string{"im", "look", "for", "the", "driver", "license"}, u.Stems())
	assert.False(t, u.IsEmpty())
	assert.True(t, NewUtterance(" \n\t ").IsEmpty())
}

func TestUtteranceTokensAreCopies(t *testing.T) {
	u := NewUtterance("pay my bill")

	tokens := u.Tokens()
	tokens[0] = "changed"

	assert.Equal(t, "pay", u.Tokens()[0])
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"taxes":      "tax",
		"licenses":   "license",
		"renewing":   "renew",
		"renewed":    "renew",
		"stopped":    "stop",
		"billed":     "bill",
		"penalties":  "penalty",
		"business":   "business",
		"status":     "status",
		"permits":    "permit",
		"stolen":     "stolen",
		"parking":    "park",
		"bus":        "bus",
		"moving":     "mov",
		"moved":      "mov",
		"addresses":  "address",
		"collection": "collection",
	}

	for word, want := range tests {
		assert.Equal(t, want, Stem(word), word)
	}
}

func TestWithinEditDistance(t *testing.T) {
	assert.True(t, WithinEditDistance("permit", "permti", 2))
	assert.True(t, WithinEditDistance("license", "lisence", 2))
	assert.False(t, WithinEditDistance("license", "lisence", 1))
	assert.True(t, WithinEditDistance("garbage", "garbag", 1))
	assert.False(t, WithinEditDistance("tax", "taxation", 2))
	assert.True(t, WithinEditDistance("", "", 0))
	assert.True(t, WithinEditDistance("registration", "registraton", 2))

	assert.Equal(t, 0, TypoBudget(3))
	assert.Equal(t, 1, TypoBudget(5))
	assert.Equal(t, 2, TypoBudget(12))
}

func TestExtractEntities(t *testing.T) {
	lib := mustDefault(t)

	tests := []struct {
		text      string
		wantType  string
		wantValue string
	}{
		{"What's happening with case cv-2024-001234?", "caseNumber", "CV-2024-001234"},
		{"my tracking number is TRK12345678", "trackingNumber", "TRK12345678"},
		{"the plate is ABC-1234", "licensePlate", "ABC-1234"},
		{"our EIN is 12-3456789", "taxId", "12-3456789"},
		{"confirmation number ABC123456", "referenceNumber", "ABC123456"},
	}

	for _, tt := range tests {
		t.Run(tt.wantType, func(t *testing.T) {
			matches := lib.ExtractEntities(NewUtterance(tt.text))
			require.NotEmpty(t, matches)

			var found bool
			for _, match := range matches {
				if match.Type == tt.wantType {
					found = true
					assert.Equal(t, tt.wantValue, match.Value)
					assert.NotNil(t, match.Pattern)
				}
			}
			assert.True(t, found, "no %s in %v", tt.wantType, matches)
		})
	}

	assert.Empty(t, lib.ExtractEntities(NewUtterance("how do i pay my water bill")))
}

func TestExtractEntitiesDeduplicates(t *testing.T) {
	lib := mustDefault(t)

	matches := lib.ExtractEntities(NewUtterance("TRK12345678 and again TRK12345678, also TRK87654321"))

	var values []string
	for _, match := range matches {
		values = append(values, match.Value)
	}

	assert.Equal(t, []string{"TRK12345678", "TRK87654321"}, values)
}

func TestExtractTopics(t *testing.T) {
	lib := mustDefault(t)

	assert.Equal(t, []string{"taxes", "utilities"},
		lib.ExtractTopics(NewUtterance("my property tax and my water bill")))
	assert.Empty(t, lib.ExtractTopics(NewUtterance("good morning")))
}

func TestClassifySentiment(t *testing.T) {
	lib := mustDefault(t)

	tests := map[string]Sentiment{
		"thanks, that was helpful":           SentimentPositive,
		"this is ridiculous":                 SentimentFrustrated,
		"I already told you my address!!":    SentimentFrustrated,
		"i'm confused, the form is wrong":    SentimentNegative,
		"pay my bill":                        SentimentNeutral,
		"it still doesn't work after a week": SentimentFrustrated,
	}

	for text, want := range tests {
		assert.Equal(t, want, lib.ClassifySentiment(NewUtterance(text)), text)
	}

	assert.True(t, SentimentFrustrated.IsNegative())
	assert.True(t, SentimentNegative.IsNegative())
	assert.False(t, SentimentNeutral.IsNegative())
}

func TestExtractGoals(t *testing.T) {
	lib := mustDefault(t)

	assert.Equal(t, []string{"report that my bike was stolen"},
		lib.ExtractGoals(NewUtterance("I need to report that my bike was stolen")))
	assert.Equal(t, []string{"renew my license"},
		lib.ExtractGoals(NewUtterance("How do I renew my license? It expired.")))
	assert.Empty(t, lib.ExtractGoals(NewUtterance("trash day")))
}

func TestEmergencyTrigger(t *testing.T) {
	lib := mustDefault(t)

	positive := []string{
		"there's a fire and someone's hurt, also how do I pay taxes",
		"My neighbor's house is on fire!",
		"someone is not breathing",
		"I smell gas in the basement",
		"this is an emergency",
	}
	for _, text := range positive {
		_, ok := lib.EmergencyTrigger(NewUtterance(text))
		assert.True(t, ok, text)
	}

	negative := []string{
		"a fire hydrant is leaking on my street",
		"how do I become a firefighter",
		"pay my property taxes",
	}
	for _, text := range negative {
		_, ok := lib.EmergencyTrigger(NewUtterance(text))
		assert.False(t, ok, text)
	}
}

func TestWeightsAndSynonyms(t *testing.T) {
	lib := mustDefault(t)

	assert.Greater(t, lib.Weight(Stem("permit")), lib.Weight(Stem("apply")))
	assert.Greater(t, lib.Weight(Stem("apply")), lib.Weight(Stem("the")))
	assert.InDelta(t, 1.0, lib.Weight("zebra"), 1e-9)

	assert.True(t, lib.Synonymous(Stem("garbage"), Stem("trash")))
	assert.True(t, lib.Synonymous(Stem("vehicle"), Stem("car")))
	assert.True(t, lib.Synonymous("tax", "tax"))
	assert.False(t, lib.Synonymous(Stem("garbage"), Stem("vote")))
}

func TestIntentMatchOrder(t *testing.T) {
	lib, err := Parse([]byte(`
intents:
  - name: first
    title: First
    patterns: ['\bfoo\b']
  - name: second
    title: Second
    patterns: ['\bfoo\b', '\bbar\b']
emergency: ['\bfire\b']
`))
	require.NoError(t, err)

	first, _ := lib.Intent("first")
	second, _ := lib.Intent("second")

	pattern, ok := first.Match("foo bar")
	assert.True(t, ok)
	assert.Equal(t, `\bfoo\b`, pattern)

	pattern, ok = second.Match("only bar")
	assert.True(t, ok)
	assert.Equal(t, `\bbar\b`, pattern)

	_, ok = first.Match("nothing")
	assert.False(t, ok)
}

func TestParseErrors(t *testing.T) {
	tests := map[string]string{
		"bad yaml": `intents: [`,
		"bad regex": `
intents:
  - name: a
    title: A
    patterns: ['(unclosed']
emergency: ['x']
`,
		"no patterns or examples": `
intents:
  - name: a
    title: A
emergency: ['x']
`,
		"duplicate intent": `
intents:
  - {name: a, title: A, examples: [x]}
  - {name: a, title: B, examples: [y]}
emergency: ['x']
`,
		"unknown topic": `
intents:
  - {name: a, title: A, topic: nope, examples: [x]}
emergency: ['x']
`,
		"duplicate option": `
intents:
  - name: a
    title: A
    examples: [x]
    follow_up:
      question: which?
      options:
        - {key: "1", label: one, value: one, answer: one}
        - {key: "1", label: two, value: two, answer: two}
emergency: ['x']
`,
		"missing emergency": `
intents:
  - {name: a, title: A, examples: [x]}
`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}
