package classifier

import (
	"testing"

	"govassist/app/config"
	"govassist/app/service/lexicon"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLexicon = `
intents:
  - name: payWater
    title: Pay water bill
    topic: utilities
    examples: [pay my water bill, water bill payment]
  - name: trash
    title: Trash pickup
    topic: sanitation
    examples: [when is trash pickup, garbage collection day]
  - name: permitStatus
    title: Permit status
    patterns: ['\bpermit status\b']
  - name: renewA
    title: Renew A
    examples: [renew my permit]
  - name: renewB
    title: Renew B
    examples: [renew my permit]
topics:
  - {name: utilities, pattern: '\bwater\b'}
  - {name: sanitation, pattern: '\b(trash|garbage)\b'}
synonyms:
  - [garbage, trash]
emergency: ['\bfire\b']
`

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()

	lib, err := lexicon.Parse([]byte(testLexicon))
	require.NoError(t, err)

	return NewClassifier(config.Default().Classifier, lib)
}

func newDefaultClassifier(t *testing.T) *Classifier {
	t.Helper()

	lib, err := lexicon.Default()
	require.NoError(t, err)

	return NewClassifier(config.Default().Classifier, lib)
}

func TestClassifySemantic(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(lexicon.NewUtterance("Pay my water bill"), Context{})
	require.NotNil(t, res.Intent)
	assert.Equal(t, "payWater", res.IntentName())
	assert.False(t, res.RegexConfirmed)
	assert.Equal(t, "pay my water bill", res.MatchedExample)
	assert.Greater(t, res.Confidence, 0.9)
	assert.False(t, res.Ambiguous)
	assert.Empty(t, res.Alternatives)
}

func TestClassifySynonym(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(lexicon.NewUtterance("garbage pickup"), Context{})
	require.NotNil(t, res.Intent)
	assert.Equal(t, "trash", res.IntentName())
	assert.GreaterOrEqual(t, res.Confidence, config.Default().Classifier.MinConfidence)
	assert.Less(t, res.Confidence, 0.9)
}

func TestClassifyContextBonus(t *testing.T) {
	c := newTestClassifier(t)
	u := lexicon.NewUtterance("garbage pickup")

	plain := c.Classify(u, Context{})
	boosted := c.Classify(u, Context{LastIntent: "trash", ActiveTopics: []string{"sanitation"}})

	assert.InDelta(t, plain.Confidence+2*config.Default().Classifier.ContextBonus, boosted.Confidence, 1e-9)
}

func TestClassifyAmbiguous(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(lexicon.NewUtterance("renew my permit"), Context{})
	require.NotNil(t, res.Intent)
	assert.Equal(t, "renewA", res.IntentName())
	assert.True(t, res.Ambiguous)
	assert.True(t, res.NeedsClarification)
	require.NotEmpty(t, res.Alternatives)
	assert.Equal(t, "renewB", res.Alternatives[0].Intent.Name)
}

func TestClassifyPatternWins(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(lexicon.NewUtterance("renew my permit status"), Context{})
	require.NotNil(t, res.Intent)
	assert.Equal(t, "permitStatus", res.IntentName())
	assert.True(t, res.RegexConfirmed)
	assert.Equal(t, `\bpermit status\b`, res.MatchedPattern)
	assert.InDelta(t, config.Default().Classifier.PatternConfidence, res.Confidence, 1e-9)

	// the semantic pass scores the renew intents higher, so the result is flagged
	// as ambiguous but still answered
	assert.True(t, res.Ambiguous)
	assert.False(t, res.NeedsClarification)
}

func TestClassifyNothing(t *testing.T) {
	c := newTestClassifier(t)

	res := c.Classify(lexicon.NewUtterance("zebra"), Context{})
	assert.Nil(t, res.Intent)
	assert.Empty(t, res.IntentName())
	assert.Zero(t, res.Confidence)
	assert.False(t, res.Ambiguous)

	res = c.Classify(lexicon.NewUtterance(""), Context{})
	assert.Nil(t, res.Intent)
}

func TestClassifyDefaultLibrary(t *testing.T) {
	c := newDefaultClassifier(t)

	tests := map[string]string{
		"I need to report that my bike was stolen": "reportCrime",
		"How do I pay my property taxes?":          "payPropertyTax",
		"I want to renew my driver's license":      "renewDriverLicense",
	}

	for text, want := range tests {
		res := c.Classify(lexicon.NewUtterance(text), Context{})
		require.NotNil(t, res.Intent, text)
		assert.Equal(t, want, res.IntentName(), text)
		assert.True(t, res.RegexConfirmed, text)
		assert.GreaterOrEqual(t, res.Confidence, 0.8, text)
		assert.LessOrEqual(t, res.Confidence, 1.0, text)
	}
}

func TestClassifyBounds(t *testing.T) {
	c := newDefaultClassifier(t)
	faker := gofakeit.New(42)

	for i := 0; i < 200; i++ {
		text := faker.Sentence(faker.Number(1, 20))
		res := c.Classify(lexicon.NewUtterance(text), Context{LastIntent: "greeting", ActiveTopics: []string{"taxes"}})

		assert.GreaterOrEqual(t, res.Confidence, 0.0, text)
		assert.LessOrEqual(t, res.Confidence, 1.0, text)
		assert.LessOrEqual(t, len(res.Alternatives), maxAlternatives, text)

		for j, alt := range res.Alternatives {
			assert.NotSame(t, res.Intent, alt.Intent, text)
			assert.LessOrEqual(t, alt.Confidence, 1.0, text)
			if j > 0 {
				assert.LessOrEqual(t, alt.Confidence, res.Alternatives[j-1].Confidence, text)
			}
		}
	}
}

func TestDetectUnintelligible(t *testing.T) {
	tests := []struct {
		text   string
		reason Reason
		ok     bool
	}{
		{"", ReasonEmpty, true},
		{"?", ReasonEmpty, true},
		{"a", ReasonEmpty, true},
		{"asdfghjkl", ReasonGibberish, true},
		{"qwrtzpsdfg", ReasonGibberish, true},
		{"zxcvbnmlkj", ReasonGibberish, true},
		{"aaaaaa", ReasonRepetition, true},
		{"help help help help", ReasonRepetition, true},
		{"hi", "", false},
		{"1", ReasonEmpty, true},
		{"pay my water bill", "", false},
		{"what are the strengths of the program", "", false},
		{"case CV-2024-001234", "", false},
		{"help help help", "", false},
	}

	for _, tt := range tests {
		reason, ok := DetectUnintelligible(lexicon.NewUtterance(tt.text))
		assert.Equal(t, tt.ok, ok, tt.text)
		assert.Equal(t, tt.reason, reason, tt.text)
	}
}
