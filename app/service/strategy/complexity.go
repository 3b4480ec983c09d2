package strategy

import (
	"regexp"

	"govassist/app/service/lexicon"
)

type Level string

const (
	LevelSimple   Level = "SIMPLE"
	LevelModerate Level = "MODERATE"
	LevelComplex  Level = "COMPLEX"
	LevelCritical Level = "CRITICAL"
)

type Factor struct {
	Name   string `json:"name"`
	Points int    `json:"points"`
}

type Complexity struct {
	Score     int      `json:"score"`
	Level     Level    `json:"level"`
	Factors   []Factor `json:"factors"`
	Emergency bool     `json:"emergency"`
	Trigger   string   `json:"trigger,omitempty"`
}

// ComplexityContext carries the session signals that make a message harder to answer.
type ComplexityContext struct {
	Sentiment      lexicon.Sentiment
	TopicCount     int
	Clarifications int
}

var (
	conjunctionRe    = regexp.MustCompile(`\b(and also|and then|as well as|in addition|but also|also|plus|but)\b`)
	comparisonRe     = regexp.MustCompile(`\b(compare\w*|differences?|versus|vs|better|which (is|one)|explain\w*|why|how does|what happens)\b`)
	conditionalRe    = regexp.MustCompile(`\b(if|unless|in case|otherwise|depending on)\b`)
	recommendationRe = regexp.MustCompile(`\b(recommend\w*|suggest\w*|should i|advice|advise|best way|what would you)\b`)
	detailRe         = regexp.MustCompile(`\b(more details?|in detail|elaborate|step by step|walk me through|tell me more|more info\w*|explain further)\b`)
	processRe        = regexp.MustCompile(`\b(process|procedures?|steps?|requirements?|how long does|what do i need)\b`)
)

const (
	conjunctionPoints      = 10
	multiConjunctionPoints = 15
	comparisonPoints       = 15
	conditionalPoints      = 10
	recommendationPoints   = 15
	longPoints             = 10
	veryLongPoints         = 20
	topicPoints            = 10
	maxTopicPoints         = 20
	negativePoints         = 5
	frustratedPoints       = 10
	clarificationPoints    = 10
	detailPoints           = 15
	processPoints          = 10

	repeatedClarifications = 2
)

// AnalyzeComplexity scores how hard the message is to answer from rules alone.
// Emergency language forces CRITICAL whatever the score.
func (r *Router) AnalyzeComplexity(u lexicon.Utterance, ctx ComplexityContext) Complexity {
	text := u.Text()

	var factors []Factor
	add := func(name string, points int) {
		factors = append(factors, Factor{Name: name, Points: points})
	}

	switch n := len(conjunctionRe.FindAllString(text, -1)); {
	case n >= 2:
		add("conjunctions", multiConjunctionPoints)
	case n == 1:
		add("conjunction", conjunctionPoints)
	}

	if comparisonRe.MatchString(text) {
		add("comparison", comparisonPoints)
	}
	if conditionalRe.MatchString(text) {
		add("conditional", conditionalPoints)
	}
	if recommendationRe.MatchString(text) {
		add("recommendation", recommendationPoints)
	}

	switch length := len([]rune(text)); {
	case length > 2*r.cfg.LongMessage:
		add("very_long", veryLongPoints)
	case length > r.cfg.LongMessage:
		add("long", longPoints)
	}

	if ctx.TopicCount > 1 {
		add("multiple_topics", min(maxTopicPoints, topicPoints*(ctx.TopicCount-1)))
	}

	switch ctx.Sentiment {
	case lexicon.SentimentFrustrated:
		add("frustrated", frustratedPoints)
	case lexicon.SentimentNegative:
		add("negative", negativePoints)
	}

	if ctx.Clarifications >= repeatedClarifications {
		add("repeated_clarification", clarificationPoints)
	}
	if detailRe.MatchString(text) {
		add("more_detail", detailPoints)
	}
	if processRe.MatchString(text) {
		add("process", processPoints)
	}

	result := Complexity{Factors: factors}
	for _, factor := range factors {
		result.Score += factor.Points
	}

	switch {
	case result.Score >= r.cfg.ComplexScore:
		result.Level = LevelComplex
	case result.Score >= r.cfg.ModerateScore:
		result.Level = LevelModerate
	default:
		result.Level = LevelSimple
	}

	if trigger, ok := r.lib.EmergencyTrigger(u); ok {
		result.Level = LevelCritical
		result.Emergency = true
		result.Trigger = trigger
	}

	return result
}
