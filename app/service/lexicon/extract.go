package lexicon

import (
	"strings"
)

type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNeutral    Sentiment = "neutral"
	SentimentNegative   Sentiment = "negative"
	SentimentFrustrated Sentiment = "frustrated"
)

func (s Sentiment) IsNegative() bool {
	return s == SentimentNegative || s == SentimentFrustrated
}

// EntityMatch is one entity value found in text together with the pattern that found it.
type EntityMatch struct {
	Type    string
	Value   string
	Pattern *EntityPattern
}

// ExtractEntities applies every entity pattern to the raw text. Values are upper-cased;
// the first capture group is used when the pattern has one.
func (l *Library) ExtractEntities(u Utterance) []EntityMatch {
	var result []EntityMatch
	seen := make(map[string]struct{})

	for _, entity := range l.Entities {
		for _, match := range entity.re.FindAllStringSubmatch(u.Raw(), -1) {
			value := match[0]
			if len(match) > 1 && match[1] != "" {
				value = match[1]
			}
			value = strings.ToUpper(strings.TrimSpace(value))

			key := entity.Type + "\x00" + value
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}

			result = append(result, EntityMatch{
				Type:    entity.Type,
				Value:   value,
				Pattern: entity,
			})
		}
	}

	return result
}

// ExtractTopics returns the names of all topics mentioned, in table order.
func (l *Library) ExtractTopics(u Utterance) []string {
	var result []string
	for _, topic := range l.Topics {
		if topic.re.MatchString(u.Text()) {
			result = append(result, topic.Name)
		}
	}

	return result
}

// ClassifySentiment reads a single utterance. Any frustration pattern wins; otherwise
// positive and negative word hits are compared.
func (l *Library) ClassifySentiment(u Utterance) Sentiment {
	for _, re := range l.frustrated {
		if re.MatchString(u.Text()) {
			return SentimentFrustrated
		}
	}

	positive, negative := 0, 0
	for _, stem := range u.Stems() {
		if _, ok := l.positive[stem]; ok {
			positive++
		}
		if _, ok := l.negative[stem]; ok {
			negative++
		}
	}

	switch {
	case negative > positive:
		return SentimentNegative
	case positive > negative:
		return SentimentPositive
	default:
		return SentimentNeutral
	}
}

// ExtractGoals returns goal phrases captured by the goal patterns, trimmed at the
// first clause boundary.
func (l *Library) ExtractGoals(u Utterance) []string {
	var result []string

	for _, re := range l.goals {
		for _, match := range re.FindAllStringSubmatch(u.Text(), -1) {
			if len(match) < 2 {
				continue
			}

			goal := match[1]
			if idx := strings.IndexAny(goal, ".,;!?"); idx >= 0 {
				goal = goal[:idx]
			}
			goal = strings.TrimSpace(goal)

			if goal != "" {
				result = append(result, goal)
			}
		}
	}

	return result
}

// EmergencyTrigger returns the text that matched an emergency pattern.
func (l *Library) EmergencyTrigger(u Utterance) (string, bool) {
	for _, re := range l.emergency {
		if found := re.FindString(u.Text()); found != "" {
			return found, true
		}
	}

	return "", false
}

// Weight returns the importance of a stemmed token.
func (l *Library) Weight(stem string) float64 {
	if weight, ok := l.weights[stem]; ok {
		return weight
	}

	return l.Importance.Default
}

// Synonymous reports whether two stems share a synonym group.
func (l *Library) Synonymous(a, b string) bool {
	if a == b {
		return true
	}

	for _, ga := range l.synonymGroups[a] {
		for _, gb := range l.synonymGroups[b] {
			if ga == gb {
				return true
			}
		}
	}

	return false
}
