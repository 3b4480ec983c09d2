package classifier

import (
	"govassist/app/config"
	"govassist/app/service/lexicon"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

const (
	bigramShare       = 0.3
	unigramOnlyFactor = 0.85
	synonymCredit     = 0.8
	typoCredit        = 0.7
	synonymBonus      = 0.05
	maxSynonymBonus   = 0.1
	contentWeight     = 0.5
	maxAlternatives   = 3
)

// Context is the read-only slice of session state the classifier may use for scoring.
type Context struct {
	LastIntent   string
	ActiveTopics []string
}

type Candidate struct {
	Intent         *lexicon.Intent
	Confidence     float64
	MatchedExample string
}

type Result struct {
	// Intent is nil when nothing reached the minimum confidence.
	Intent         *lexicon.Intent
	Confidence     float64
	RegexConfirmed bool
	MatchedPattern string
	MatchedExample string
	Alternatives   []Candidate
	Ambiguous      bool
	// NeedsClarification asks the caller to present options instead of answering. It is
	// never set for a pattern-confirmed intent.
	NeedsClarification bool
}

func (r Result) IntentName() string {
	if r.Intent == nil {
		return ""
	}

	return r.Intent.Name
}

type Classifier struct {
	cfg   config.Classifier
	lib   *lexicon.Library
	index []indexedIntent
}

type indexedIntent struct {
	intent   *lexicon.Intent
	examples []phrase
}

type phrase struct {
	text    string
	stems   []string
	bigrams map[string]struct{}
}

func New(di *do.Injector) (*Classifier, error) {
	cfg := do.MustInvoke[*config.Config](di)
	lib := do.MustInvoke[*lexicon.Library](di)

	return NewClassifier(cfg.Classifier, lib), nil
}

func NewClassifier(cfg config.Classifier, lib *lexicon.Library) *Classifier {
	c := &Classifier{
		cfg: cfg,
		lib: lib,
	}

	for _, intent := range lib.Intents {
		entry := indexedIntent{intent: intent}
		for _, example := range intent.Examples {
			entry.examples = append(entry.examples, c.newPhrase(lexicon.NewUtterance(example)))
		}
		c.index = append(c.index, entry)
	}

	return c
}

// Classify ranks candidate intents for one utterance. It never mutates session state.
func (c *Classifier) Classify(u lexicon.Utterance, ctx Context) Result {
	candidates := c.semanticPass(u, ctx)
	patternIntent, pattern := c.patternPass(u)

	var result Result

	if patternIntent != nil {
		confidence := c.cfg.PatternConfidence
		var example string

		if idx := pie.FindFirstUsing(candidates, func(cand Candidate) bool {
			return cand.Intent == patternIntent
		}); idx >= 0 {
			example = candidates[idx].MatchedExample
			confidence = max(confidence, candidates[idx].Confidence)

			if top, ok := c.semanticTop(candidates); ok && top.Intent == patternIntent {
				confidence += c.cfg.AgreementBonus
			}
		}

		result = Result{
			Intent:         patternIntent,
			Confidence:     clamp01(confidence),
			RegexConfirmed: true,
			MatchedPattern: pattern,
			MatchedExample: example,
		}
	} else if top, ok := c.semanticTop(candidates); ok {
		result = Result{
			Intent:         top.Intent,
			Confidence:     top.Confidence,
			MatchedExample: top.MatchedExample,
		}
	}

	result.Alternatives = pie.Top(pie.Filter(candidates, func(cand Candidate) bool {
		return cand.Intent != result.Intent && cand.Confidence >= c.cfg.MinConfidence
	}), maxAlternatives)

	if result.Intent != nil && len(result.Alternatives) > 0 {
		runnerUp := result.Alternatives[0]
		if runnerUp.Confidence > result.Confidence-c.cfg.AmbiguityMargin {
			result.Ambiguous = true
			// a pattern match is deterministic, so it is answered even when the semantic pass is close
			result.NeedsClarification = !result.RegexConfirmed
		}
	}

	return result
}

// patternPass returns the first registered intent with a matching pattern.
func (c *Classifier) patternPass(u lexicon.Utterance) (*lexicon.Intent, string) {
	for _, intent := range c.lib.Intents {
		if pattern, ok := intent.Match(u.Text()); ok {
			return intent, pattern
		}
	}

	return nil, ""
}

func (c *Classifier) semanticTop(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 || candidates[0].Confidence < c.cfg.MinConfidence {
		return Candidate{}, false
	}

	return candidates[0], true
}

// semanticPass scores every intent against its examples and returns candidates with a
// positive confidence, best first. Ties keep registration order.
func (c *Classifier) semanticPass(u lexicon.Utterance, ctx Context) []Candidate {
	query := c.newPhrase(u)
	if len(query.stems) == 0 {
		return nil
	}

	var candidates []Candidate

	for _, entry := range c.index {
		if len(entry.examples) == 0 {
			continue
		}

		var best, sum float64
		var bestExample string

		for _, example := range entry.examples {
			score := c.similarity(query, example)
			sum += score

			if score > best {
				best = score
				bestExample = example.text
			}
		}

		mean := sum / float64(len(entry.examples))
		confidence := c.cfg.BestWeight*best + (1-c.cfg.BestWeight)*mean
		if confidence <= 0 {
			continue
		}

		if ctx.LastIntent != "" && ctx.LastIntent == entry.intent.Name {
			confidence += c.cfg.ContextBonus
		}
		if entry.intent.Topic != "" && pie.Contains(ctx.ActiveTopics, entry.intent.Topic) {
			confidence += c.cfg.ContextBonus
		}

		candidates = append(candidates, Candidate{
			Intent:         entry.intent,
			Confidence:     clamp01(confidence),
			MatchedExample: bestExample,
		})
	}

	return pie.SortStableUsing(candidates, func(a, b Candidate) bool {
		return a.Confidence > b.Confidence
	})
}

func (c *Classifier) newPhrase(u lexicon.Utterance) phrase {
	stems := unique(u.Stems())

	var content []string
	for _, stem := range u.Stems() {
		if c.lib.Weight(stem) >= contentWeight {
			content = append(content, stem)
		}
	}

	bigrams := make(map[string]struct{})
	for i := 1; i < len(content); i++ {
		bigrams[content[i-1]+" "+content[i]] = struct{}{}
	}

	return phrase{
		text:    u.Text(),
		stems:   stems,
		bigrams: bigrams,
	}
}

// similarity blends weighted unigram overlap, bigram overlap and a small synonym bonus
// into a score in [0,1].
func (c *Classifier) similarity(query, example phrase) float64 {
	matchedQ, totalQ, synonyms := c.overlap(query.stems, example.stems)
	matchedE, totalE, _ := c.overlap(example.stems, query.stems)
	if totalQ+totalE == 0 {
		return 0
	}

	unigram := (matchedQ + matchedE) / (totalQ + totalE)

	var score float64
	if len(query.bigrams) > 0 && len(example.bigrams) > 0 {
		shared := 0
		for bigram := range query.bigrams {
			if _, ok := example.bigrams[bigram]; ok {
				shared++
			}
		}

		bigram := 2 * float64(shared) / float64(len(query.bigrams)+len(example.bigrams))
		score = (1-bigramShare)*unigram + bigramShare*bigram
	} else {
		score = unigram * unigramOnlyFactor
	}

	score += min(maxSynonymBonus, synonymBonus*float64(synonyms))

	return clamp01(score)
}

// overlap returns the importance-weighted share of from that finds a counterpart in to:
// exact stems count fully, synonyms and near-miss spellings partially.
func (c *Classifier) overlap(from, to []string) (matched, total float64, synonyms int) {
	for _, stem := range from {
		weight := c.lib.Weight(stem)
		total += weight

		var credit float64
		for _, other := range to {
			switch {
			case stem == other:
				credit = 1
			case credit < synonymCredit && c.lib.Synonymous(stem, other):
				credit = synonymCredit
			case credit < typoCredit && isTypo(stem, other):
				credit = typoCredit
			}

			if credit == 1 {
				break
			}
		}

		if credit == synonymCredit {
			synonyms++
		}
		matched += weight * credit
	}

	return matched, total, synonyms
}

func isTypo(a, b string) bool {
	budget := lexicon.TypoBudget(min(len(a), len(b)))
	if budget == 0 {
		return false
	}

	return lexicon.WithinEditDistance(a, b, budget)
}

func unique(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))

	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		result = append(result, value)
	}

	return result
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
