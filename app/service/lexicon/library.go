package lexicon

import (
	"regexp"
	"sync"

	_ "embed"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultLexicon []byte

var (
	defaultOnce    sync.Once
	defaultLibrary *Library
	defaultErr     error
)

// Library holds every static pattern table. It is immutable after Parse and safe for
// concurrent use.
type Library struct {
	Intents    []*Intent        `yaml:"intents" validate:"required,dive"`
	Entities   []*EntityPattern `yaml:"entities" validate:"dive"`
	Topics     []*Topic         `yaml:"topics" validate:"dive"`
	Sentiment  SentimentLexicon `yaml:"sentiment"`
	Synonyms   [][]string       `yaml:"synonyms" validate:"dive,min=2"`
	Importance Importance       `yaml:"importance"`
	Emergency  []string         `yaml:"emergency" validate:"required"`
	Goals      []string         `yaml:"goals"`

	intentIndex   map[string]*Intent
	topicIndex    map[string]*Topic
	emergency     []*regexp.Regexp
	goals         []*regexp.Regexp
	frustrated    []*regexp.Regexp
	positive      map[string]struct{}
	negative      map[string]struct{}
	synonymGroups map[string][]int
	weights       map[string]float64
}

type Intent struct {
	Name       string    `yaml:"name" validate:"required"`
	Title      string    `yaml:"title" validate:"required"`
	Department string    `yaml:"department"`
	Service    string    `yaml:"service"`
	Topic      string    `yaml:"topic"`
	Patterns   []string  `yaml:"patterns"`
	Examples   []string  `yaml:"examples"`
	Answer     string    `yaml:"answer"`
	FollowUp   *FollowUp `yaml:"follow_up"`

	patterns []*regexp.Regexp
}

type FollowUp struct {
	Question string   `yaml:"question" validate:"required"`
	Options  []Option `yaml:"options" validate:"required,min=1,dive"`
}

type Option struct {
	Key    string `yaml:"key" json:"key" validate:"required"`
	Label  string `yaml:"label" json:"label" validate:"required"`
	Value  string `yaml:"value" json:"value" validate:"required"`
	Answer string `yaml:"answer" json:"-" validate:"required"`
}

type EntityPattern struct {
	Type        string `yaml:"type" validate:"required"`
	Label       string `yaml:"label" validate:"required"`
	Pattern     string `yaml:"pattern" validate:"required"`
	Department  string `yaml:"department" validate:"required"`
	Action      string `yaml:"action" validate:"required"`
	URL         string `yaml:"url" validate:"required"`
	Instruction string `yaml:"instruction" validate:"required"`
	Suggestion  string `yaml:"suggestion" validate:"required"`

	re *regexp.Regexp
}

type Topic struct {
	Name    string `yaml:"name" validate:"required"`
	Pattern string `yaml:"pattern" validate:"required"`

	re *regexp.Regexp
}

type SentimentLexicon struct {
	Positive   []string `yaml:"positive"`
	Negative   []string `yaml:"negative"`
	Frustrated []string `yaml:"frustrated"`
}

type Importance struct {
	Default float64       `yaml:"default" validate:"gte=0"`
	Classes []WeightClass `yaml:"classes" validate:"dive"`
}

type WeightClass struct {
	Name   string   `yaml:"name" validate:"required"`
	Weight float64  `yaml:"weight" validate:"gt=0"`
	Words  []string `yaml:"words" validate:"required"`
}

// Default returns the embedded library. It is parsed once per process.
func Default() (*Library, error) {
	defaultOnce.Do(func() {
		defaultLibrary, defaultErr = Parse(defaultLexicon)
	})

	return defaultLibrary, defaultErr
}

// Parse decodes, validates and compiles a library document.
func Parse(data []byte) (*Library, error) {
	var lib Library
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return nil, oops.In("lexicon").Errorf("failed to parse lexicon: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&lib); err != nil {
		return nil, oops.In("lexicon").Errorf("failed to validate lexicon: %w", err)
	}

	if err := lib.compile(); err != nil {
		return nil, err
	}

	return &lib, nil
}

func (l *Library) compile() error {
	errb := oops.In("lexicon")

	l.topicIndex = make(map[string]*Topic, len(l.Topics))
	for _, topic := range l.Topics {
		if _, ok := l.topicIndex[topic.Name]; ok {
			return errb.With("topic", topic.Name).Errorf("duplicate topic")
		}

		re, err := regexp.Compile(topic.Pattern)
		if err != nil {
			return errb.With("topic", topic.Name).Wrapf(err, "invalid topic pattern")
		}

		topic.re = re
		l.topicIndex[topic.Name] = topic
	}

	l.intentIndex = make(map[string]*Intent, len(l.Intents))
	for _, intent := range l.Intents {
		errb := errb.With("intent", intent.Name)

		if _, ok := l.intentIndex[intent.Name]; ok {
			return errb.Errorf("duplicate intent")
		}
		if len(intent.Patterns) == 0 && len(intent.Examples) == 0 {
			return errb.Errorf("intent has neither patterns nor examples")
		}
		if intent.Topic != "" {
			if _, ok := l.topicIndex[intent.Topic]; !ok {
				return errb.With("topic", intent.Topic).Errorf("intent references unknown topic")
			}
		}

		for _, pattern := range intent.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return errb.With("pattern", pattern).Wrapf(err, "invalid intent pattern")
			}
			intent.patterns = append(intent.patterns, re)
		}

		if intent.FollowUp != nil {
			seen := make(map[string]struct{}, len(intent.FollowUp.Options))
			for _, option := range intent.FollowUp.Options {
				if _, ok := seen[option.Key]; ok {
					return errb.With("option", option.Key).Errorf("duplicate follow-up option")
				}
				seen[option.Key] = struct{}{}
			}
		}

		l.intentIndex[intent.Name] = intent
	}

	for _, entity := range l.Entities {
		re, err := regexp.Compile(entity.Pattern)
		if err != nil {
			return errb.With("entity", entity.Type).Wrapf(err, "invalid entity pattern")
		}
		entity.re = re
	}

	var err error
	if l.emergency, err = compileAll(l.Emergency); err != nil {
		return errb.Wrapf(err, "invalid emergency pattern")
	}
	if l.goals, err = compileAll(l.Goals); err != nil {
		return errb.Wrapf(err, "invalid goal pattern")
	}
	if l.frustrated, err = compileAll(l.Sentiment.Frustrated); err != nil {
		return errb.Wrapf(err, "invalid frustration pattern")
	}

	l.positive = stemSet(l.Sentiment.Positive)
	l.negative = stemSet(l.Sentiment.Negative)

	l.synonymGroups = make(map[string][]int)
	for i, group := range l.Synonyms {
		for _, word := range group {
			stem := Stem(word)
			l.synonymGroups[stem] = append(l.synonymGroups[stem], i)
		}
	}

	if l.Importance.Default == 0 {
		l.Importance.Default = 1
	}
	l.weights = make(map[string]float64)
	for _, class := range l.Importance.Classes {
		for _, word := range class.Words {
			l.weights[Stem(word)] = class.Weight
		}
	}

	return nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	result := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, oops.With("pattern", pattern).Wrap(err)
		}
		result = append(result, re)
	}

	return result, nil
}

func stemSet(words []string) map[string]struct{} {
	result := make(map[string]struct{}, len(words))
	for _, word := range words {
		result[Stem(word)] = struct{}{}
	}

	return result
}

func (l *Library) Intent(name string) (*Intent, bool) {
	intent, ok := l.intentIndex[name]
	return intent, ok
}

func (l *Library) Topic(name string) (*Topic, bool) {
	topic, ok := l.topicIndex[name]
	return topic, ok
}

func (l *Library) EntityPattern(entityType string) (*EntityPattern, bool) {
	for _, entity := range l.Entities {
		if entity.Type == entityType {
			return entity, true
		}
	}

	return nil, false
}

// Match tests text against the intent's patterns in order and returns the first one
// that matches.
func (i *Intent) Match(text string) (string, bool) {
	for _, re := range i.patterns {
		if re.MatchString(text) {
			return re.String(), true
		}
	}

	return "", false
}

func (i *Intent) HasFollowUp() bool {
	return i.FollowUp != nil && len(i.FollowUp.Options) > 0
}
