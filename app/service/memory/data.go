package memory

import (
	"strings"
	"time"

	"govassist/app/service/lexicon"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the session log. Derived fields are filled by AddMessage for
// user messages only.
type Message struct {
	Role       Role                  `json:"role"`
	Text       string                `json:"text"`
	Normalized string                `json:"-"`
	Time       time.Time             `json:"time"`
	Intent     string                `json:"intent,omitempty"`
	Topics     []string              `json:"topics,omitempty"`
	Sentiment  lexicon.Sentiment     `json:"sentiment,omitempty"`
	Entities   []lexicon.EntityMatch `json:"-"`
}

type TopicState struct {
	Count     int       `json:"count"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
	Resolved  bool      `json:"resolved"`
}

// FollowUp is a pending clarifying question. It is only meaningful while it has not
// expired; use Memory.ActiveFollowUp to read it.
type FollowUp struct {
	Intent   string           `json:"intent"`
	Question string           `json:"question"`
	Options  []lexicon.Option `json:"options"`
	SetAt    time.Time        `json:"set_at"`
}

// Match finds the option the reply selects, by key ("1", "#1", "option 1"), by value
// or by label.
func (f FollowUp) Match(reply lexicon.Utterance) (lexicon.Option, bool) {
	text := strings.TrimSpace(reply.Text())
	text = strings.TrimPrefix(text, "option ")
	text = strings.TrimPrefix(text, "#")
	text = strings.TrimRight(text, ".)!")
	text = strings.TrimSpace(text)

	if text == "" {
		return lexicon.Option{}, false
	}

	for _, option := range f.Options {
		value := strings.ReplaceAll(strings.ToLower(option.Value), "_", " ")

		switch {
		case text == strings.ToLower(option.Key):
			return option, true
		case text == strings.ToLower(option.Value), text == value:
			return option, true
		case text == strings.ToLower(option.Label):
			return option, true
		}
	}

	return lexicon.Option{}, false
}

// Summary is derived on demand and never stored.
type Summary struct {
	MessageCount     int               `json:"message_count"`
	ActiveTopics     []string          `json:"active_topics"`
	Entities         map[string]string `json:"entities"`
	Goals            []string          `json:"goals"`
	Sentiment        lexicon.Sentiment `json:"sentiment"`
	Clarifications   int               `json:"clarifications"`
	Departments      []string          `json:"departments"`
	Services         []string          `json:"services"`
	LastIntent       string            `json:"last_intent,omitempty"`
	AwaitingFollowUp bool              `json:"awaiting_follow_up"`
	Digest           string            `json:"digest"`
}

// RelevantContext is the slice of memory worth showing alongside one utterance.
type RelevantContext struct {
	Recent       []Message
	Related      []Message
	Entities     map[string]string
	ActiveTopics []string
	Goal         string
	Sentiment    lexicon.Sentiment
	LastIntent   string
	Departments  []string
}
