package memory

import (
	"maps"
	"slices"
	"time"

	"govassist/app/config"
	"govassist/app/service/lexicon"

	"github.com/samber/do"
)

const smoothingWindow = 3

// Service creates per-session memories that share one config and pattern library.
type Service struct {
	cfg config.Memory
	lib *lexicon.Library
}

func New(di *do.Injector) (*Service, error) {
	return &Service{
		cfg: do.MustInvoke[*config.Config](di).Memory,
		lib: do.MustInvoke[*lexicon.Library](di),
	}, nil
}

func (s *Service) NewMemory(opts ...Option) *Memory {
	return NewMemory(s.cfg, s.lib, opts...)
}

type Option func(*Memory)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Memory) {
		m.now = now
	}
}

// Memory is the state of one conversation. It is owned by a single session and is not
// safe for concurrent use.
type Memory struct {
	cfg config.Memory
	lib *lexicon.Library
	now func() time.Time

	messages       []Message
	entities       map[string]string
	topics         map[string]*TopicState
	sentiments     []lexicon.Sentiment
	sentiment      lexicon.Sentiment
	goals          []string
	clarifications int
	followUp       *FollowUp
	departments    []string
	services       []string
	lastIntent     string
}

func NewMemory(cfg config.Memory, lib *lexicon.Library, opts ...Option) *Memory {
	m := &Memory{
		cfg:       cfg,
		lib:       lib,
		now:       time.Now,
		entities:  make(map[string]string),
		topics:    make(map[string]*TopicState),
		sentiment: lexicon.SentimentNeutral,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// AddMessage appends msg to the log. User messages are analysed first: entities are
// merged by type, topics counted, sentiment folded into the trend and goals recorded.
func (m *Memory) AddMessage(msg Message) Message {
	if msg.Time.IsZero() {
		msg.Time = m.now()
	}
	if msg.Role == "" {
		msg.Role = RoleUser
	}

	u := lexicon.NewUtterance(msg.Text)
	msg.Normalized = u.Text()

	if msg.Role == RoleUser {
		msg.Entities = m.lib.ExtractEntities(u)
		for _, entity := range msg.Entities {
			m.entities[entity.Type] = entity.Value
		}

		msg.Topics = m.lib.ExtractTopics(u)
		for _, topic := range msg.Topics {
			m.touchTopic(topic, msg.Time)
		}

		msg.Sentiment = m.lib.ClassifySentiment(u)
		m.addSentiment(msg.Sentiment)

		for _, goal := range m.lib.ExtractGoals(u) {
			m.addGoal(goal)
		}
	}

	if len(m.messages) >= m.cfg.MaxMessages {
		m.messages = append(m.messages[1:], msg)
	} else {
		m.messages = append(m.messages, msg)
	}

	return msg
}

func (m *Memory) touchTopic(name string, at time.Time) {
	state, ok := m.topics[name]
	if !ok {
		m.topics[name] = &TopicState{
			Count:     1,
			FirstSeen: at,
			LastSeen:  at,
		}
		return
	}

	state.Count++
	state.LastSeen = at
	state.Resolved = false
}

func (m *Memory) addSentiment(s lexicon.Sentiment) {
	if len(m.sentiments) >= m.cfg.MaxSentimentHistory {
		m.sentiments = append(m.sentiments[1:], s)
	} else {
		m.sentiments = append(m.sentiments, s)
	}

	m.sentiment = smooth(m.sentiments)
}

// smooth votes over the last readings. Repeated negative readings escalate to
// frustrated even when no single message was frustrated.
func smooth(history []lexicon.Sentiment) lexicon.Sentiment {
	if len(history) == 0 {
		return lexicon.SentimentNeutral
	}

	window := history[max(0, len(history)-smoothingWindow):]
	latest := window[len(window)-1]

	counts := make(map[lexicon.Sentiment]int, len(window))
	negative := 0
	for _, s := range window {
		counts[s]++
		if s.IsNegative() {
			negative++
		}
	}

	switch {
	case counts[lexicon.SentimentFrustrated] > 0 && negative >= 2:
		return lexicon.SentimentFrustrated
	case len(window) == smoothingWindow && negative == smoothingWindow:
		return lexicon.SentimentFrustrated
	}

	for _, s := range window {
		if counts[s] >= 2 {
			return s
		}
	}

	return latest
}

func (m *Memory) addGoal(goal string) {
	m.goals = slices.DeleteFunc(m.goals, func(g string) bool {
		return g == goal
	})
	m.goals = append(m.goals, goal)

	if len(m.goals) > m.cfg.MaxGoals {
		m.goals = m.goals[len(m.goals)-m.cfg.MaxGoals:]
	}
}

// SetFollowUp starts waiting for an answer to the intent's follow-up question.
func (m *Memory) SetFollowUp(intent string, followUp *lexicon.FollowUp) {
	if followUp == nil {
		m.followUp = nil
		return
	}

	m.followUp = &FollowUp{
		Intent:   intent,
		Question: followUp.Question,
		Options:  slices.Clone(followUp.Options),
		SetAt:    m.now(),
	}
}

// ActiveFollowUp returns the pending follow-up unless it has outlived its TTL. An
// expired follow-up is reported as absent but left in place until cleared or replaced.
func (m *Memory) ActiveFollowUp() (FollowUp, bool) {
	if m.followUp == nil {
		return FollowUp{}, false
	}
	if m.now().Sub(m.followUp.SetAt) > m.cfg.FollowUpTTL {
		return FollowUp{}, false
	}

	return *m.followUp, true
}

func (m *Memory) HasActiveFollowUp() bool {
	_, ok := m.ActiveFollowUp()
	return ok
}

func (m *Memory) ClearFollowUp() {
	m.followUp = nil
}

func (m *Memory) IncrementClarification() int {
	m.clarifications++
	return m.clarifications
}

func (m *Memory) ResetClarification() {
	m.clarifications = 0
}

func (m *Memory) Clarifications() int {
	return m.clarifications
}

// RepeatCount counts recent user messages with the given normalized text.
func (m *Memory) RepeatCount(normalized string) int {
	now := m.now()

	count := 0
	for _, msg := range m.messages {
		if msg.Role != RoleUser || msg.Normalized != normalized {
			continue
		}
		if now.Sub(msg.Time) <= m.cfg.RepeatWindow {
			count++
		}
	}

	return count
}

func (m *Memory) RecordDepartment(id string) {
	if id != "" && !slices.Contains(m.departments, id) {
		m.departments = append(m.departments, id)
	}
}

func (m *Memory) RecordService(id string) {
	if id != "" && !slices.Contains(m.services, id) {
		m.services = append(m.services, id)
	}
}

func (m *Memory) SetLastIntent(intent string) {
	m.lastIntent = intent
}

func (m *Memory) LastIntent() string {
	return m.lastIntent
}

func (m *Memory) ResolveTopic(name string) {
	if state, ok := m.topics[name]; ok {
		state.Resolved = true
	}
}

func (m *Memory) Messages() []Message {
	return slices.Clone(m.messages)
}

func (m *Memory) Entities() map[string]string {
	return maps.Clone(m.entities)
}

func (m *Memory) Goals() []string {
	return slices.Clone(m.goals)
}

func (m *Memory) Departments() []string {
	return slices.Clone(m.departments)
}

func (m *Memory) Services() []string {
	return slices.Clone(m.services)
}

func (m *Memory) Sentiment() lexicon.Sentiment {
	return m.sentiment
}

func (m *Memory) Topic(name string) (TopicState, bool) {
	state, ok := m.topics[name]
	if !ok {
		return TopicState{}, false
	}

	return *state, true
}
