package memory

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"govassist/app/service/lexicon"

	"github.com/elliotchance/pie/v2"
)

const (
	recentLimit  = 5
	relatedLimit = 3
)

// ActiveTopics returns unresolved topics mentioned more than once or recently, most
// mentioned first.
func (m *Memory) ActiveTopics() []string {
	now := m.now()

	var names []string
	for name, state := range m.topics {
		if state.Resolved {
			continue
		}
		if state.Count > 1 || now.Sub(state.LastSeen) <= m.cfg.ActiveTopicWindow {
			names = append(names, name)
		}
	}

	slices.SortFunc(names, func(a, b string) int {
		sa, sb := m.topics[a], m.topics[b]
		switch {
		case sa.Count != sb.Count:
			return sb.Count - sa.Count
		case !sa.LastSeen.Equal(sb.LastSeen):
			return sb.LastSeen.Compare(sa.LastSeen)
		default:
			return strings.Compare(a, b)
		}
	})

	return names
}

func (m *Memory) Summary() Summary {
	summary := Summary{
		MessageCount:     len(m.messages),
		ActiveTopics:     m.ActiveTopics(),
		Entities:         m.Entities(),
		Goals:            m.Goals(),
		Sentiment:        m.sentiment,
		Clarifications:   m.clarifications,
		Departments:      m.Departments(),
		Services:         m.Services(),
		LastIntent:       m.lastIntent,
		AwaitingFollowUp: m.HasActiveFollowUp(),
	}
	summary.Digest = digest(summary)

	return summary
}

// digest renders a summary as a short brief for the language model.
func digest(s Summary) string {
	var parts []string

	if len(s.ActiveTopics) > 0 {
		parts = append(parts, "topics: "+strings.Join(s.ActiveTopics, ", "))
	}

	if len(s.Entities) > 0 {
		entities := pie.Map(slices.Sorted(maps.Keys(s.Entities)), func(key string) string {
			return key + "=" + s.Entities[key]
		})
		parts = append(parts, "entities: "+strings.Join(entities, ", "))
	}

	if len(s.Goals) > 0 {
		parts = append(parts, "goals: "+strings.Join(s.Goals, "; "))
	}

	if len(s.Departments) > 0 {
		parts = append(parts, "departments visited: "+strings.Join(s.Departments, ", "))
	}

	parts = append(parts, "sentiment: "+string(s.Sentiment))

	if s.Clarifications > 0 {
		parts = append(parts, fmt.Sprintf("clarifications so far: %d", s.Clarifications))
	}

	if s.LastIntent != "" {
		parts = append(parts, "last intent: "+s.LastIntent)
	}

	return strings.Join(parts, "\n")
}

// GetRelevantContext collects the recent log plus older user messages that share a
// topic with u.
func (m *Memory) GetRelevantContext(u lexicon.Utterance) RelevantContext {
	recent := m.messages[max(0, len(m.messages)-recentLimit):]
	older := m.messages[:len(m.messages)-len(recent)]

	topics := m.lib.ExtractTopics(u)

	var related []Message
	for i := len(older) - 1; i >= 0 && len(related) < relatedLimit; i-- {
		msg := older[i]
		if msg.Role != RoleUser {
			continue
		}
		if slices.ContainsFunc(msg.Topics, func(topic string) bool {
			return slices.Contains(topics, topic)
		}) {
			related = append(related, msg)
		}
	}
	slices.Reverse(related)

	var goal string
	if len(m.goals) > 0 {
		goal = m.goals[len(m.goals)-1]
	}

	return RelevantContext{
		Recent:       slices.Clone(recent),
		Related:      related,
		Entities:     m.Entities(),
		ActiveTopics: m.ActiveTopics(),
		Goal:         goal,
		Sentiment:    m.sentiment,
		LastIntent:   m.lastIntent,
		Departments:  m.Departments(),
	}
}
