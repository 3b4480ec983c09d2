package llm

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	_ "embed"
)

//go:embed system_prompt.txt
var systemPromptTemplate string

const (
	suggestionsMarker = "SUGGESTIONS:"
	maxSuggestions    = 3

	defaultTone      = "Keep a neutral, helpful tone."
	defaultExpertise = "general"
)

func (s *Service) buildMessages(req Request) []Message {
	messages := []Message{{
		Role: RoleSystem,
		Text: systemPrompt(req),
	}}

	messages = append(messages, s.trimHistory(req.History)...)

	return append(messages, Message{
		Role: RoleUser,
		Text: req.Message,
	})
}

func systemPrompt(req Request) string {
	tone, expertise := defaultTone, defaultExpertise
	if req.Enhanced && req.Context.Tone != "" {
		tone = req.Context.Tone
	}
	if req.Enhanced && req.Context.Expertise != "" {
		expertise = req.Context.Expertise
	}

	// one pass over the template, so placeholders inside substituted text stay literal
	return strings.NewReplacer(
		"{tone}", tone,
		"{expertise}", expertise,
		"{reference}", formatReference(req.Reference),
		"{context}", formatContext(req.Context),
		"{notes}", formatNotes(req),
	).Replace(systemPromptTemplate)
}

func formatReference(refs []DepartmentReference) string {
	if len(refs) == 0 {
		return "No specific department matched."
	}

	var builder strings.Builder

	for _, ref := range refs {
		builder.WriteString(fmt.Sprintf("## %s (%s)\n", ref.Name, ref.URL))
		if ref.Description != "" {
			builder.WriteString(ref.Description + "\n")
		}
		for _, page := range ref.Pages {
			builder.WriteString("- " + page + "\n")
		}

		var contact []string
		if ref.Phone != "" {
			contact = append(contact, "phone "+ref.Phone)
		}
		if ref.Email != "" {
			contact = append(contact, "email "+ref.Email)
		}
		if ref.Hours != "" {
			contact = append(contact, "hours "+ref.Hours)
		}
		if len(contact) > 0 {
			builder.WriteString("Contact: " + strings.Join(contact, ", ") + "\n")
		}
	}

	return strings.TrimSpace(builder.String())
}

func formatContext(e Enrichment) string {
	var lines []string

	if e.Intent != "" {
		lines = append(lines, "Recognized request: "+e.Intent)
	}
	if len(e.ActiveTopics) > 0 {
		lines = append(lines, "Active topics: "+strings.Join(e.ActiveTopics, ", "))
	}
	if len(e.Entities) > 0 {
		var refs []string
		for _, key := range slices.Sorted(maps.Keys(e.Entities)) {
			refs = append(refs, key+" "+e.Entities[key])
		}
		lines = append(lines, "Referenced numbers: "+strings.Join(refs, ", "))
	}
	if e.Sentiment != "" {
		lines = append(lines, "Resident mood: "+e.Sentiment)
	}
	if e.Goal != "" {
		lines = append(lines, "The resident is trying to: "+e.Goal)
	}

	if len(lines) == 0 {
		return "No prior context."
	}

	return strings.Join(lines, "\n")
}

func formatNotes(req Request) string {
	var builder strings.Builder

	if req.Context.Digest != "" {
		builder.WriteString("\nConversation so far:\n" + req.Context.Digest + "\n")
	}

	if req.Context.LocalAnswer != "" {
		builder.WriteString("\nA prepared answer exists. Build on it and do not contradict it:\n" + req.Context.LocalAnswer + "\n")
	}

	return builder.String()
}

// splitSuggestions separates the answer from the trailing suggestion block.
func splitSuggestions(text string) (string, []string) {
	text = strings.TrimSpace(text)

	idx := strings.LastIndex(text, suggestionsMarker)
	if idx < 0 {
		return text, nil
	}

	answer := strings.TrimSpace(text[:idx])

	var suggestions []string
	for _, line := range strings.Split(text[idx+len(suggestionsMarker):], "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSpace(line)

		if line != "" && len(suggestions) < maxSuggestions {
			suggestions = append(suggestions, line)
		}
	}

	return answer, suggestions
}

// trimHistory keeps the most recent messages that fit both the turn and token budgets.
func (s *Service) trimHistory(history []Message) []Message {
	history = history[max(0, len(history)-s.cfg.HistoryTurns):]

	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		total += s.countTokens(history[i].Text)
		if total > s.cfg.HistoryTokenBudget {
			break
		}
		start = i
	}

	return slices.Clone(history[start:])
}
