package conversation

import (
	"slices"

	"govassist/app/client/llm"
	"govassist/app/service/lexicon"
	"govassist/app/service/linker"
	"govassist/app/service/memory"

	"github.com/elliotchance/pie/v2"
)

const recentTextSize = 3

// modelHistory turns the relevant slice of memory into chat history for the model. The
// current message is sent separately and is dropped from the tail.
func modelHistory(relevant memory.RelevantContext) []llm.Message {
	recent := relevant.Recent
	if len(recent) > 0 && recent[len(recent)-1].Role == memory.RoleUser {
		recent = recent[:len(recent)-1]
	}

	messages := append(append([]memory.Message{}, relevant.Related...), recent...)

	return pie.Map(messages, func(msg memory.Message) llm.Message {
		role := llm.RoleUser
		if msg.Role == memory.RoleAssistant {
			role = llm.RoleAssistant
		}

		return llm.Message{
			Role: role,
			Text: msg.Text,
		}
	})
}

// recentUserText returns the text of the last few user messages, oldest first.
func recentUserText(mem *memory.Memory) []string {
	var result []string

	messages := mem.Messages()
	for i := len(messages) - 1; i >= 0 && len(result) < recentTextSize; i-- {
		if messages[i].Role == memory.RoleUser {
			result = append(result, messages[i].Text)
		}
	}

	slices.Reverse(result)

	return result
}

// contextEntities links every entity the session holds. This turn's matches come first,
// then remembered ones of other types in type order.
func (s *Service) contextEntities(mem *memory.Memory, current []linker.LinkedEntity) []linker.LinkedEntity {
	remembered := mem.Entities()

	types := make([]string, 0, len(remembered))
	for entityType := range remembered {
		if pie.Any(current, func(entity linker.LinkedEntity) bool { return entity.Type == entityType }) {
			continue
		}
		types = append(types, entityType)
	}
	slices.Sort(types)

	matches := pie.Map(types, func(entityType string) lexicon.EntityMatch {
		return lexicon.EntityMatch{
			Type:  entityType,
			Value: remembered[entityType],
		}
	})

	return slices.Concat(current, s.linker.Link(matches))
}
