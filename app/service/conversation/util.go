package conversation

import (
	"govassist/app/service/suggest"

	"github.com/elliotchance/pie/v2"
)

func aiSuggestions(questions []string) []suggest.Suggestion {
	return pie.Map(questions, func(question string) suggest.Suggestion {
		return suggest.Suggestion{
			Text:     question,
			Query:    question,
			Source:   suggest.SourceAI,
			Priority: suggest.TierNormal,
		}
	})
}
