package conversation

import (
	"govassist/app/client/llm"
	"govassist/app/service/linker"
	"govassist/app/service/memory"
	"govassist/app/service/strategy"
	"govassist/app/service/suggest"
)

// Kind tells the presentation layer what sort of reply a turn produced.
type Kind string

const (
	KindAnswer        Kind = "answer"
	KindFollowUp      Kind = "follow_up"
	KindClarification Kind = "clarification"
	KindMenu          Kind = "menu"
	KindEmergency     Kind = "emergency"
	KindDeEscalation  Kind = "de_escalation"
	KindFallback      Kind = "fallback"
	KindError         Kind = "error"
)

// TurnResult is everything one turn returns. The session memory passed to ProcessTurn
// holds the updated state.
type TurnResult struct {
	Reply       string               `json:"reply"`
	Kind        Kind                 `json:"kind"`
	Suggestions []suggest.Suggestion `json:"suggestions"`

	Intent             string                `json:"intent,omitempty"`
	Confidence         float64               `json:"confidence"`
	RegexConfirmed     bool                  `json:"regex_confirmed,omitempty"`
	Alternatives       []string              `json:"alternatives,omitempty"`
	NeedsClarification bool                  `json:"needs_clarification,omitempty"`
	Decision           *strategy.Decision    `json:"decision,omitempty"`
	Complexity         *strategy.Complexity  `json:"complexity,omitempty"`
	Entities           []linker.LinkedEntity `json:"entities,omitempty"`
	Service            string                `json:"service,omitempty"`
	FollowUp           *memory.FollowUp      `json:"follow_up,omitempty"`

	// FailureCause is set when the model was asked and the turn fell back to rules.
	FailureCause llm.Cause  `json:"failure_cause,omitempty"`
	Usage        *llm.Usage `json:"usage,omitempty"`
}
