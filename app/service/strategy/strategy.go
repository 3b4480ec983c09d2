package strategy

import (
	"fmt"

	"govassist/app/config"
	"govassist/app/service/classifier"
	"govassist/app/service/lexicon"

	"github.com/samber/do"
)

type Name string

const (
	RuleBased          Name = "RULE_BASED"
	RuleWithAIFallback Name = "RULE_WITH_AI_FALLBACK"
	AIPrimary          Name = "AI_PRIMARY"
	AIOnly             Name = "AI_ONLY"
	Emergency          Name = "EMERGENCY"
)

const defaultConfidence = 0.5

// Decision says how one turn is answered. It is produced fresh every turn.
type Decision struct {
	Strategy         Name    `json:"strategy"`
	Confidence       float64 `json:"confidence"`
	UseExternalModel bool    `json:"use_external_model"`
	Reason           string  `json:"reason"`
	// Blend merges the local answer with the model's answer.
	Blend bool `json:"blend,omitempty"`
	// EnhancedContext asks for the richer prompt: digest, expertise, goal, entities, tone.
	EnhancedContext bool `json:"enhanced_context,omitempty"`
}

type Router struct {
	cfg config.Strategy
	lib *lexicon.Library
}

func New(di *do.Injector) (*Router, error) {
	return NewRouter(
		do.MustInvoke[*config.Config](di).Strategy,
		do.MustInvoke[*lexicon.Library](di),
	), nil
}

func NewRouter(cfg config.Strategy, lib *lexicon.Library) *Router {
	return &Router{
		cfg: cfg,
		lib: lib,
	}
}

// DetermineStrategy applies the routing rules in priority order. The emergency rule is
// checked before anything else, including model availability.
func (r *Router) DetermineStrategy(res classifier.Result, c Complexity, modelAvailable bool) Decision {
	confidence := res.Confidence

	switch {
	case c.Level == LevelCritical || c.Emergency:
		return Decision{
			Strategy:   Emergency,
			Confidence: 1.0,
			Reason:     fmt.Sprintf("emergency language detected: %q", c.Trigger),
		}

	case !modelAvailable:
		return Decision{
			Strategy:   RuleBased,
			Confidence: confidence,
			Reason:     "external model unavailable",
		}

	case c.Level == LevelSimple && confidence >= r.cfg.HighConfidence:
		return Decision{
			Strategy:   RuleBased,
			Confidence: confidence,
			Reason:     fmt.Sprintf("simple request, confidence %.2f", confidence),
		}

	case c.Level == LevelSimple:
		escalate := confidence < r.cfg.EscalateBelow
		reason := fmt.Sprintf("simple request, low confidence %.2f", confidence)
		if escalate {
			reason += ", escalating"
		}

		return Decision{
			Strategy:         RuleWithAIFallback,
			Confidence:       confidence,
			UseExternalModel: escalate,
			Reason:           reason,
		}

	case c.Level == LevelModerate && confidence >= r.cfg.ModerateConfidence:
		return Decision{
			Strategy:         RuleWithAIFallback,
			Confidence:       confidence,
			UseExternalModel: true,
			Blend:            true,
			Reason:           fmt.Sprintf("moderate request (score %d), blending with confidence %.2f", c.Score, confidence),
		}

	case c.Level == LevelModerate:
		return Decision{
			Strategy:         AIPrimary,
			Confidence:       confidence,
			UseExternalModel: true,
			Reason:           fmt.Sprintf("moderate request (score %d), weak confidence %.2f", c.Score, confidence),
		}

	case c.Level == LevelComplex:
		return Decision{
			Strategy:         AIOnly,
			Confidence:       confidence,
			UseExternalModel: true,
			EnhancedContext:  true,
			Reason:           fmt.Sprintf("complex request (score %d)", c.Score),
		}
	}

	return Decision{
		Strategy:   RuleWithAIFallback,
		Confidence: defaultConfidence,
		Reason:     "no rule matched",
	}
}
