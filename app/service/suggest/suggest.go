package suggest

import (
	"strings"
	"time"

	"govassist/app/config"
	"govassist/app/service/catalog"
	"govassist/app/service/lexicon"
	"govassist/app/service/linker"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
)

type Tier int

const (
	TierLow Tier = iota
	TierNormal
	TierMedium
	TierHigh
)

func (t Tier) String() string {
	switch t {
	case TierHigh:
		return "high"
	case TierMedium:
		return "medium"
	case TierNormal:
		return "normal"
	default:
		return "low"
	}
}

func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Tier) UnmarshalText(text []byte) error {
	switch string(text) {
	case "high":
		*t = TierHigh
	case "medium":
		*t = TierMedium
	case "normal":
		*t = TierNormal
	case "low":
		*t = TierLow
	default:
		return oops.In("suggest").With("tier", string(text)).Errorf("unknown priority tier")
	}

	return nil
}

type Source string

const (
	SourceSentiment    Source = "sentiment"
	SourcePrerequisite Source = "prerequisite"
	SourceCalendar     Source = "calendar"
	SourceNextStep     Source = "next_step"
	SourceJourney      Source = "journey"
	SourceEntity       Source = "entity"
	SourceCommonNext   Source = "common_next"
	SourceAI           Source = "ai"
)

const (
	urgentDays = 7
	soonDays   = 14
)

type Suggestion struct {
	Text     string `json:"text"`
	Query    string `json:"query"`
	Source   Source `json:"source"`
	Priority Tier   `json:"priority"`
}

// Input is everything a generation call may draw on. Discussed lists services the
// session already touched; they are not suggested again.
type Input struct {
	Now            time.Time
	LastIntent     string
	RecentText     []string
	CurrentService string
	Discussed      []string
	Sentiment      lexicon.Sentiment
	Entities       []linker.LinkedEntity
	Extra          []Suggestion
}

type Engine struct {
	cat *catalog.Catalog
	max int
}

func New(di *do.Injector) (*Engine, error) {
	return NewEngine(
		do.MustInvoke[*config.Config](di).Suggestions,
		do.MustInvoke[*catalog.Catalog](di),
	), nil
}

func NewEngine(cfg config.Suggestions, cat *catalog.Catalog) *Engine {
	return &Engine{
		cat: cat,
		max: cfg.Max,
	}
}

// Generate collects candidates from every signal, keeps the first suggestion per query,
// orders them by tier (stable within a tier) and caps the list.
func (e *Engine) Generate(in Input) []Suggestion {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}

	var candidates []Suggestion
	candidates = append(candidates, e.fromSentiment(in)...)
	candidates = append(candidates, e.fromPrerequisites(in)...)
	candidates = append(candidates, e.fromCalendar(in)...)
	candidates = append(candidates, e.fromNextSteps(in)...)
	candidates = append(candidates, e.fromJourneys(in)...)
	candidates = append(candidates, e.fromEntities(in)...)
	candidates = append(candidates, e.fromCommonNext(in)...)
	candidates = append(candidates, pie.Map(in.Extra, func(s Suggestion) Suggestion {
		if s.Source == "" {
			s.Source = SourceAI
		}
		return s
	})...)

	seen := make(map[string]struct{}, len(candidates))
	unique := pie.Filter(candidates, func(s Suggestion) bool {
		key := strings.ToLower(strings.TrimSpace(s.Query))
		if key == "" {
			return false
		}
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		return true
	})

	unique = pie.SortStableUsing(unique, func(a, b Suggestion) bool {
		return a.Priority > b.Priority
	})

	return pie.Top(unique, e.max)
}

func (e *Engine) fromSentiment(in Input) []Suggestion {
	if in.Sentiment != lexicon.SentimentFrustrated {
		return nil
	}

	return []Suggestion{{
		Text:     "Talk to a person",
		Query:    "talk to a human",
		Source:   SourceSentiment,
		Priority: TierHigh,
	}}
}

// fromPrerequisites suggests the services that issue what the current service needs
// and that the session has not touched yet.
func (e *Engine) fromPrerequisites(in Input) []Suggestion {
	svc, ok := e.cat.Service(in.CurrentService)
	if !ok {
		return nil
	}

	var result []Suggestion
	for _, id := range svc.Prerequisites {
		provider, ok := e.cat.Service(id)
		if !ok {
			doc, found := e.cat.Document(id)
			if !found || doc.ResolvedBy == "" {
				continue
			}
			provider, _ = e.cat.Service(doc.ResolvedBy)
		}
		if provider == nil || pie.Contains(in.Discussed, provider.ID) {
			continue
		}

		result = append(result, Suggestion{
			Text:     "First: " + provider.Name,
			Query:    provider.Query,
			Source:   SourcePrerequisite,
			Priority: TierHigh,
		})
	}

	return result
}

// fromCalendar turns this month's deadlines into reminders, more urgent as they near.
func (e *Engine) fromCalendar(in Input) []Suggestion {
	var result []Suggestion
	for _, reminder := range e.cat.RemindersFor(in.Now.Month()) {
		daysLeft := daysUntil(in.Now, reminder.Month, reminder.Day)
		if daysLeft < 0 {
			continue
		}

		tier := TierLow
		switch {
		case daysLeft <= urgentDays:
			tier = TierHigh
		case daysLeft <= soonDays:
			tier = TierMedium
		}

		result = append(result, Suggestion{
			Text:     reminder.Text,
			Query:    reminder.Query,
			Source:   SourceCalendar,
			Priority: tier,
		})
	}

	return result
}

// daysUntil counts calendar days from now's date to month/day of the same year, so a
// daylight saving change in between does not shorten the count.
func daysUntil(now time.Time, month time.Month, day int) int {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	deadline := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)

	return int(deadline.Sub(today).Hours() / 24)
}

func (e *Engine) fromNextSteps(in Input) []Suggestion {
	return pie.Map(e.cat.NextStepsFor(in.LastIntent), func(step catalog.NextStep) Suggestion {
		return Suggestion{
			Text:     step.Text,
			Query:    step.Query,
			Source:   SourceNextStep,
			Priority: TierMedium,
		}
	})
}

// fromJourneys finds journeys whose trigger phrases appear in recent messages and
// suggests the first step the session has not discussed.
func (e *Engine) fromJourneys(in Input) []Suggestion {
	text := strings.ToLower(strings.Join(in.RecentText, "\n"))
	if text == "" {
		return nil
	}

	var result []Suggestion
	for _, journey := range e.cat.Journeys {
		triggered := pie.Any(journey.Triggers, func(trigger string) bool {
			return strings.Contains(text, strings.ToLower(trigger))
		})
		if !triggered {
			continue
		}

		for _, id := range journey.Steps {
			if pie.Contains(in.Discussed, id) || id == in.CurrentService {
				continue
			}

			svc, _ := e.cat.Service(id)
			result = append(result, Suggestion{
				Text:     journey.Name + ": " + svc.Name,
				Query:    svc.Query,
				Source:   SourceJourney,
				Priority: TierMedium,
			})
			break
		}
	}

	return result
}

func (e *Engine) fromEntities(in Input) []Suggestion {
	return pie.Map(in.Entities, func(entity linker.LinkedEntity) Suggestion {
		return Suggestion{
			Text:     entity.Suggestion,
			Query:    entity.Suggestion,
			Source:   SourceEntity,
			Priority: TierMedium,
		}
	})
}

func (e *Engine) fromCommonNext(in Input) []Suggestion {
	svc, ok := e.cat.Service(in.CurrentService)
	if !ok {
		return nil
	}

	var result []Suggestion
	for _, id := range svc.CommonNext {
		if pie.Contains(in.Discussed, id) {
			continue
		}

		next, _ := e.cat.Service(id)
		result = append(result, Suggestion{
			Text:     next.Name,
			Query:    next.Query,
			Source:   SourceCommonNext,
			Priority: TierNormal,
		})
	}

	return result
}
