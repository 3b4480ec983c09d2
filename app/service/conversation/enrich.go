package conversation

import (
	"regexp"
	"strings"

	"govassist/app/client/llm"
	"govassist/app/service/catalog"
	"govassist/app/service/lexicon"
	"govassist/app/service/memory"
	"govassist/app/service/strategy"
)

const referenceDepartments = 2

const (
	expertiseNovice       = "novice, explain every step and avoid jargon"
	expertiseIntermediate = "intermediate"
	expertiseExperienced  = "experienced, be brief and precise"
)

var (
	noviceRe = regexp.MustCompile(`\b(first time|never (done|had|applied|filed)|new to|don'?t know|do not know|not sure|confused|what is an?|what does .+ mean|help me understand|no idea)\b`)
	expertRe = regexp.MustCompile(`\b(variance|setback|easement|parcel|lien|ordinance|statute|assessor|millage|certificate of occupancy|ein|subpoena|docket|affidavit|notari[sz]ed|apostille|zoning (code|board)|mill rate)\b`)
)

// localAnswer is the rule-based answer: the intent's canned text plus instructions for
// every linked entity.
func (s *Service) localAnswer(t *turn) string {
	var parts []string

	if t.intent != nil && t.intent.Answer != "" {
		parts = append(parts, t.intent.Answer)
	}

	for _, entity := range t.entities {
		parts = append(parts, entity.Instruction+" "+entity.URL)
	}

	return strings.Join(parts, "\n")
}

func (s *Service) buildRequest(mem *memory.Memory, t *turn, decision strategy.Decision, localAnswer string) llm.Request {
	summary := mem.Summary()
	relevant := mem.GetRelevantContext(t.utterance)

	enrichment := llm.Enrichment{
		Entities:     summary.Entities,
		ActiveTopics: summary.ActiveTopics,
		Sentiment:    string(summary.Sentiment),
		Goal:         relevant.Goal,
		Digest:       summary.Digest,
		Expertise:    inferExpertise(recentUserText(mem)),
		Tone:         toneFor(summary.Sentiment),
	}
	if t.intent != nil {
		enrichment.Intent = t.intent.Title
	}
	if decision.Blend {
		enrichment.LocalAnswer = localAnswer
	}

	return llm.Request{
		Message:   t.message.Text,
		History:   modelHistory(relevant),
		Context:   enrichment,
		Reference: s.references(t),
		Enhanced:  decision.EnhancedContext,
	}
}

// references picks the departments whose reference data goes into the prompt: the
// intent's own department first, then the best keyword matches.
func (s *Service) references(t *turn) []llm.DepartmentReference {
	var deps []*catalog.Department

	add := func(dep *catalog.Department) {
		for _, seen := range deps {
			if seen.ID == dep.ID {
				return
			}
		}
		deps = append(deps, dep)
	}

	if t.intent != nil {
		if dep, ok := s.cat.Department(t.intent.Department); ok {
			add(dep)
		}
	}
	if t.service != nil {
		if dep, ok := s.cat.Department(t.service.Department); ok {
			add(dep)
		}
	}
	for _, dep := range s.cat.MatchDepartments(t.utterance, referenceDepartments) {
		add(dep)
	}

	if len(deps) > referenceDepartments {
		deps = deps[:referenceDepartments]
	}

	result := make([]llm.DepartmentReference, 0, len(deps))
	for _, dep := range deps {
		result = append(result, departmentReference(dep))
	}

	return result
}

func departmentReference(dep *catalog.Department) llm.DepartmentReference {
	ref := llm.DepartmentReference{
		Name:        dep.Name,
		Description: dep.Description,
		URL:         dep.URL,
		Phone:       dep.Contact.Phone,
		Email:       dep.Contact.Email,
		Hours:       dep.Contact.Hours,
	}

	for _, page := range dep.SubPages {
		ref.Pages = append(ref.Pages, page.Title+": "+page.URL)
	}

	return ref
}

func toneFor(sentiment lexicon.Sentiment) string {
	switch sentiment {
	case lexicon.SentimentFrustrated:
		return "The resident is frustrated. Acknowledge it and apologise once, give the most direct path, and say how to reach a person."
	case lexicon.SentimentNegative:
		return "Be patient and reassuring."
	case lexicon.SentimentPositive:
		return "Be friendly and upbeat."
	default:
		return "Keep a neutral, helpful tone."
	}
}

// inferExpertise guesses how familiar the resident is with government processes from
// the vocabulary of their recent messages.
func inferExpertise(texts []string) string {
	novice, expert := 0, 0

	for _, text := range texts {
		text = strings.ToLower(text)
		novice += len(noviceRe.FindAllString(text, -1))
		expert += len(expertRe.FindAllString(text, -1))
	}

	switch {
	case novice > expert:
		return expertiseNovice
	case expert > novice:
		return expertiseExperienced
	default:
		return expertiseIntermediate
	}
}

// fallbackReply is used when the model failed and there is no local answer.
func (s *Service) fallbackReply(t *turn) string {
	var dep *catalog.Department

	if t.service != nil {
		dep, _ = s.cat.Department(t.service.Department)
	}
	if dep == nil {
		if matches := s.cat.MatchDepartments(t.utterance, 1); len(matches) > 0 {
			dep = matches[0]
		}
	}
	if dep == nil {
		dep, _ = s.cat.Department(generalDepartment)
	}

	reply := "I can't put together a full answer right now. Please try again in a moment"
	if dep == nil {
		return reply + ", or call 311."
	}

	reply += ", or contact " + dep.Name + " at " + dep.URL
	if dep.Contact.Phone != "" {
		reply += " or by phone at " + dep.Contact.Phone
	}

	return reply + "."
}
