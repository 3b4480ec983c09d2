package linker

import (
	"strings"

	"govassist/app/service/catalog"
	"govassist/app/service/lexicon"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
	"github.com/samber/oops"
)

const maxRelated = 3

// LinkedEntity is an extracted entity bound to the department and page that act on it.
type LinkedEntity struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Department  string `json:"department"`
	Action      string `json:"action"`
	URL         string `json:"url"`
	Instruction string `json:"instruction"`
	Suggestion  string `json:"suggestion"`
}

type Linker struct {
	lib *lexicon.Library
	cat *catalog.Catalog
}

func New(di *do.Injector) (*Linker, error) {
	return NewLinker(
		do.MustInvoke[*lexicon.Library](di),
		do.MustInvoke[*catalog.Catalog](di),
	)
}

// NewLinker checks that every department and service the pattern library points at
// exists in the catalogue.
func NewLinker(lib *lexicon.Library, cat *catalog.Catalog) (*Linker, error) {
	errb := oops.In("linker")

	for _, intent := range lib.Intents {
		if intent.Department != "" {
			if _, ok := cat.Department(intent.Department); !ok {
				return nil, errb.With("intent", intent.Name, "department", intent.Department).Wrap(catalog.ErrUnknownDepartment)
			}
		}
		if intent.Service != "" {
			if _, ok := cat.Service(intent.Service); !ok {
				return nil, errb.With("intent", intent.Name, "service", intent.Service).Wrap(catalog.ErrUnknownService)
			}
		}
	}

	for _, entity := range lib.Entities {
		if _, ok := cat.Department(entity.Department); !ok {
			return nil, errb.With("entity", entity.Type, "department", entity.Department).Wrap(catalog.ErrUnknownDepartment)
		}
	}

	return &Linker{
		lib: lib,
		cat: cat,
	}, nil
}

func (l *Linker) ExtractAndLink(u lexicon.Utterance) []LinkedEntity {
	return l.Link(l.lib.ExtractEntities(u))
}

// Link binds already extracted entities, filling {value} in their templates.
func (l *Linker) Link(matches []lexicon.EntityMatch) []LinkedEntity {
	return pie.Map(matches, func(match lexicon.EntityMatch) LinkedEntity {
		pattern := match.Pattern
		if pattern == nil {
			pattern, _ = l.lib.EntityPattern(match.Type)
		}
		if pattern == nil {
			return LinkedEntity{Type: match.Type, Value: match.Value}
		}

		fill := strings.NewReplacer("{value}", match.Value)

		return LinkedEntity{
			Type:        match.Type,
			Label:       pattern.Label,
			Value:       match.Value,
			Department:  pattern.Department,
			Action:      pattern.Action,
			URL:         fill.Replace(pattern.URL),
			Instruction: fill.Replace(pattern.Instruction),
			Suggestion:  fill.Replace(pattern.Suggestion),
		}
	})
}

// DetectService names the service a turn is about: the classified intent's own service
// first, then keyword matching over the catalogue.
func (l *Linker) DetectService(u lexicon.Utterance, intent *lexicon.Intent) (*catalog.Service, bool) {
	if intent != nil && intent.Service != "" {
		if svc, ok := l.cat.Service(intent.Service); ok {
			return svc, true
		}
	}

	return l.cat.DetectService(u)
}

// SuggestRelatedServices returns the service's declared related services followed by
// siblings that share its department or a prerequisite, heavier first.
func (l *Linker) SuggestRelatedServices(serviceID string) ([]*catalog.Service, error) {
	svc, ok := l.cat.Service(serviceID)
	if !ok {
		return nil, oops.In("linker").With("service", serviceID).Wrap(catalog.ErrUnknownService)
	}

	seen := map[string]struct{}{svc.ID: {}}
	var result []*catalog.Service

	for _, id := range svc.Related {
		if _, dup := seen[id]; dup {
			continue
		}
		if related, ok := l.cat.Service(id); ok {
			seen[id] = struct{}{}
			result = append(result, related)
		}
	}

	siblings := pie.Filter(l.cat.Services, func(other *catalog.Service) bool {
		if _, dup := seen[other.ID]; dup {
			return false
		}

		return other.Department == svc.Department || sharesAny(other.Prerequisites, svc.Prerequisites)
	})
	siblings = pie.SortStableUsing(siblings, func(a, b *catalog.Service) bool {
		return a.Weight > b.Weight
	})

	return pie.Top(append(result, siblings...), maxRelated), nil
}

func sharesAny(a, b []string) bool {
	for _, x := range a {
		if pie.Contains(b, x) {
			return true
		}
	}

	return false
}
