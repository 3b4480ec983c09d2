package linker

import (
	"govassist/app/service/catalog"

	"github.com/samber/oops"
)

type StepKind string

const (
	StepService  StepKind = "service"
	StepDocument StepKind = "document"
)

// Step is one numbered item of a service chain. Provides names the document a service
// step yields when it was added to satisfy a document prerequisite.
type Step struct {
	Number     int      `json:"number"`
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Kind       StepKind `json:"kind"`
	URL        string   `json:"url,omitempty"`
	Department string   `json:"department,omitempty"`
	Provides   string   `json:"provides,omitempty"`
}

// GenerateServiceChain lists what to do, in order, to obtain the goal service. Only the
// goal's direct prerequisites are expanded: a prerequisite's own prerequisites are not
// followed. Document prerequisites become the service that issues them, or stay as a
// document step when nothing in the city issues them. The goal is always the last step.
func (l *Linker) GenerateServiceChain(goalID string) ([]Step, error) {
	goal, ok := l.cat.Service(goalID)
	if !ok {
		return nil, oops.In("linker").With("service", goalID).Wrap(catalog.ErrUnknownService)
	}

	seen := map[string]struct{}{goal.ID: {}}
	var steps []Step

	add := func(step Step) {
		if _, dup := seen[step.ID]; dup {
			return
		}
		seen[step.ID] = struct{}{}
		steps = append(steps, step)
	}

	for _, id := range goal.Prerequisites {
		if svc, ok := l.cat.Service(id); ok {
			add(serviceStep(svc, ""))
			continue
		}

		doc, ok := l.cat.Document(id)
		if !ok {
			return nil, oops.In("linker").With("service", goal.ID, "prerequisite", id).Errorf("unknown prerequisite")
		}

		if doc.ResolvedBy != "" {
			if svc, ok := l.cat.Service(doc.ResolvedBy); ok {
				add(serviceStep(svc, doc.ID))
				continue
			}
		}

		add(Step{
			ID:   doc.ID,
			Name: doc.Name,
			Kind: StepDocument,
		})
	}

	steps = append(steps, serviceStep(goal, ""))

	for i := range steps {
		steps[i].Number = i + 1
	}

	return steps, nil
}

func serviceStep(svc *catalog.Service, provides string) Step {
	return Step{
		ID:         svc.ID,
		Name:       svc.Name,
		Kind:       StepService,
		URL:        svc.URL,
		Department: svc.Department,
		Provides:   provides,
	}
}
