package catalog

import (
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	_ "embed"

	"govassist/app/service/lexicon"

	"github.com/elliotchance/pie/v2"
	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

var (
	ErrUnknownService    = errors.New("unknown service")
	ErrUnknownDepartment = errors.New("unknown department")
)

// Catalog is the read-only reference data: departments, the service/document
// dependency graph, journeys, calendar reminders and per-intent next steps.
type Catalog struct {
	Departments []*Department         `yaml:"departments" validate:"required,dive"`
	Services    []*Service            `yaml:"services" validate:"required,dive"`
	Documents   []*Document           `yaml:"documents" validate:"dive"`
	Journeys    []*Journey            `yaml:"journeys" validate:"dive"`
	Reminders   []*Reminder           `yaml:"reminders" validate:"dive"`
	NextSteps   map[string][]NextStep `yaml:"next_steps" validate:"dive,dive"`

	departmentIndex map[string]*Department
	serviceIndex    map[string]*Service
	documentIndex   map[string]*Document
}

type Department struct {
	ID          string   `yaml:"id" validate:"required"`
	Name        string   `yaml:"name" validate:"required"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url" validate:"required"`
	Keywords    []string `yaml:"keywords"`
	SubPages    []Page   `yaml:"sub_pages" validate:"dive"`
	Contact     Contact  `yaml:"contact"`
}

type Page struct {
	Title string `yaml:"title" validate:"required"`
	URL   string `yaml:"url" validate:"required"`
}

type Contact struct {
	Phone string `yaml:"phone"`
	Email string `yaml:"email"`
	Hours string `yaml:"hours"`
}

// Service is a node of the dependency graph. Prerequisites may name services or
// documents; CommonNext and Related name services.
type Service struct {
	ID            string   `yaml:"id" validate:"required"`
	Name          string   `yaml:"name" validate:"required"`
	Department    string   `yaml:"department" validate:"required"`
	URL           string   `yaml:"url" validate:"required"`
	Query         string   `yaml:"query"`
	Keywords      []string `yaml:"keywords"`
	Prerequisites []string `yaml:"prerequisites"`
	CommonNext    []string `yaml:"common_next"`
	Related       []string `yaml:"related"`
	Weight        float64  `yaml:"weight" validate:"gte=0"`
}

// Document is something a citizen must hold. ResolvedBy names the service that issues
// it; it is empty for documents obtained outside the city.
type Document struct {
	ID         string `yaml:"id" validate:"required"`
	Name       string `yaml:"name" validate:"required"`
	ResolvedBy string `yaml:"resolved_by"`
}

type Journey struct {
	ID       string   `yaml:"id" validate:"required"`
	Name     string   `yaml:"name" validate:"required"`
	Triggers []string `yaml:"triggers" validate:"required,min=1"`
	Steps    []string `yaml:"steps" validate:"required,min=1"`
}

type Reminder struct {
	Month      time.Month `yaml:"month" validate:"min=1,max=12"`
	Day        int        `yaml:"day" validate:"min=1,max=31"`
	Text       string     `yaml:"text" validate:"required"`
	Query      string     `yaml:"query" validate:"required"`
	Department string     `yaml:"department"`
}

type NextStep struct {
	Text  string `yaml:"text" validate:"required"`
	Query string `yaml:"query" validate:"required"`
}

func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Parse(defaultCatalog)
	})

	return defaultCat, defaultErr
}

// Parse decodes the catalogue and checks that every graph reference resolves.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, oops.In("catalog").Errorf("failed to parse catalog: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(&cat); err != nil {
		return nil, oops.In("catalog").Errorf("failed to validate catalog: %w", err)
	}

	if err := cat.index(); err != nil {
		return nil, err
	}

	return &cat, nil
}

func (c *Catalog) index() error {
	errb := oops.In("catalog")

	c.departmentIndex = make(map[string]*Department, len(c.Departments))
	for _, dep := range c.Departments {
		if _, ok := c.departmentIndex[dep.ID]; ok {
			return errb.With("department", dep.ID).Errorf("duplicate department")
		}
		c.departmentIndex[dep.ID] = dep
	}

	c.serviceIndex = make(map[string]*Service, len(c.Services))
	for _, svc := range c.Services {
		if _, ok := c.serviceIndex[svc.ID]; ok {
			return errb.With("service", svc.ID).Errorf("duplicate service")
		}
		if _, ok := c.departmentIndex[svc.Department]; !ok {
			return errb.With("service", svc.ID, "department", svc.Department).Wrap(ErrUnknownDepartment)
		}
		if svc.Query == "" {
			svc.Query = strings.ToLower(svc.Name)
		}
		if svc.Weight == 0 {
			svc.Weight = 1
		}
		c.serviceIndex[svc.ID] = svc
	}

	c.documentIndex = make(map[string]*Document, len(c.Documents))
	for _, doc := range c.Documents {
		if _, ok := c.documentIndex[doc.ID]; ok {
			return errb.With("document", doc.ID).Errorf("duplicate document")
		}
		if _, ok := c.serviceIndex[doc.ID]; ok {
			return errb.With("document", doc.ID).Errorf("document id collides with a service")
		}
		if doc.ResolvedBy != "" {
			if _, ok := c.serviceIndex[doc.ResolvedBy]; !ok {
				return errb.With("document", doc.ID, "resolved_by", doc.ResolvedBy).Wrap(ErrUnknownService)
			}
		}
		c.documentIndex[doc.ID] = doc
	}

	for _, svc := range c.Services {
		for _, id := range svc.Prerequisites {
			_, isService := c.serviceIndex[id]
			_, isDocument := c.documentIndex[id]
			if !isService && !isDocument {
				return errb.With("service", svc.ID, "prerequisite", id).Errorf("unknown prerequisite")
			}
		}
		for _, id := range slices.Concat(svc.CommonNext, svc.Related) {
			if _, ok := c.serviceIndex[id]; !ok {
				return errb.With("service", svc.ID, "reference", id).Wrap(ErrUnknownService)
			}
		}
	}

	for _, journey := range c.Journeys {
		for _, id := range journey.Steps {
			if _, ok := c.serviceIndex[id]; !ok {
				return errb.With("journey", journey.ID, "step", id).Wrap(ErrUnknownService)
			}
		}
	}

	for _, reminder := range c.Reminders {
		if reminder.Department == "" {
			continue
		}
		if _, ok := c.departmentIndex[reminder.Department]; !ok {
			return errb.With("reminder", reminder.Text, "department", reminder.Department).Wrap(ErrUnknownDepartment)
		}
	}

	return nil
}

func (c *Catalog) Department(id string) (*Department, bool) {
	dep, ok := c.departmentIndex[id]
	return dep, ok
}

func (c *Catalog) Service(id string) (*Service, bool) {
	svc, ok := c.serviceIndex[id]
	return svc, ok
}

func (c *Catalog) Document(id string) (*Document, bool) {
	doc, ok := c.documentIndex[id]
	return doc, ok
}

func (c *Catalog) ServicesOf(departmentID string) []*Service {
	return pie.Filter(c.Services, func(svc *Service) bool {
		return svc.Department == departmentID
	})
}

func (c *Catalog) RemindersFor(month time.Month) []*Reminder {
	return pie.Filter(c.Reminders, func(r *Reminder) bool {
		return r.Month == month
	})
}

func (c *Catalog) NextStepsFor(intent string) []NextStep {
	return c.NextSteps[intent]
}

// MatchDepartments ranks departments by keyword hits in the utterance and returns at
// most limit of them. Ties keep catalogue order.
func (c *Catalog) MatchDepartments(u lexicon.Utterance, limit int) []*Department {
	type scored struct {
		dep   *Department
		score int
	}

	var candidates []scored
	for _, dep := range c.Departments {
		if score := keywordScore(u, dep.Keywords); score > 0 {
			candidates = append(candidates, scored{dep: dep, score: score})
		}
	}

	candidates = pie.SortStableUsing(candidates, func(a, b scored) bool {
		return a.score > b.score
	})

	return pie.Map(pie.Top(candidates, limit), func(s scored) *Department {
		return s.dep
	})
}

// DetectService returns the service whose keywords best match the utterance.
func (c *Catalog) DetectService(u lexicon.Utterance) (*Service, bool) {
	var (
		best      *Service
		bestScore int
	)

	for _, svc := range c.Services {
		if score := keywordScore(u, svc.Keywords); score > bestScore {
			best, bestScore = svc, score
		}
	}

	return best, best != nil
}

// keywordScore counts keywords present in the utterance. Multi-word keywords match as
// phrases and count double.
func keywordScore(u lexicon.Utterance, keywords []string) int {
	text := " " + u.Text() + " "
	stems := u.Stems()

	score := 0
	for _, keyword := range keywords {
		keyword = strings.ToLower(keyword)

		if strings.Contains(keyword, " ") {
			if strings.Contains(text, " "+keyword) {
				score += 2
			}
			continue
		}

		if pie.Contains(stems, lexicon.Stem(keyword)) {
			score++
		}
	}

	return score
}
