package linker

import (
	"errors"
	"testing"

	"govassist/app/service/catalog"
	"govassist/app/service/lexicon"

	"github.com/elliotchance/pie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLinker(t *testing.T) *Linker {
	t.Helper()

	lib, err := lexicon.Default()
	require.NoError(t, err)
	cat, err := catalog.Default()
	require.NoError(t, err)

	l, err := NewLinker(lib, cat)
	require.NoError(t, err)

	return l
}

func stepIDs(steps []Step) []string {
	return pie.Map(steps, func(s Step) string { return s.ID })
}

func TestGenerateServiceChain(t *testing.T) {
	l := newTestLinker(t)

	steps, err := l.GenerateServiceChain("building_permit")
	require.NoError(t, err)
	assert.Equal(t, []string{"contractor_registration", "zoning_verification", "plan_review", "building_permit"}, stepIDs(steps))

	for i, step := range steps {
		assert.Equal(t, i+1, step.Number)
		assert.Equal(t, StepService, step.Kind)
	}
	assert.Equal(t, "contractor_license", steps[0].Provides)
	assert.Equal(t, "/building/permits", steps[3].URL)
	assert.Empty(t, steps[3].Provides)
}

func TestGenerateServiceChainIsShallow(t *testing.T) {
	l := newTestLinker(t)

	steps, err := l.GenerateServiceChain("vehicle_registration")
	require.NoError(t, err)
	require.Equal(t, []string{"vehicle_title", "proof_of_insurance", "emissions_test", "vehicle_registration"}, stepIDs(steps))

	// vehicle_title needs a bill of sale, which stays out of the chain
	assert.NotContains(t, stepIDs(steps), "bill_of_sale")

	assert.Equal(t, StepDocument, steps[1].Kind)
	assert.Equal(t, "Proof of insurance", steps[1].Name)
	assert.Equal(t, "vehicle_title_doc", steps[0].Provides)
}

func TestGenerateServiceChainServicePrerequisite(t *testing.T) {
	l := newTestLinker(t)

	steps, err := l.GenerateServiceChain("residential_parking_permit")
	require.NoError(t, err)
	assert.Equal(t, []string{"vehicle_registration", "water_service_start", "residential_parking_permit"}, stepIDs(steps))
	assert.Empty(t, steps[0].Provides)
	assert.Equal(t, "proof_of_residency", steps[1].Provides)
}

func TestGenerateServiceChainNoPrerequisites(t *testing.T) {
	l := newTestLinker(t)

	steps, err := l.GenerateServiceChain("pothole_report")
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, 1, steps[0].Number)
}

func TestGenerateServiceChainDeduplicates(t *testing.T) {
	cat, err := catalog.Parse([]byte(`
departments:
  - {id: d, name: D, url: /d}
services:
  - {id: issuer, name: Issuer, department: d, url: /issuer}
  - {id: goal, name: Goal, department: d, url: /goal, prerequisites: [doc_a, doc_b, issuer]}
documents:
  - {id: doc_a, name: Doc A, resolved_by: issuer}
  - {id: doc_b, name: Doc B, resolved_by: issuer}
`))
	require.NoError(t, err)
	lib, err := lexicon.Parse([]byte("intents: [{name: a, title: A, examples: [x]}]\nemergency: ['fire']"))
	require.NoError(t, err)

	l, err := NewLinker(lib, cat)
	require.NoError(t, err)

	steps, err := l.GenerateServiceChain("goal")
	require.NoError(t, err)
	assert.Equal(t, []string{"issuer", "goal"}, stepIDs(steps))
	assert.Equal(t, 2, steps[1].Number)
}

func TestGenerateServiceChainUnknown(t *testing.T) {
	l := newTestLinker(t)

	_, err := l.GenerateServiceChain("teleportation")
	require.Error(t, err)
	assert.True(t, errors.Is(err, catalog.ErrUnknownService))
}

func TestSuggestRelatedServices(t *testing.T) {
	l := newTestLinker(t)

	related, err := l.SuggestRelatedServices("building_permit")
	require.NoError(t, err)

	ids := pie.Map(related, func(s *catalog.Service) string { return s.ID })
	assert.Equal(t, []string{"plan_review", "zoning_verification", "business_license"}, ids)

	_, err = l.SuggestRelatedServices("nope")
	assert.True(t, errors.Is(err, catalog.ErrUnknownService))

	for _, svc := range l.cat.Services {
		related, err := l.SuggestRelatedServices(svc.ID)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(related), maxRelated)
		for _, other := range related {
			assert.NotEqual(t, svc.ID, other.ID)
		}
	}
}

func TestExtractAndLink(t *testing.T) {
	l := newTestLinker(t)

	linked := l.ExtractAndLink(lexicon.NewUtterance("where is my application? tracking number TRK12345678"))
	require.Len(t, linked, 1)

	entity := linked[0]
	assert.Equal(t, "trackingNumber", entity.Type)
	assert.Equal(t, "TRK12345678", entity.Value)
	assert.Equal(t, "clerk", entity.Department)
	assert.Equal(t, "track_application", entity.Action)
	assert.Equal(t, "/clerk/status?tracking=TRK12345678", entity.URL)
	assert.Equal(t, "Track application TRK12345678 with the City Clerk.", entity.Instruction)
	assert.Equal(t, "Check the status of application TRK12345678", entity.Suggestion)

	assert.Empty(t, l.ExtractAndLink(lexicon.NewUtterance("hello")))
}

func TestDetectService(t *testing.T) {
	l := newTestLinker(t)
	lib, err := lexicon.Default()
	require.NoError(t, err)

	crime, _ := lib.Intent("reportCrime")
	svc, ok := l.DetectService(lexicon.NewUtterance("anything"), crime)
	require.True(t, ok)
	assert.Equal(t, "police_report", svc.ID)

	svc, ok = l.DetectService(lexicon.NewUtterance("my car registration expired"), nil)
	require.True(t, ok)
	assert.Equal(t, "vehicle_registration", svc.ID)
}

func TestNewLinkerRejectsDanglingReferences(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	lib, err := lexicon.Parse([]byte(`
intents:
  - {name: a, title: A, department: nowhere, examples: [x]}
emergency: ['fire']
`))
	require.NoError(t, err)

	_, err = NewLinker(lib, cat)
	assert.True(t, errors.Is(err, catalog.ErrUnknownDepartment))

	lib, err = lexicon.Parse([]byte(`
intents:
  - {name: a, title: A, service: nothing, examples: [x]}
emergency: ['fire']
`))
	require.NoError(t, err)

	_, err = NewLinker(lib, cat)
	assert.True(t, errors.Is(err, catalog.ErrUnknownService))
}
