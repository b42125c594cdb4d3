package converter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/David-Botos/crm-import/pkg/ingest"
	"github.com/David-Botos/crm-import/pkg/model"
)

func newConverter(t *testing.T, kind model.Kind, source Source, m Mapping) *RowConverter {
	t.Helper()
	c, err := New(kind, source, m, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestCapsuleContact(t *testing.T) {
	c := newConverter(t, model.KindContact, SourceCapsule, nil)

	t.Run("first and last name are joined", func(t *testing.T) {
		e, ok := c.Transform(ingest.Row{
			"First Name":    "Ann",
			"Last Name":     "Lee",
			"Organisation":  "Acme",
			"Work Email":    "ann@acme.test",
			"Direct Phone":  "555-1",
			"Work Phone":    "555-2",
			"About":         "Met at expo",
			"History":       "Called twice",
			"Tags":          " vip ; lead;;vip ",
			"Email Address": "",
		}, 1)
		require.True(t, ok)
		assert.Equal(t, "Ann Lee", e.Name())
		assert.Equal(t, "ann@acme.test", e.Fields.Get(model.FieldEmail))
		assert.Equal(t, "555-1", e.Fields.Get(model.FieldPhone))
		assert.Equal(t, "Acme", e.Fields.Get(model.FieldOrganisation))
		assert.Equal(t, "Met at expo\n\nCalled twice", e.Fields.Get(model.FieldNotes))
		assert.Equal(t, []string{"vip", "lead"}, e.Tags)
	})

	t.Run("organisation is the name without both name parts", func(t *testing.T) {
		e, ok := c.Transform(ingest.Row{"First Name": "Ann", "Organisation": "Acme"}, 2)
		require.True(t, ok)
		assert.Equal(t, "Acme", e.Name())
	})

	t.Run("only a first name leaves the name empty and skips", func(t *testing.T) {
		_, ok := c.Transform(ingest.Row{"First Name": "Ann"}, 3)
		assert.False(t, ok)
	})

	t.Run("no identity columns skips", func(t *testing.T) {
		_, ok := c.Transform(ingest.Row{"Email Address": "x@y.test"}, 4)
		assert.False(t, ok)
	})
}

func TestCapsuleOpportunityAndProject(t *testing.T) {
	opp := newConverter(t, model.KindOpportunity, SourceCapsule, nil)
	e, ok := opp.Transform(ingest.Row{
		"Opportunity Name": "Renewal",
		"Milestone":        "Won",
		"Estimated Value":  "1200",
		"Currency":         "GBP",
		"Contact Name":     "Ann Lee",
	}, 1)
	require.True(t, ok)
	assert.Equal(t, model.KindOpportunity, e.Kind)
	assert.Equal(t, "Won", e.Fields.Get(model.FieldStatus))
	assert.Equal(t, "1200", e.Fields.Get(model.FieldValue))
	assert.Equal(t, "Ann Lee", e.ContactName)
	assert.Len(t, e.Fields, len(model.FieldsFor(model.KindOpportunity)))

	_, ok = opp.Transform(ingest.Row{"Milestone": "Lost"}, 2)
	assert.False(t, ok)

	proj := newConverter(t, model.KindProject, SourceCapsule, nil)
	e, ok = proj.Transform(ingest.Row{"Project Name": "Fit-out", "Closed Date": "2024-01-02"}, 1)
	require.True(t, ok)
	assert.Equal(t, "2024-01-02", e.Fields.Get(model.FieldClosedDate))
	assert.Equal(t, "", e.ContactName)
}

func TestCustomMapping(t *testing.T) {
	c := newConverter(t, model.KindContact, SourceCustom, Mapping{
		"name":  "Full Name",
		"email": "Email",
		"tags":  "Labels",
	})

	e, ok := c.Transform(ingest.Row{"Full Name": "Ann", "Email": "a@x.com", "Labels": "a, b ,,c"}, 1)
	require.True(t, ok)
	assert.Equal(t, "Ann", e.Name())
	assert.Equal(t, "a@x.com", e.Fields.Get(model.FieldEmail))
	assert.Equal(t, "", e.Fields.Get(model.FieldPhone), "unmapped field is empty, not an error")
	assert.Equal(t, []string{"a", "b", "c"}, e.Tags)

	_, ok = c.Transform(ingest.Row{"Full Name": "", "Email": "b@x.com"}, 2)
	assert.False(t, ok)

	_, ok = c.Transform(ingest.Row{}, 3)
	assert.False(t, ok)
}

func TestCustomMappingContactReference(t *testing.T) {
	c := newConverter(t, model.KindProject, SourceCustom, Mapping{"name": "Title", "contact": "Owner"})
	e, ok := c.Transform(ingest.Row{"Title": "Roof", "Owner": "Ann Lee"}, 1)
	require.True(t, ok)
	assert.Equal(t, "Ann Lee", e.ContactName)
}

func TestNewRejectsUnknownInputs(t *testing.T) {
	_, err := New(model.Kind("invoice"), SourceCustom, nil, nil)
	assert.Error(t, err)
	_, err = New(model.KindContact, Source("hubspot"), nil, nil)
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("")
	require.NoError(t, err)
	assert.Equal(t, SourceCustom, s)

	s, err = ParseSource("capsule")
	require.NoError(t, err)
	assert.Equal(t, SourceCapsule, s)

	_, err = ParseSource("salesforce")
	assert.Error(t, err)
}

func TestSplitTags(t *testing.T) {
	assert.Nil(t, SplitTags("", ";"))
	assert.Nil(t, SplitTags(" ; ;", ";"))
	assert.Equal(t, []string{"VIP", "vip"}, SplitTags("VIP;vip", ";"))
}

func TestMapping(t *testing.T) {
	t.Run("loads yaml", func(t *testing.T) {
		m, err := LoadMapping(strings.NewReader("name: Full Name\nemail: Email\ntags: Labels\n"))
		require.NoError(t, err)
		assert.Equal(t, Mapping{"name": "Full Name", "email": "Email", "tags": "Labels"}, m)
		assert.NoError(t, m.Validate(model.KindContact))
	})

	t.Run("loads json", func(t *testing.T) {
		m, err := LoadMapping(strings.NewReader(`{"name": "Deal", "status": "Stage"}`))
		require.NoError(t, err)
		assert.Equal(t, "Stage", m["status"])
		assert.NoError(t, m.Validate(model.KindOpportunity))
	})

	t.Run("empty document is an empty mapping", func(t *testing.T) {
		m, err := LoadMapping(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("unknown keys fail validation", func(t *testing.T) {
		m := Mapping{"name": "Name", "probability": "P"}
		assert.Error(t, m.Validate(model.KindContact))
		assert.Error(t, Mapping{"contact": "Owner"}.Validate(model.KindContact))
	})

	t.Run("malformed yaml errors", func(t *testing.T) {
		_, err := LoadMapping(strings.NewReader("name: [unclosed"))
		assert.Error(t, err)
	})
}
