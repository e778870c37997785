package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-portal/internal/entities"
	apperrors "freight-portal/pkg/errors"
)

func TestDefaultRegistryLoads(t *testing.T) {
	r := Default()

	names := r.List()
	assert.Contains(t, names, "branch")
	assert.Contains(t, names, "exchangeRate")
	assert.IsIncreasing(t, names)

	_, err := r.Get("nope")
	assert.True(t, errors.Is(err, apperrors.ErrUnknownEntity))
}

func TestDisplayedFieldsPreserveOrder(t *testing.T) {
	branch, err := Default().Get("branch")
	require.NoError(t, err)

	var names []string
	for _, f := range branch.DisplayedFields() {
		assert.True(t, f.IsDisplayed && f.IsSelected)
		names = append(names, f.FieldName)
	}
	assert.Equal(t, []string{
		"branchCode", "branchName", "cityId", "email", "phone", "address", "isHeadOffice", "isActive",
	}, names)
}

func TestDescriptorsAreCopies(t *testing.T) {
	branch, err := Default().Get("branch")
	require.NoError(t, err)

	d := branch.Descriptors()
	d[1].DisplayName = "changed"

	again, _ := Default().Get("branch")
	f, ok := again.Field(d[1].FieldName)
	require.True(t, ok)
	assert.NotEqual(t, "changed", f.DisplayName)
	assert.NotEqual(t, "changed", branch.Descriptors()[1].DisplayName)
}

func TestReferenceSpec(t *testing.T) {
	r := Default()
	branch, _ := r.Get("branch")
	city, ok := branch.Field("cityId")
	require.True(t, ok)

	spec, err := r.ReferenceSpec(city)
	require.NoError(t, err)
	assert.Equal(t, entities.ReferenceSpec{
		Entity: "city", Endpoint: "City", ValueField: "cityId", CodeField: "cityCode", NameField: "cityName",
	}, spec)

	assert.Contains(t, r.DependentsOf("city"), "branch")
	assert.Contains(t, r.DependentsOf("currency"), "exchangeRate")
}

func TestLoadRejectsDuplicateFields(t *testing.T) {
	doc := []byte(`
entities:
  - name: thing
    endpoint: Thing
    idField: thingId
    fields:
      - { name: code, display: Code, displayed: true, selected: true }
      - { name: code, display: Code again, displayed: true, selected: true }
`)
	_, err := Load(doc)
	assert.ErrorContains(t, err, "описано дважды")
}

func TestLoadRejectsDanglingReference(t *testing.T) {
	doc := []byte(`
entities:
  - name: thing
    endpoint: Thing
    idField: thingId
    fields:
      - { name: ownerId, display: Owner, displayed: true, selected: true, type: reference, reference: owner }
`)
	_, err := Load(doc)
	assert.ErrorContains(t, err, "неизвестную сущность")
}

func TestSamplesFallBackToFieldSamples(t *testing.T) {
	vessel, err := Default().Get("vessel")
	require.NoError(t, err)

	rows := vessel.Samples()
	require.Len(t, rows, 1)
	assert.Equal(t, "MSC Anna", rows[0]["vesselName"])

	branch, _ := Default().Get("branch")
	assert.Len(t, branch.Samples(), 2)
}
