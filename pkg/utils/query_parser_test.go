package utils

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-portal/pkg/types"
)

func TestParseFilterFromQuery(t *testing.T) {
	q, _ := url.ParseQuery("page=3&limit=500&search=+karachi+&sort[startedAt]=DESC&sort[entity]=asc&filter[status]=failed&entity=branch&other=x")

	f := ParseFilterFromQuery(q, "entity")

	assert.Equal(t, MaxLimit, f.Limit)
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, 200, f.Offset)
	assert.Equal(t, "karachi", f.Search)
	assert.Equal(t, []types.SortField{{Field: "entity"}, {Field: "startedAt", Desc: true}}, f.Sort)
	assert.Equal(t, "failed", f.Filter["status"])
	assert.Equal(t, "branch", f.Filter["entity"])
	assert.NotContains(t, f.Filter, "other")
}

func TestParseFilterDefaults(t *testing.T) {
	f := ParseFilterFromQuery(url.Values{})
	assert.Equal(t, DefaultLimit, f.Limit)
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 0, f.Offset)
}

func TestParseFilterDateRange(t *testing.T) {
	q, _ := url.ParseQuery("from=2026-10-01&to=2026-10-19")
	f := ParseFilterFromQuery(q)

	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC), *f.From)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), *f.To)

	q, _ = url.ParseQuery("from=19.10.2026")
	assert.Nil(t, ParseFilterFromQuery(q).From)
}
