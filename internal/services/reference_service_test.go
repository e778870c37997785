package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReferenceServiceLoadAndCache(t *testing.T) {
	env := newTestEnv(t)
	env.seedCities()
	ctx := context.Background()

	branch := env.entity(t, "branch")
	idx := env.refs.Index(ctx, testSession, branch)

	assert.Equal(t, "DXB - Dubai", idx.Label("cityId", float64(1)))
	assert.Equal(t, "SHJ - Sharjah", idx.Label("cityId", "2"))
	assert.Equal(t, "Unknown", idx.Label("cityId", 77))
	assert.Equal(t, "Not set", idx.Label("cityId", nil))
	assert.Equal(t, 1, env.provider.Calls("List"))

	// второй раз из кеша
	env.refs.Index(ctx, testSession, branch)
	assert.Equal(t, 1, env.provider.Calls("List"))

	require.NoError(t, env.refs.Invalidate(ctx, testSession.CompanyID, "city"))
	env.refs.Index(ctx, testSession, branch)
	assert.Equal(t, 2, env.provider.Calls("List"))
}

func TestReferenceServiceFailureGivesEmptyList(t *testing.T) {
	env := newTestEnv(t)
	env.provider.ShouldFail = true

	list := env.refs.Index(context.Background(), testSession, env.entity(t, "branch"))["cityId"]
	require.NotNil(t, list)
	assert.Empty(t, list.Options)
	assert.Equal(t, "Unknown", list.Label(1))
}

func TestReferenceListResolve(t *testing.T) {
	list := cityRefs()["cityId"]

	for _, text := range []string{"1", "DXB - Dubai", "dxb", "  dubai "} {
		v, ok := list.Resolve(text)
		assert.True(t, ok, text)
		assert.Equal(t, "1", v, text)
	}
	_, ok := list.Resolve("Paris")
	assert.False(t, ok)

	var missing *ReferenceList
	_, ok = missing.Resolve("1")
	assert.False(t, ok)
	assert.Equal(t, "Unknown", missing.Label(1))
}

func TestReferenceIndexOptionsAreCopies(t *testing.T) {
	idx := cityRefs()
	opts := idx.Options()
	opts["cityId"][0].Label = "changed"
	assert.Equal(t, "DXB - Dubai", idx["cityId"].Options[0].Label)
}
