package integrations_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freight-portal/internal/integrations"
	"freight-portal/internal/integrations/backend"
	"freight-portal/internal/integrations/mock"
)

func TestProvidersPick(t *testing.T) {
	providers, err := integrations.NewProviders(
		backend.New("http://localhost:5000/api/", 0, zap.NewNop()),
		mock.NewMockProvider(nil),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"mock", "remote"}, providers.Names())

	p, err := providers.Pick("mock")
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = providers.Pick("")
	assert.ErrorContains(t, err, "доступны: mock, remote")
}

func TestProvidersRejectDuplicate(t *testing.T) {
	_, err := integrations.NewProviders(mock.NewMockProvider(nil), mock.NewMockProvider(nil))
	assert.Error(t, err)
}
