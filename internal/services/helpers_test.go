package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations/mock"
	"freight-portal/internal/registry"
	"freight-portal/internal/repositories"
	"freight-portal/pkg/config"
	"freight-portal/pkg/customvalidator"
	"freight-portal/pkg/filestorage"
	"freight-portal/pkg/types"
)

var testSession = types.Session{UserID: 7, CompanyID: 3, CompanyName: "Oceanic Freight FZE", Language: "en"}

type testEnv struct {
	registry *registry.Registry
	provider *mock.MockProvider
	refs     ReferenceServiceInterface
	importer ImportServiceInterface
	deps     PageDeps
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	reg := registry.Default()
	provider := mock.NewMockProvider(nil)
	logger := zap.NewNop()
	validate := customvalidator.New().Engine()

	storage, err := filestorage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)

	refs := NewReferenceService(reg, provider, repositories.NewMemoryCacheRepository(), time.Minute, logger)
	importer := NewImportService(provider, refs, repositories.NewNoopImportBatchRepository(), storage, validate, config.ImportConfig{
		Strategy:    config.ImportParallel,
		Concurrency: 4,
	}, logger)

	return &testEnv{
		registry: reg,
		provider: provider,
		refs:     refs,
		importer: importer,
		deps: PageDeps{
			Provider: provider,
			Refs:     refs,
			Importer: importer,
			Validate: validate,
			Logger:   logger,
		},
	}
}

func (e *testEnv) entity(t *testing.T, name string) registry.Entity {
	t.Helper()
	ent, err := e.registry.Get(name)
	require.NoError(t, err)
	return ent
}

func (e *testEnv) seedCities() {
	e.provider.Seed("City",
		entities.Record{"cityId": float64(1), "cityCode": "DXB", "cityName": "Dubai", "countryCode": "AE"},
		entities.Record{"cityId": float64(2), "cityCode": "SHJ", "cityName": "Sharjah", "countryCode": "AE"},
	)
}
