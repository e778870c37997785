package repositories

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/pkg/database/postgresql"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

var testPool *pgxpool.Pool

// TestMain поднимает пул к тестовой БД, если задан TEST_DATABASE_URL,
// и накатывает миграции журнала. Без переменной интеграционные тесты пропускаются.
func TestMain(m *testing.M) {
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		pool, err := postgresql.ConnectDB(context.Background(), dsn, zap.NewNop())
		if err != nil {
			log.Fatalf("Не удалось подключиться к тестовой БД: %v", err)
		}
		if err := postgresql.Migrate(pool, zap.NewNop()); err != nil {
			log.Fatalf("Не удалось применить миграции: %v", err)
		}
		testPool = pool
	}

	code := m.Run()
	if testPool != nil {
		testPool.Close()
	}
	os.Exit(code)
}

func cleanupJournal(t *testing.T) {
	t.Helper()
	if testPool == nil {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	_, err := testPool.Exec(context.Background(), `TRUNCATE TABLE import_row_errors, import_batches`)
	require.NoError(t, err, "Не удалось очистить таблицы")
}

func TestImportBatchRepository_Integration_Lifecycle(t *testing.T) {
	cleanupJournal(t)
	repo := NewImportBatchRepository(testPool, NewTxManager(testPool), zap.NewNop())
	ctx := context.Background()

	batch := &entities.ImportBatch{
		ID:        uuid.New(),
		Entity:    "city",
		CompanyID: 3,
		UserID:    7,
		FileName:  "cities.xlsx",
		Strategy:  "parallel",
		TotalRows: 3,
		Status:    entities.ImportStatusRunning,
		StartedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, repo.Create(ctx, batch))

	batch.Finish(2, 1, "row 3: duplicate", time.Now().UTC())
	require.NoError(t, repo.Finish(ctx, batch, []entities.ImportRowError{{BatchID: batch.ID, Row: 3, Message: "duplicate"}}))

	got, rowErrors, err := repo.FindByID(ctx, 3, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.ImportStatusPartial, got.Status)
	assert.Equal(t, 2, got.Succeeded)
	assert.Equal(t, "row 3: duplicate", got.FirstError.String)
	assert.True(t, got.FinishedAt.Valid)
	require.Len(t, rowErrors, 1)
	assert.Equal(t, 3, rowErrors[0].Row)

	// чужая компания пакет не видит
	_, _, err = repo.FindByID(ctx, 4, batch.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestImportBatchRepository_Integration_ListFilters(t *testing.T) {
	cleanupJournal(t)
	repo := NewImportBatchRepository(testPool, NewTxManager(testPool), zap.NewNop())
	ctx := context.Background()

	for i, entity := range []string{"city", "city", "branch"} {
		b := &entities.ImportBatch{
			ID: uuid.New(), Entity: entity, CompanyID: 3, UserID: 7, FileName: "f.xlsx",
			Strategy: "parallel", Status: entities.ImportStatusCompleted,
			StartedAt: time.Now().UTC().Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.Create(ctx, b))
	}

	list, total, err := repo.List(ctx, 3, types.Filter{
		Filter:         map[string]interface{}{"entity": "city"},
		Limit:          10,
		WithPagination: true,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Len(t, list, 2)

	future := time.Now().UTC().Add(time.Hour)
	_, total, err = repo.List(ctx, 3, types.Filter{From: &future, Limit: 10, WithPagination: true})
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = repo.List(ctx, 99, types.Filter{Limit: 10, WithPagination: true})
	require.NoError(t, err)
	assert.Zero(t, total)
}
