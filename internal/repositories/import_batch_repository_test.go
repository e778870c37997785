package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"freight-portal/internal/entities"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

func TestNoopImportBatchRepository(t *testing.T) {
	repo := NewNoopImportBatchRepository()
	ctx := context.Background()

	batch := &entities.ImportBatch{ID: uuid.New(), Entity: "city", StartedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, batch))
	batch.Finish(1, 1, "row 2: bad", time.Now())
	require.NoError(t, repo.Finish(ctx, batch, []entities.ImportRowError{{BatchID: batch.ID, Row: 2, Message: "bad"}}))

	_, _, err := repo.FindByID(ctx, 1, batch.ID)
	assert.ErrorIs(t, err, apperrors.ErrJournalDisabled)
	_, _, err = repo.List(ctx, 1, types.Filter{})
	assert.ErrorIs(t, err, apperrors.ErrJournalDisabled)
}

func TestImportBatchFinishStatus(t *testing.T) {
	b := &entities.ImportBatch{}
	b.Finish(3, 0, "", time.Now())
	assert.Equal(t, entities.ImportStatusCompleted, b.Status)
	assert.False(t, b.FirstError.Valid)

	b.Finish(2, 1, "row 4: dup", time.Now())
	assert.Equal(t, entities.ImportStatusPartial, b.Status)
	assert.Equal(t, "row 4: dup", b.FirstError.String)

	b.Finish(0, 2, "row 2: x", time.Now())
	assert.Equal(t, entities.ImportStatusFailed, b.Status)
	assert.True(t, b.FinishedAt.Valid)
}
