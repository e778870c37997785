package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/repositories"
	"freight-portal/pkg/config"
	"freight-portal/pkg/customvalidator"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/filestorage"
	"freight-portal/pkg/types"
)

// memoryJournal хранит пакеты в памяти; failCreate имитирует недоступную базу.
type memoryJournal struct {
	batches    map[uuid.UUID]entities.ImportBatch
	failCreate bool
}

func newMemoryJournal() *memoryJournal {
	return &memoryJournal{batches: make(map[uuid.UUID]entities.ImportBatch)}
}

func (m *memoryJournal) Create(_ context.Context, b *entities.ImportBatch) error {
	if m.failCreate {
		return errors.New("connection refused")
	}
	m.batches[b.ID] = *b
	return nil
}

func (m *memoryJournal) Finish(_ context.Context, b *entities.ImportBatch, _ []entities.ImportRowError) error {
	m.batches[b.ID] = *b
	return nil
}

func (m *memoryJournal) FindByID(_ context.Context, companyID uint64, id uuid.UUID) (*entities.ImportBatch, []entities.ImportRowError, error) {
	b, ok := m.batches[id]
	if !ok || b.CompanyID != companyID {
		return nil, nil, apperrors.ErrNotFound
	}
	return &b, nil, nil
}

func (m *memoryJournal) List(context.Context, uint64, types.Filter) ([]entities.ImportBatch, uint64, error) {
	return nil, 0, nil
}

var _ repositories.ImportBatchRepositoryInterface = (*memoryJournal)(nil)

func TestImportJournalOpenFile(t *testing.T) {
	storage, err := filestorage.NewLocalFileStorage(t.TempDir())
	require.NoError(t, err)
	path, err := storage.Save(strings.NewReader("xlsx-bytes"), "cities.xlsx", "imports/city")
	require.NoError(t, err)

	journal := newMemoryJournal()
	id := uuid.New()
	journal.batches[id] = entities.ImportBatch{ID: id, CompanyID: 3, FileName: "cities.xlsx", StoredPath: null.StringFrom(path)}
	noFile := uuid.New()
	journal.batches[noFile] = entities.ImportBatch{ID: noFile, CompanyID: 3, FileName: "lost.xlsx"}

	svc := NewImportJournalService(journal, storage, zap.NewNop())

	file, name, err := svc.OpenFile(context.Background(), testSession, id.String())
	require.NoError(t, err)
	defer file.Close()
	body, _ := io.ReadAll(file)
	assert.Equal(t, "xlsx-bytes", string(body))
	assert.Equal(t, "cities.xlsx", name)

	_, _, err = svc.OpenFile(context.Background(), testSession, noFile.String())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = svc.OpenFile(context.Background(), types.Session{UserID: 1, CompanyID: 99}, id.String())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, _, err = svc.OpenFile(context.Background(), testSession, "not-a-uuid")
	var badReq *apperrors.HttpError
	assert.ErrorAs(t, err, &badReq)
}

func TestImportArchivesFileOnlyWhenJournaled(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	storage, err := filestorage.NewLocalFileStorage(dir)
	require.NoError(t, err)

	journal := newMemoryJournal()
	journal.failCreate = true
	importer := NewImportService(env.provider, env.refs, journal, storage, customvalidator.New().Engine(), config.ImportConfig{
		Strategy: config.ImportSequential, Concurrency: 1,
	}, zap.NewNop())

	file := workbook(t,
		[]interface{}{"City Code", "City Name", "Country Code"},
		[]interface{}{"KHI", "Karachi", "PK"},
	)
	result, err := importer.Import(context.Background(), testSession, env.entity(t, "city"), file, "cities.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Succeeded)

	var files []string
	_ = filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	assert.Empty(t, files, "файл без записи в журнале не должен оставаться в архиве")

	journal.failCreate = false
	file = workbook(t,
		[]interface{}{"City Code", "City Name", "Country Code"},
		[]interface{}{"LHE", "Lahore", "PK"},
	)
	result, err = importer.Import(context.Background(), testSession, env.entity(t, "city"), file, "cities.xlsx")
	require.NoError(t, err)

	id, err := uuid.Parse(result.BatchID)
	require.NoError(t, err)
	stored := journal.batches[id]
	require.True(t, stored.StoredPath.Valid)
	assert.Equal(t, entities.ImportStatusCompleted, stored.Status)
	assert.WithinDuration(t, time.Now(), stored.StartedAt, time.Minute)
}
