package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"time"

	"github.com/aarondl/null/v8"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	"freight-portal/internal/registry"
	"freight-portal/internal/repositories"
	"freight-portal/pkg/config"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/filestorage"
	"freight-portal/pkg/types"
)

type ImportServiceInterface interface {
	Import(ctx context.Context, session types.Session, entity registry.Entity, file io.Reader, fileName string) (ImportResult, error)
}

type ImportService struct {
	provider integrations.RecordProvider
	refs     ReferenceServiceInterface
	journal  repositories.ImportBatchRepositoryInterface
	storage  filestorage.FileStorageInterface
	validate *validator.Validate
	cfg      config.ImportConfig
	logger   *zap.Logger
	now      func() time.Time
}

func NewImportService(
	provider integrations.RecordProvider,
	refs ReferenceServiceInterface,
	journal repositories.ImportBatchRepositoryInterface,
	storage filestorage.FileStorageInterface,
	validate *validator.Validate,
	cfg config.ImportConfig,
	logger *zap.Logger,
) ImportServiceInterface {
	return &ImportService{
		provider: provider,
		refs:     refs,
		journal:  journal,
		storage:  storage,
		validate: validate,
		cfg:      cfg,
		logger:   logger.Named("import"),
		now:      time.Now,
	}
}

// strategyLimit: sequential — одна строка за раз, parallel — по конфигу.
func (s *ImportService) strategyLimit(entity registry.Entity) (string, int) {
	strategy := entity.Strategy()
	if strategy == "" {
		strategy = s.cfg.Strategy
	}
	if strategy == config.ImportSequential {
		return config.ImportSequential, 1
	}
	return config.ImportParallel, s.cfg.Concurrency
}

// Import разбирает файл, отправляет строки и пишет итог в журнал.
// Ошибка возвращается только если до отправки строк дело не дошло.
func (s *ImportService) Import(ctx context.Context, session types.Session, entity registry.Entity, file io.Reader, fileName string) (ImportResult, error) {
	raw, err := io.ReadAll(file)
	if err != nil {
		return ImportResult{}, err
	}

	rows, err := ReadRows(bytes.NewReader(raw))
	if err != nil {
		return ImportResult{}, err
	}
	if len(rows) < 2 {
		return ImportResult{}, apperrors.ErrEmptyWorkbook
	}

	mapping, err := MapHeader(entity, rows[0])
	if err != nil {
		return ImportResult{}, err
	}

	refs := s.refs.Index(ctx, session, entity)
	prepared, rowErrs := BuildImportRows(entity, mapping, rows[1:], refs, session)

	// строки, не прошедшие правила формы, на бэкенд не отправляем
	valid := prepared[:0]
	for _, row := range prepared {
		if err := validateRecord(s.validate, entity, row.Record); err != nil {
			rowErrs = append(rowErrs, RowError{Row: row.Line, Message: validationSummary(err)})
			continue
		}
		valid = append(valid, row)
	}

	if len(valid) == 0 && len(rowErrs) == 0 {
		return ImportResult{}, apperrors.ErrEmptyWorkbook
	}

	strategy, limit := s.strategyLimit(entity)
	batch := &entities.ImportBatch{
		ID:        uuid.New(),
		Entity:    entity.Name(),
		CompanyID: session.CompanyID,
		UserID:    session.UserID,
		FileName:  fileName,
		Strategy:  strategy,
		TotalRows: len(valid) + len(rowErrs),
		Status:    entities.ImportStatusRunning,
		StartedAt: s.now().UTC(),
	}
	if path, err := s.storage.Save(bytes.NewReader(raw), fileName, "imports/"+entity.Name()); err != nil {
		s.logger.Warn("Не удалось сохранить файл импорта", zap.String("file", fileName), zap.Error(err))
	} else {
		batch.StoredPath = null.StringFrom(path)
	}
	if err := s.journal.Create(ctx, batch); err != nil {
		s.logger.Error("Не удалось записать пакет в журнал", zap.String("batchID", batch.ID.String()), zap.Error(err))
		// без записи в журнале архивный файл никому не найти
		if batch.StoredPath.Valid {
			if err := s.storage.Delete(batch.StoredPath.String); err != nil {
				s.logger.Warn("Не удалось удалить файл импорта", zap.String("path", batch.StoredPath.String), zap.Error(err))
			}
			batch.StoredPath = null.String{}
		}
	}

	submitter := NewBatchSubmitter(s.provider, limit, s.logger)
	result := submitter.Submit(ctx, entity.Endpoint(), valid)
	result.BatchID = batch.ID.String()
	result.Total = batch.TotalRows
	result.Failed += len(rowErrs)
	result.Errors = mergeRowErrors(result.Errors, rowErrs)

	batch.Finish(result.Succeeded, result.Failed, result.FirstError(), s.now().UTC())
	journalErrs := make([]entities.ImportRowError, 0, len(result.Errors))
	for _, e := range result.Errors {
		journalErrs = append(journalErrs, entities.ImportRowError{BatchID: batch.ID, Row: e.Row, Message: e.Message})
	}
	// журнал не должен ломать уже выполненный импорт
	if err := s.journal.Finish(context.WithoutCancel(ctx), batch, journalErrs); err != nil {
		s.logger.Error("Не удалось обновить пакет в журнале", zap.String("batchID", batch.ID.String()), zap.Error(err))
	}

	s.logger.Info("Импорт завершён",
		zap.String("entity", entity.Name()),
		zap.Uint64("companyID", session.CompanyID),
		zap.String("strategy", strategy),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func mergeRowErrors(a, b []RowError) []RowError {
	out := make([]RowError, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	sortRowErrors(out)
	return out
}

func validationSummary(err error) string {
	var ve *apperrors.ValidationError
	if errors.As(err, &ve) {
		return joinFieldMessages(ve.Fields)
	}
	return err.Error()
}
