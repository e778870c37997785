package services

import (
	"context"
	"io"
	"path"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/repositories"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/filestorage"
	"freight-portal/pkg/types"
)

// ImportBatchDetails — пакет журнала с ошибками строк.
type ImportBatchDetails struct {
	entities.ImportBatch
	Errors []entities.ImportRowError `json:"errors"`
}

type ImportJournalServiceInterface interface {
	List(ctx context.Context, session types.Session, filter types.Filter) ([]entities.ImportBatch, uint64, error)
	Get(ctx context.Context, session types.Session, id string) (*ImportBatchDetails, error)
	OpenFile(ctx context.Context, session types.Session, id string) (io.ReadCloser, string, error)
}

type ImportJournalService struct {
	repo    repositories.ImportBatchRepositoryInterface
	storage filestorage.FileStorageInterface
	logger  *zap.Logger
}

func NewImportJournalService(repo repositories.ImportBatchRepositoryInterface, storage filestorage.FileStorageInterface, logger *zap.Logger) ImportJournalServiceInterface {
	return &ImportJournalService{repo: repo, storage: storage, logger: logger}
}

func (s *ImportJournalService) List(ctx context.Context, session types.Session, filter types.Filter) ([]entities.ImportBatch, uint64, error) {
	return s.repo.List(ctx, session.CompanyID, filter)
}

func (s *ImportJournalService) Get(ctx context.Context, session types.Session, id string) (*ImportBatchDetails, error) {
	batchID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperrors.NewBadRequestError("неверный идентификатор пакета импорта")
	}
	batch, rowErrors, err := s.repo.FindByID(ctx, session.CompanyID, batchID)
	if err != nil {
		return nil, err
	}
	return &ImportBatchDetails{ImportBatch: *batch, Errors: rowErrors}, nil
}

// OpenFile отдаёт исходный файл пакета и имя, под которым его загрузили.
func (s *ImportJournalService) OpenFile(ctx context.Context, session types.Session, id string) (io.ReadCloser, string, error) {
	details, err := s.Get(ctx, session, id)
	if err != nil {
		return nil, "", err
	}
	if !details.StoredPath.Valid {
		return nil, "", apperrors.ErrNotFound
	}
	file, err := s.storage.Open(details.StoredPath.String)
	if err != nil {
		s.logger.Warn("Файл пакета импорта недоступен",
			zap.String("batchID", id),
			zap.String("path", details.StoredPath.String),
			zap.Error(err),
		)
		return nil, "", apperrors.ErrNotFound
	}
	return file, path.Base(details.FileName), nil
}
