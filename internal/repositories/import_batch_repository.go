package repositories

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/infrastructure/bd"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

const (
	importBatchTable    = "import_batches"
	importRowErrorTable = "import_row_errors"
)

// поля, доступные для filter[...] и sort[...]; from/to режут по started_at
var importBatchList = bd.ListColumns{
	Fields: map[string]string{
		"id":         "ib.id",
		"entity":     "ib.entity",
		"status":     "ib.status",
		"userId":     "ib.user_id",
		"strategy":   "ib.strategy",
		"startedAt":  "ib.started_at",
		"finishedAt": "ib.finished_at",
		"failed":     "ib.failed",
	},
	Range: "ib.started_at",
}

var importBatchColumns = []string{
	"ib.id", "ib.entity", "ib.company_id", "ib.user_id", "ib.file_name", "ib.stored_path",
	"ib.strategy", "ib.total_rows", "ib.succeeded", "ib.failed", "ib.first_error",
	"ib.status", "ib.started_at", "ib.finished_at",
}

type ImportBatchRepositoryInterface interface {
	Create(ctx context.Context, batch *entities.ImportBatch) error
	Finish(ctx context.Context, batch *entities.ImportBatch, rowErrors []entities.ImportRowError) error
	FindByID(ctx context.Context, companyID uint64, id uuid.UUID) (*entities.ImportBatch, []entities.ImportRowError, error)
	List(ctx context.Context, companyID uint64, filter types.Filter) ([]entities.ImportBatch, uint64, error)
}

type ImportBatchRepository struct {
	storage   *pgxpool.Pool
	txManager TxManagerInterface
	logger    *zap.Logger
}

func NewImportBatchRepository(storage *pgxpool.Pool, txManager TxManagerInterface, logger *zap.Logger) ImportBatchRepositoryInterface {
	return &ImportBatchRepository{storage: storage, txManager: txManager, logger: logger}
}

func psql() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func scanImportBatch(row pgx.Row) (*entities.ImportBatch, error) {
	var b entities.ImportBatch
	err := row.Scan(
		&b.ID, &b.Entity, &b.CompanyID, &b.UserID, &b.FileName, &b.StoredPath,
		&b.Strategy, &b.TotalRows, &b.Succeeded, &b.Failed, &b.FirstError,
		&b.Status, &b.StartedAt, &b.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования import_batch: %w", err)
	}
	return &b, nil
}

func (r *ImportBatchRepository) Create(ctx context.Context, batch *entities.ImportBatch) error {
	query, args, err := psql().Insert(importBatchTable).
		Columns("id", "entity", "company_id", "user_id", "file_name", "stored_path",
			"strategy", "total_rows", "succeeded", "failed", "status", "started_at").
		Values(batch.ID, batch.Entity, batch.CompanyID, batch.UserID, batch.FileName, batch.StoredPath,
			batch.Strategy, batch.TotalRows, batch.Succeeded, batch.Failed, batch.Status, batch.StartedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.storage.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("не удалось записать пакет импорта: %w", err)
	}
	return nil
}

// Finish обновляет итоги пакета и сохраняет ошибки строк одной транзакцией.
func (r *ImportBatchRepository) Finish(ctx context.Context, batch *entities.ImportBatch, rowErrors []entities.ImportRowError) error {
	return r.txManager.RunInTransaction(ctx, func(tx Querier) error {
		query, args, err := psql().Update(importBatchTable).
			SetMap(map[string]interface{}{
				"total_rows":  batch.TotalRows,
				"succeeded":   batch.Succeeded,
				"failed":      batch.Failed,
				"first_error": batch.FirstError,
				"status":      batch.Status,
				"finished_at": batch.FinishedAt,
			}).
			Where(sq.Eq{"id": batch.ID}).
			ToSql()
		if err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("не удалось обновить пакет импорта: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}

		return insertRowErrors(ctx, tx, batch.ID, rowErrors)
	})
}

func insertRowErrors(ctx context.Context, q Querier, batchID uuid.UUID, rowErrors []entities.ImportRowError) error {
	if len(rowErrors) == 0 {
		return nil
	}
	insert := psql().Insert(importRowErrorTable).Columns("batch_id", "row_number", "message")
	for _, re := range rowErrors {
		insert = insert.Values(batchID, re.Row, re.Message)
	}
	query, args, err := insert.ToSql()
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("не удалось записать ошибки строк: %w", err)
	}
	return nil
}

func (r *ImportBatchRepository) FindByID(ctx context.Context, companyID uint64, id uuid.UUID) (*entities.ImportBatch, []entities.ImportRowError, error) {
	query, args, err := psql().Select(importBatchColumns...).
		From(importBatchTable + " AS ib").
		Where(sq.Eq{"ib.id": id, "ib.company_id": companyID}).
		ToSql()
	if err != nil {
		return nil, nil, err
	}
	batch, err := scanImportBatch(r.storage.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, nil, err
	}

	query, args, err = psql().Select("row_number", "message").
		From(importRowErrorTable).
		Where(sq.Eq{"batch_id": id}).
		OrderBy("row_number").
		ToSql()
	if err != nil {
		return nil, nil, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	rowErrors := make([]entities.ImportRowError, 0)
	for rows.Next() {
		re := entities.ImportRowError{BatchID: id}
		if err := rows.Scan(&re.Row, &re.Message); err != nil {
			return nil, nil, fmt.Errorf("ошибка сканирования import_row_error: %w", err)
		}
		rowErrors = append(rowErrors, re)
	}
	return batch, rowErrors, rows.Err()
}

func (r *ImportBatchRepository) List(ctx context.Context, companyID uint64, filter types.Filter) ([]entities.ImportBatch, uint64, error) {
	applySearch := func(b sq.SelectBuilder) sq.SelectBuilder {
		b = b.Where(sq.Eq{"ib.company_id": companyID})
		if filter.Search != "" {
			b = b.Where(sq.ILike{"ib.file_name": "%" + filter.Search + "%"})
		}
		return b
	}

	countBuilder := bd.ApplyFilters(applySearch(psql().Select("COUNT(ib.id)").From(importBatchTable+" AS ib")), filter, importBatchList)

	var total uint64
	sqlCount, argsCount, err := countBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	if err := r.storage.QueryRow(ctx, sqlCount, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []entities.ImportBatch{}, 0, nil
	}

	baseBuilder := applySearch(psql().Select(importBatchColumns...).From(importBatchTable + " AS ib"))
	baseBuilder = bd.ApplyFilters(baseBuilder, filter, importBatchList)
	baseBuilder = bd.ApplySort(baseBuilder, filter, importBatchList, "ib.started_at DESC")
	baseBuilder = bd.ApplyPage(baseBuilder, filter)

	query, args, err := baseBuilder.ToSql()
	if err != nil {
		return nil, 0, err
	}
	rows, err := r.storage.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	batches := make([]entities.ImportBatch, 0, filter.Limit)
	for rows.Next() {
		b, err := scanImportBatch(rows)
		if err != nil {
			return nil, 0, err
		}
		batches = append(batches, *b)
	}
	return batches, total, rows.Err()
}

// NoopImportBatchRepository — журнал без базы: запись молча пропускается,
// чтение возвращает ErrJournalDisabled.
type NoopImportBatchRepository struct{}

func NewNoopImportBatchRepository() ImportBatchRepositoryInterface {
	return NoopImportBatchRepository{}
}

func (NoopImportBatchRepository) Create(context.Context, *entities.ImportBatch) error { return nil }

func (NoopImportBatchRepository) Finish(context.Context, *entities.ImportBatch, []entities.ImportRowError) error {
	return nil
}

func (NoopImportBatchRepository) FindByID(context.Context, uint64, uuid.UUID) (*entities.ImportBatch, []entities.ImportRowError, error) {
	return nil, nil, apperrors.ErrJournalDisabled
}

func (NoopImportBatchRepository) List(context.Context, uint64, types.Filter) ([]entities.ImportBatch, uint64, error) {
	return nil, 0, apperrors.ErrJournalDisabled
}
