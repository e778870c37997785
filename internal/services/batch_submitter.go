package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"freight-portal/internal/integrations"
	apperrors "freight-portal/pkg/errors"
)

// RowError — ошибка одной строки файла импорта.
type RowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e RowError) String() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ImportResult — итог пакетного импорта.
type ImportResult struct {
	BatchID   string     `json:"batchId,omitempty"`
	Total     int        `json:"total"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Errors    []RowError `json:"errors"`
}

// Summary: "8 imported, 2 failed: row 5: ...".
func (r ImportResult) Summary() string {
	if r.Failed == 0 {
		return fmt.Sprintf("%d imported", r.Succeeded)
	}
	s := fmt.Sprintf("%d imported, %d failed", r.Succeeded, r.Failed)
	if len(r.Errors) > 0 {
		s += ": " + r.Errors[0].String()
	}
	return s
}

// FirstError — текст первой ошибки по номеру строки.
func (r ImportResult) FirstError() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].String()
}

// BatchSubmitter отправляет строки пулом ограниченного размера.
// Ошибка строки не прерывает пакет.
type BatchSubmitter struct {
	provider integrations.RecordProvider
	limit    int
	logger   *zap.Logger
}

// NewBatchSubmitter: limit == 1 — строгая последовательность строк.
func NewBatchSubmitter(provider integrations.RecordProvider, limit int, logger *zap.Logger) *BatchSubmitter {
	if limit < 1 {
		limit = 1
	}
	return &BatchSubmitter{provider: provider, limit: limit, logger: logger}
}

func (b *BatchSubmitter) Submit(ctx context.Context, endpoint string, rows []ImportRow) ImportResult {
	var (
		mu     sync.Mutex
		result = ImportResult{Total: len(rows), Errors: []RowError{}}
	)

	g := new(errgroup.Group)
	g.SetLimit(b.limit)
	for _, row := range rows {
		row := row
		g.Go(func() error {
			_, err := b.provider.CreateRecord(ctx, endpoint, row.Record)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				result.Errors = append(result.Errors, RowError{Row: row.Line, Message: rowErrorMessage(err)})
				b.logger.Debug("Строка импорта отклонена", zap.String("endpoint", endpoint), zap.Int("row", row.Line), zap.Error(err))
				return nil
			}
			result.Succeeded++
			return nil
		})
	}
	_ = g.Wait()

	sortRowErrors(result.Errors)
	return result
}

func sortRowErrors(errs []RowError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Row < errs[j].Row })
}

// joinFieldMessages склеивает сообщения валидации в порядке имён полей.
func joinFieldMessages(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msgs := make([]string, 0, len(keys))
	for _, k := range keys {
		msgs = append(msgs, fields[k])
	}
	return strings.Join(msgs, "; ")
}

func rowErrorMessage(err error) string {
	var netErr *apperrors.NetworkError
	if errors.As(err, &netErr) {
		return netErr.UserMessage()
	}
	return err.Error()
}
