package entities

import (
	"time"

	"github.com/aarondl/null/v8"
	"github.com/google/uuid"
)

// Статусы пакета импорта в журнале.
const (
	ImportStatusRunning   = "running"
	ImportStatusCompleted = "completed"
	ImportStatusPartial   = "partial"
	ImportStatusFailed    = "failed"
)

// ImportBatch — запись журнала об одном загруженном файле.
type ImportBatch struct {
	ID         uuid.UUID   `json:"id"`
	Entity     string      `json:"entity"`
	CompanyID  uint64      `json:"companyId"`
	UserID     uint64      `json:"userId"`
	FileName   string      `json:"fileName"`
	StoredPath null.String `json:"storedPath"`
	Strategy   string      `json:"strategy"`
	TotalRows  int         `json:"totalRows"`
	Succeeded  int         `json:"succeeded"`
	Failed     int         `json:"failed"`
	FirstError null.String `json:"firstError"`
	Status     string      `json:"status"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt null.Time   `json:"finishedAt"`
}

// ImportRowError — ошибка одной строки файла; Row — номер строки в Excel.
type ImportRowError struct {
	BatchID uuid.UUID `json:"-"`
	Row     int       `json:"row"`
	Message string    `json:"message"`
}

// Finish проставляет итоговые счётчики и статус.
func (b *ImportBatch) Finish(succeeded, failed int, firstError string, at time.Time) {
	b.Succeeded = succeeded
	b.Failed = failed
	b.FinishedAt = null.TimeFrom(at)
	if firstError != "" {
		b.FirstError = null.StringFrom(firstError)
	}
	switch {
	case failed == 0:
		b.Status = ImportStatusCompleted
	case succeeded == 0:
		b.Status = ImportStatusFailed
	default:
		b.Status = ImportStatusPartial
	}
}
