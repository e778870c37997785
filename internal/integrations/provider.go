package integrations

import (
	"context"

	"freight-portal/internal/entities"
)

// ListRequest — тело запроса {entity}/GetList внешнего бэкенда.
type ListRequest struct {
	Select   string `json:"select"`
	Where    string `json:"where"`
	SortOn   string `json:"sortOn"`
	Page     int    `json:"page"`
	PageSize int    `json:"pageSize"`
}

// DefaultListRequest — полный список одной страницей, как его грузит экран.
func DefaultListRequest() ListRequest {
	return ListRequest{Select: "*", Page: 1, PageSize: 1000}
}

// RecordProvider — CRUD-операции над сущностями внешнего бэкенда.
// endpoint — сегмент пути сущности (Branch, Company...).
type RecordProvider interface {
	Name() string
	ListRecords(ctx context.Context, endpoint string, req ListRequest) ([]entities.Record, error)
	GetRecord(ctx context.Context, endpoint, id string) (entities.Record, error)
	CreateRecord(ctx context.Context, endpoint string, payload entities.Record) (entities.Record, error)
	UpdateRecord(ctx context.Context, endpoint string, payload entities.Record) (entities.Record, error)
	DeleteRecord(ctx context.Context, endpoint, id string) error
}
