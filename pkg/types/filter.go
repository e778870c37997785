package types

import "time"

// SortField — одно поле сортировки; порядок в срезе задаёт приоритет.
type SortField struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc"`
}

// Filter — параметры списка журнала импорта:
// /api/imports?search=branch&sort[startedAt]=desc&filter[status]=partial&from=2026-10-01&limit=10&page=2
type Filter struct {
	Search         string                 `json:"search,omitempty"`
	Sort           []SortField            `json:"sort,omitempty"`
	Filter         map[string]interface{} `json:"filter,omitempty"`
	From           *time.Time             `json:"from,omitempty"`
	To             *time.Time             `json:"to,omitempty"`
	Limit          int                    `json:"limit"`
	Offset         int                    `json:"offset"`
	Page           int                    `json:"page"`
	WithPagination bool                   `json:"with_pagination"`
}
