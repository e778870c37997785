package bd

import (
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"freight-portal/pkg/types"
)

// ListColumns сопоставляет ключи API с колонками SQL.
// Range — колонка, к которой применяются Filter.From/To.
type ListColumns struct {
	Fields map[string]string
	Range  string
}

// ApplyFilters добавляет условия filter[...] и диапазон дат.
// Неизвестные ключи молча пропускаются; "a,b" превращается в IN.
func ApplyFilters(builder sq.SelectBuilder, filter types.Filter, cols ListColumns) sq.SelectBuilder {
	keys := make([]string, 0, len(filter.Filter))
	for k := range filter.Filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		dbCol, ok := cols.Fields[key]
		if !ok {
			continue
		}
		val := filter.Filter[key]
		if s, ok := val.(string); ok && strings.Contains(s, ",") {
			builder = builder.Where(sq.Eq{dbCol: strings.Split(s, ",")})
			continue
		}
		builder = builder.Where(sq.Eq{dbCol: val})
	}

	if cols.Range != "" {
		if filter.From != nil {
			builder = builder.Where(sq.GtOrEq{cols.Range: *filter.From})
		}
		if filter.To != nil {
			builder = builder.Where(sq.Lt{cols.Range: *filter.To})
		}
	}
	return builder
}

// ApplySort сортирует в порядке полей запроса, иначе по fallback.
func ApplySort(builder sq.SelectBuilder, filter types.Filter, cols ListColumns, fallback string) sq.SelectBuilder {
	applied := 0
	for _, sf := range filter.Sort {
		dbCol, ok := cols.Fields[sf.Field]
		if !ok {
			continue
		}
		dir := " ASC"
		if sf.Desc {
			dir = " DESC"
		}
		builder = builder.OrderBy(dbCol + dir)
		applied++
	}
	if applied == 0 && fallback != "" {
		builder = builder.OrderBy(fallback)
	}
	return builder
}

func ApplyPage(builder sq.SelectBuilder, filter types.Filter) sq.SelectBuilder {
	if !filter.WithPagination {
		return builder
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}
	return builder
}
