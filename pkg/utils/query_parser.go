package utils

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"freight-portal/pkg/types"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100

	queryDateLayout = "2006-01-02"
)

// ParseFilterFromQuery разбирает limit/page/search/sort[x]/filter[x]/from/to
// (и простые ?x=y для разрешённых ключей) в types.Filter.
// to включает весь указанный день. Поля sort идут по алфавиту.
func ParseFilterFromQuery(query url.Values, plainKeys ...string) types.Filter {
	f := types.Filter{
		Filter:         make(map[string]interface{}),
		Limit:          DefaultLimit,
		Page:           1,
		WithPagination: true,
	}

	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		if l > MaxLimit {
			l = MaxLimit
		}
		f.Limit = l
	}
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		f.Page = p
	}
	f.Offset = (f.Page - 1) * f.Limit
	f.Search = strings.TrimSpace(query.Get("search"))
	if from, err := time.Parse(queryDateLayout, query.Get("from")); err == nil {
		f.From = &from
	}
	if to, err := time.Parse(queryDateLayout, query.Get("to")); err == nil {
		end := to.AddDate(0, 0, 1)
		f.To = &end
	}

	for key, values := range query {
		if len(values) == 0 || values[0] == "" {
			continue
		}
		switch {
		case strings.HasPrefix(key, "filter[") && strings.HasSuffix(key, "]"):
			f.Filter[key[7:len(key)-1]] = values[0]
		case strings.HasPrefix(key, "sort[") && strings.HasSuffix(key, "]"):
			f.Sort = append(f.Sort, types.SortField{
				Field: key[5 : len(key)-1],
				Desc:  strings.EqualFold(values[0], "desc"),
			})
		}
	}
	sort.Slice(f.Sort, func(i, j int) bool { return f.Sort[i].Field < f.Sort[j].Field })
	for _, key := range plainKeys {
		if v := query.Get(key); v != "" {
			f.Filter[key] = v
		}
	}
	return f
}
