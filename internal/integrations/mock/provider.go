// Package mock — in-memory бэкенд для локальной разработки и тестов.
package mock

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"freight-portal/internal/entities"
	"freight-portal/internal/integrations"
	apperrors "freight-portal/pkg/errors"
)

type table struct {
	idField string
	nextID  int
	rows    map[string]entities.Record
}

// MockProvider хранит записи в памяти и ведёт себя как REST-бэкенд:
// присваивает id, ведёт version и отвечает 409 на устаревшую версию.
type MockProvider struct {
	ShouldFail bool
	// Reject, если задан, может отклонить запись на создании/обновлении.
	Reject func(endpoint string, payload entities.Record) error

	mu     sync.Mutex
	tables map[string]*table
	calls  map[string]int
}

// NewMockProvider принимает соответствие endpoint -> имя поля идентификатора.
func NewMockProvider(idFields map[string]string) *MockProvider {
	m := &MockProvider{
		tables: make(map[string]*table, len(idFields)),
		calls:  make(map[string]int),
	}
	for endpoint, idField := range idFields {
		m.tables[endpoint] = &table{idField: idField, rows: make(map[string]entities.Record)}
	}
	return m
}

var _ integrations.RecordProvider = (*MockProvider)(nil)

func (m *MockProvider) Name() string {
	return "mock"
}

// Seed кладёт записи как есть, подбирая счётчик id.
func (m *MockProvider) Seed(endpoint string, records ...entities.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.table(endpoint)
	for _, r := range records {
		rec := r.Clone()
		id, ok := rec.ID(t.idField)
		if !ok {
			t.nextID++
			id = strconv.Itoa(t.nextID)
			rec[t.idField] = float64(t.nextID)
		} else if n, err := strconv.Atoi(id); err == nil && n > t.nextID {
			t.nextID = n
		}
		if _, ok := rec["version"]; !ok {
			rec["version"] = float64(1)
		}
		t.rows[id] = rec
	}
}

// Calls возвращает число вызовов операции (List, Get, Create, Update, Delete).
func (m *MockProvider) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// TotalCalls — число обращений к бэкенду по всем операциям.
func (m *MockProvider) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

func (m *MockProvider) ListRecords(ctx context.Context, endpoint string, req integrations.ListRequest) ([]entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["List"]++

	if err := m.check(ctx, http.MethodPost, endpoint); err != nil {
		return nil, err
	}

	t := m.table(endpoint)
	ids := make([]string, 0, len(t.rows))
	for id := range t.rows {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return ids[i] < ids[j]
	})

	out := make([]entities.Record, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.rows[id].Clone())
	}
	if req.PageSize > 0 && req.Page > 0 {
		start := (req.Page - 1) * req.PageSize
		if start >= len(out) {
			return []entities.Record{}, nil
		}
		end := start + req.PageSize
		if end > len(out) {
			end = len(out)
		}
		out = out[start:end]
	}
	return out, nil
}

func (m *MockProvider) GetRecord(ctx context.Context, endpoint, id string) (entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Get"]++

	if err := m.check(ctx, http.MethodGet, endpoint); err != nil {
		return nil, err
	}
	rec, ok := m.table(endpoint).rows[id]
	if !ok {
		return nil, notFound(http.MethodGet, endpoint, id)
	}
	return rec.Clone(), nil
}

func (m *MockProvider) CreateRecord(ctx context.Context, endpoint string, payload entities.Record) (entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Create"]++

	if err := m.check(ctx, http.MethodPost, endpoint); err != nil {
		return nil, err
	}
	if m.Reject != nil {
		if err := m.Reject(endpoint, payload); err != nil {
			return nil, reject(http.MethodPost, endpoint, err)
		}
	}

	t := m.table(endpoint)
	t.nextID++
	rec := payload.Clone()
	rec[t.idField] = float64(t.nextID)
	rec["version"] = float64(1)
	t.rows[strconv.Itoa(t.nextID)] = rec
	return rec.Clone(), nil
}

func (m *MockProvider) UpdateRecord(ctx context.Context, endpoint string, payload entities.Record) (entities.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Update"]++

	if err := m.check(ctx, http.MethodPut, endpoint); err != nil {
		return nil, err
	}
	if m.Reject != nil {
		if err := m.Reject(endpoint, payload); err != nil {
			return nil, reject(http.MethodPut, endpoint, err)
		}
	}

	t := m.table(endpoint)
	id, ok := payload.ID(t.idField)
	if !ok {
		return nil, &apperrors.NetworkError{
			Op: http.MethodPut, URL: endpoint, Status: http.StatusBadRequest,
			Message: fmt.Sprintf("поле %s обязательно", t.idField),
		}
	}
	current, ok := t.rows[id]
	if !ok {
		return nil, notFound(http.MethodPut, endpoint, id)
	}
	if entities.Stringify(current["version"]) != entities.Stringify(payload["version"]) {
		return nil, &apperrors.NetworkError{
			Op: http.MethodPut, URL: endpoint, Status: http.StatusConflict,
			Message: "Запись была изменена другим пользователем",
		}
	}

	version, _ := strconv.ParseFloat(entities.Stringify(current["version"]), 64)
	rec := current.Merge(payload)
	rec["version"] = version + 1
	t.rows[id] = rec
	return rec.Clone(), nil
}

func (m *MockProvider) DeleteRecord(ctx context.Context, endpoint, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["Delete"]++

	if err := m.check(ctx, http.MethodDelete, endpoint); err != nil {
		return &apperrors.DeleteError{Entity: endpoint, ID: id, Err: err}
	}
	t := m.table(endpoint)
	if _, ok := t.rows[id]; !ok {
		return &apperrors.DeleteError{Entity: endpoint, ID: id, Err: notFound(http.MethodDelete, endpoint, id)}
	}
	delete(t.rows, id)
	return nil
}

func (m *MockProvider) check(ctx context.Context, op, endpoint string) error {
	if err := ctx.Err(); err != nil {
		return &apperrors.NetworkError{Op: op, URL: endpoint, Err: err}
	}
	if m.ShouldFail {
		return &apperrors.NetworkError{
			Op: op, URL: endpoint, Status: http.StatusServiceUnavailable,
			Message: "Сервис временно недоступен",
		}
	}
	return nil
}

// table вызывается под m.mu.
func (m *MockProvider) table(endpoint string) *table {
	t, ok := m.tables[endpoint]
	if !ok {
		t = &table{idField: strings.ToLower(endpoint[:1]) + endpoint[1:] + "Id", rows: make(map[string]entities.Record)}
		m.tables[endpoint] = t
	}
	return t
}

func notFound(op, endpoint, id string) error {
	return &apperrors.NetworkError{
		Op: op, URL: endpoint + "/" + id, Status: http.StatusNotFound,
		Message: "Запись не найдена",
	}
}

func reject(op, endpoint string, err error) error {
	return &apperrors.NetworkError{
		Op: op, URL: endpoint, Status: http.StatusBadRequest,
		Message: err.Error(),
	}
}
