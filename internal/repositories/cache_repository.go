package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCacheMiss — ключа нет в кеше или срок его жизни истёк.
var ErrCacheMiss = errors.New("ключ не найден в кеше")

// CacheRepositoryInterface — кеш справочников (индексы ссылок по компании).
type CacheRepositoryInterface interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

// MemoryCacheRepository — кеш в памяти процесса, когда Redis не настроен.
type MemoryCacheRepository struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryCacheRepository() CacheRepositoryInterface {
	return &MemoryCacheRepository{items: make(map[string]memoryItem), now: time.Now}
}

func (m *MemoryCacheRepository) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return "", ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && m.now().After(item.expiresAt) {
		delete(m.items, key)
		return "", ErrCacheMiss
	}
	return item.value, nil
}

func (m *MemoryCacheRepository) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item := memoryItem{value: toCacheString(value)}
	if expiration > 0 {
		item.expiresAt = m.now().Add(expiration)
	}
	m.items[key] = item
	return nil
}

func (m *MemoryCacheRepository) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

func toCacheString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}
