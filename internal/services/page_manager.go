package services

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"freight-portal/internal/registry"
	"freight-portal/pkg/types"
)

type pageKey struct {
	userID uint64
	entity string
}

// PageManager держит по одной странице на пару (пользователь, сущность).
type PageManager struct {
	registry *registry.Registry
	deps     PageDeps

	mu    sync.Mutex
	pages map[pageKey]*Page
}

func NewPageManager(reg *registry.Registry, deps PageDeps) *PageManager {
	return &PageManager{
		registry: reg,
		deps:     deps,
		pages:    make(map[pageKey]*Page),
	}
}

func (m *PageManager) Registry() *registry.Registry { return m.registry }

// Get возвращает страницу, создавая и загружая её при первом обращении.
func (m *PageManager) Get(ctx context.Context, session types.Session, entityName string) (*Page, error) {
	entity, err := m.registry.Get(entityName)
	if err != nil {
		return nil, err
	}

	key := pageKey{userID: session.UserID, entity: entity.Name()}
	m.mu.Lock()
	page, ok := m.pages[key]
	if !ok || page.session.CompanyID != session.CompanyID {
		page = NewPage(entity, session, m.deps)
		m.pages[key] = page
	}
	m.mu.Unlock()

	page.ensureLoaded(ctx)
	return page, nil
}

// MarkStale помечает страницы компании по указанным сущностям,
// кроме страницы автора изменения.
func (m *PageManager) MarkStale(companyID, exceptUserID uint64, entityNames ...string) int {
	wanted := make(map[string]bool, len(entityNames))
	for _, n := range entityNames {
		wanted[n] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	marked := 0
	for key, page := range m.pages {
		if page.session.CompanyID != companyID || key.userID == exceptUserID || !wanted[key.entity] {
			continue
		}
		page.MarkStale()
		marked++
	}
	return marked
}

// Sweep выбрасывает страницы, к которым не обращались дольше maxIdle.
func (m *PageManager) Sweep(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle).UnixNano()

	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key, page := range m.pages {
		if page.lastUsed.Load() < cutoff && !page.importing.Load() {
			delete(m.pages, key)
			removed++
		}
	}
	return removed
}

// RunSweeper периодически чистит неиспользуемые страницы до отмены ctx.
func (m *PageManager) RunSweeper(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(maxIdle); n > 0 {
				m.deps.Logger.Debug("Неиспользуемые страницы выгружены", zap.Int("count", n))
			}
		}
	}
}
