package listeners

import (
	"context"

	"go.uber.org/zap"

	"freight-portal/internal/events"
	"freight-portal/internal/registry"
	"freight-portal/internal/services"
	"freight-portal/pkg/eventbus"
	"freight-portal/pkg/websocket"
)

// StaleMarker — то, что умеет PageManager.
type StaleMarker interface {
	MarkStale(companyID, exceptUserID uint64, entityNames ...string) int
}

// RefreshListener после изменения справочника сбрасывает кеш ссылок,
// помечает чужие страницы устаревшими и шлёт page.refresh в браузеры.
type RefreshListener struct {
	registry *registry.Registry
	refs     services.ReferenceServiceInterface
	pages    StaleMarker
	notifier services.WebSocketNotificationServiceInterface
	logger   *zap.Logger
}

func NewRefreshListener(
	reg *registry.Registry,
	refs services.ReferenceServiceInterface,
	pages StaleMarker,
	notifier services.WebSocketNotificationServiceInterface,
	logger *zap.Logger,
) *RefreshListener {
	return &RefreshListener{
		registry: reg,
		refs:     refs,
		pages:    pages,
		notifier: notifier,
		logger:   logger,
	}
}

func (l *RefreshListener) Register(bus *eventbus.Bus) {
	bus.Subscribe(events.RecordCommittedName, l.handle)
	bus.Subscribe(events.RecordDeletedName, l.handle)
	bus.Subscribe(events.ImportCompletedName, l.handle)
	l.logger.Info("RefreshListener подписан на события изменения справочников")
}

type change struct {
	entity    string
	companyID uint64
	userID    uint64
	payload   websocket.RefreshPayload
}

func (l *RefreshListener) handle(ctx context.Context, event eventbus.Event) error {
	var c change
	switch e := event.(type) {
	case events.RecordCommitted:
		c = change{e.Entity, e.CompanyID, e.UserID, websocket.RefreshPayload{RecordID: e.RecordID}}
	case events.RecordDeleted:
		c = change{e.Entity, e.CompanyID, e.UserID, websocket.RefreshPayload{RecordID: e.RecordID}}
	case events.ImportCompleted:
		c = change{e.Entity, e.CompanyID, e.UserID, websocket.RefreshPayload{BatchID: e.BatchID}}
	default:
		return nil
	}

	if err := l.refs.Invalidate(ctx, c.companyID, c.entity); err != nil {
		l.logger.Warn("Не удалось сбросить кеш справочника", zap.String("entity", c.entity), zap.Error(err))
	}

	// подписи во внешних ключах зависимых сущностей тоже могли измениться
	affected := append([]string{c.entity}, l.registry.DependentsOf(c.entity)...)
	l.pages.MarkStale(c.companyID, c.userID, affected...)

	for _, name := range affected {
		payload := c.payload
		payload.Entity = name
		payload.Reason = event.Name()
		payload.ActorID = c.userID
		send := l.notifier.PageRefresh
		if name == c.entity && event.Name() == events.ImportCompletedName {
			send = l.notifier.ImportCompleted
		}
		if err := send(c.companyID, payload); err != nil {
			return err
		}
	}
	return nil
}
