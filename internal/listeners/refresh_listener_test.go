package listeners

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"freight-portal/internal/entities"
	"freight-portal/internal/events"
	"freight-portal/internal/registry"
	"freight-portal/internal/services"
	"freight-portal/pkg/eventbus"
	"freight-portal/pkg/types"
	"freight-portal/pkg/websocket"
)

type fakeRefs struct {
	mu          sync.Mutex
	invalidated []string
}

func (f *fakeRefs) Load(context.Context, types.Session, entities.ReferenceSpec) *services.ReferenceList {
	return nil
}

func (f *fakeRefs) Index(context.Context, types.Session, registry.Entity) services.ReferenceIndex {
	return services.ReferenceIndex{}
}

func (f *fakeRefs) Invalidate(_ context.Context, _ uint64, entity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, entity)
	return nil
}

type fakeMarker struct {
	companyID, exceptUserID uint64
	entities                []string
}

func (f *fakeMarker) MarkStale(companyID, exceptUserID uint64, entityNames ...string) int {
	f.companyID, f.exceptUserID, f.entities = companyID, exceptUserID, entityNames
	return len(entityNames)
}

type sent struct {
	companyID   uint64
	payload     websocket.RefreshPayload
	messageType string
}

type fakeNotifier struct {
	messages []sent
}

func (f *fakeNotifier) PageRefresh(companyID uint64, payload websocket.RefreshPayload) error {
	f.messages = append(f.messages, sent{companyID, payload, websocket.TypePageRefresh})
	return nil
}

func (f *fakeNotifier) ImportCompleted(companyID uint64, payload websocket.RefreshPayload) error {
	f.messages = append(f.messages, sent{companyID, payload, websocket.TypeImportDone})
	return nil
}

func TestRefreshListenerCoversDependents(t *testing.T) {
	reg := registry.Default()
	refs, marker, notifier := &fakeRefs{}, &fakeMarker{}, &fakeNotifier{}
	bus := eventbus.New(zap.NewNop())
	NewRefreshListener(reg, refs, marker, notifier, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), events.RecordCommitted{Entity: "city", CompanyID: 3, UserID: 7, RecordID: "1"})
	bus.Wait()

	assert.Equal(t, []string{"city"}, refs.invalidated)
	assert.Equal(t, uint64(3), marker.companyID)
	assert.Equal(t, uint64(7), marker.exceptUserID)
	require.NotEmpty(t, marker.entities)
	assert.Equal(t, "city", marker.entities[0])
	assert.Contains(t, marker.entities, "branch")
	assert.Contains(t, marker.entities, "company")

	require.Len(t, notifier.messages, len(marker.entities))
	first := notifier.messages[0]
	assert.Equal(t, websocket.TypePageRefresh, first.messageType)
	assert.Equal(t, "city", first.payload.Entity)
	assert.Equal(t, events.RecordCommittedName, first.payload.Reason)
	assert.Equal(t, "1", first.payload.RecordID)
	assert.Equal(t, uint64(7), first.payload.ActorID)
}

func TestRefreshListenerImportCompleted(t *testing.T) {
	refs, marker, notifier := &fakeRefs{}, &fakeMarker{}, &fakeNotifier{}
	bus := eventbus.New(zap.NewNop())
	NewRefreshListener(registry.Default(), refs, marker, notifier, zap.NewNop()).Register(bus)

	bus.Publish(context.Background(), events.ImportCompleted{Entity: "hsCode", CompanyID: 3, UserID: 7, BatchID: "b-1", Succeeded: 2})
	bus.Wait()

	require.NotEmpty(t, notifier.messages)
	assert.Equal(t, websocket.TypeImportDone, notifier.messages[0].messageType)
	assert.Equal(t, "b-1", notifier.messages[0].payload.BatchID)
	assert.Equal(t, []string{"hsCode"}, refs.invalidated)
}
