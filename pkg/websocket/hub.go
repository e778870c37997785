package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub держит подключения, сгруппированные по компании.
type Hub struct {
	clients   map[*Client]struct{}
	companies map[uint64]map[*Client]struct{}

	Register   chan *Client
	unregister chan *Client

	mu     sync.RWMutex
	logger *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		companies:  make(map[uint64]map[*Client]struct{}),
		Register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.Named("ws_hub"),
	}
}

// Run обслуживает регистрацию клиентов до отмены ctx.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				h.remove(client)
			}
			h.mu.Unlock()
			return
		case client := <-h.Register:
			h.mu.Lock()
			h.clients[client] = struct{}{}
			companyID := client.Session.CompanyID
			if h.companies[companyID] == nil {
				h.companies[companyID] = make(map[*Client]struct{})
			}
			h.companies[companyID][client] = struct{}{}
			h.mu.Unlock()
			h.logger.Debug("Клиент зарегистрирован", zap.Uint64("userID", client.Session.UserID), zap.Uint64("companyID", companyID))
		case client := <-h.unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()
			h.logger.Debug("Клиент отсоединен", zap.Uint64("userID", client.Session.UserID))
		}
	}
}

// remove вызывается под h.mu.
func (h *Hub) remove(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	close(client.send)
	if set := h.companies[client.Session.CompanyID]; set != nil {
		delete(set, client)
		if len(set) == 0 {
			delete(h.companies, client.Session.CompanyID)
		}
	}
}

// SendToCompany рассылает сообщение вкладкам компании, которые следят за entity.
// Пустой entity — всем вкладкам. Медленный клиент с заполненным буфером пропускает сообщение.
func (h *Hub) SendToCompany(companyID uint64, entity string, payload interface{}, messageType string) error {
	messageBytes, err := json.Marshal(Envelope{
		Type:      messageType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		h.logger.Error("Ошибка сериализации сообщения для WebSocket", zap.Error(err))
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.companies[companyID] {
		if !client.Watches(entity) {
			continue
		}
		select {
		case client.send <- messageBytes:
			delivered++
		default:
			h.logger.Warn("Буфер клиента переполнен, сообщение пропущено", zap.Uint64("userID", client.Session.UserID))
		}
	}
	h.logger.Debug("Сообщение разослано",
		zap.Uint64("companyID", companyID),
		zap.String("entity", entity),
		zap.String("type", messageType),
		zap.Int("delivered", delivered),
	)
	return nil
}

// Connected — число подключений компании.
func (h *Hub) Connected(companyID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.companies[companyID])
}
