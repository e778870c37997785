package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"freight-portal/pkg/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
	sendBuffer     = 64
)

// Client — одна вкладка портала. Вкладка сообщает, какие справочники
// у неё открыты (watch/unwatch), и получает обновления только по ним.
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	Session types.Session

	mu       sync.RWMutex
	watching map[string]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, session types.Session) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		Session:  session,
		watching: make(map[string]struct{}),
	}
}

// Watches сообщает, нужны ли вкладке обновления entity.
// Пока вкладка ничего не выбрала, она получает всё по своей компании.
func (c *Client) Watches(entity string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.watching) == 0 || entity == "" {
		return true
	}
	_, ok := c.watching[entity]
	return ok
}

func (c *Client) apply(cmd Command) bool {
	if cmd.Entity == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch cmd.Action {
	case ActionWatch:
		c.watching[cmd.Entity] = struct{}{}
	case ActionUnwatch:
		delete(c.watching, cmd.Entity)
	default:
		return false
	}
	return true
}

// ReadPump принимает команды watch/unwatch до закрытия соединения.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("WebSocket: соединение оборвано", zap.Uint64("userID", c.Session.UserID), zap.Error(err))
			}
			return
		}
		var cmd Command
		if err := json.Unmarshal(raw, &cmd); err != nil || !c.apply(cmd) {
			c.hub.logger.Debug("WebSocket: непонятная команда", zap.Uint64("userID", c.Session.UserID), zap.ByteString("raw", raw))
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
