package services

import (
	"go.uber.org/zap"

	"freight-portal/pkg/websocket"
)

// WebSocketNotificationServiceInterface — push-уведомления открытым вкладкам компании.
type WebSocketNotificationServiceInterface interface {
	PageRefresh(companyID uint64, payload websocket.RefreshPayload) error
	ImportCompleted(companyID uint64, payload websocket.RefreshPayload) error
}

type WebSocketNotificationService struct {
	hub    *websocket.Hub
	logger *zap.Logger
}

func NewWebSocketNotificationService(hub *websocket.Hub, logger *zap.Logger) WebSocketNotificationServiceInterface {
	return &WebSocketNotificationService{
		hub:    hub,
		logger: logger.Named("ws_notify"),
	}
}

func (s *WebSocketNotificationService) PageRefresh(companyID uint64, payload websocket.RefreshPayload) error {
	return s.send(companyID, payload, websocket.TypePageRefresh)
}

// ImportCompleted уходит всем вкладкам компании: итог импорта показывается
// и там, где справочник сейчас не открыт.
func (s *WebSocketNotificationService) ImportCompleted(companyID uint64, payload websocket.RefreshPayload) error {
	return s.send(companyID, payload, websocket.TypeImportDone)
}

func (s *WebSocketNotificationService) send(companyID uint64, payload websocket.RefreshPayload, messageType string) error {
	s.logger.Debug("Отправка WebSocket-сообщения",
		zap.Uint64("companyID", companyID),
		zap.String("entity", payload.Entity),
		zap.String("type", messageType),
	)
	entity := payload.Entity
	if messageType == websocket.TypeImportDone {
		entity = ""
	}
	return s.hub.SendToCompany(companyID, entity, payload, messageType)
}
