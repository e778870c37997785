package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freight-portal/internal/controllers"
	"freight-portal/pkg/service"
	"freight-portal/pkg/websocket"
)

// Токен для /ws проверяет сам контроллер, поэтому группа без authMW.
func runWebSocketRouter(group *echo.Group, hub *websocket.Hub, jwtSvc service.JWTService, origins []string, logger *zap.Logger) {
	ctrl := controllers.NewWebSocketController(hub, jwtSvc, origins, logger.Named("ws"))
	group.GET("/ws", ctrl.ServeWs)
}
