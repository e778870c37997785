package controllers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"freight-portal/pkg/api"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/service"
	appwebsocket "freight-portal/pkg/websocket"
)

type WebSocketController struct {
	hub        *appwebsocket.Hub
	jwtService service.JWTService
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewWebSocketController принимает origins из ALLOWED_ORIGINS; пустой список или "*" пускает всех.
func NewWebSocketController(hub *appwebsocket.Hub, jwtService service.JWTService, origins []string, logger *zap.Logger) *WebSocketController {
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		allowed[o] = struct{}{}
	}
	_, wildcard := allowed["*"]

	return &WebSocketController{
		hub:        hub,
		jwtService: jwtService,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if wildcard || len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
		logger: logger,
	}
}

// ServeWs подключает вкладку к push-уведомлениям об изменениях справочников.
// Браузер не умеет слать заголовки при апгрейде, поэтому токен идёт в query.
func (c *WebSocketController) ServeWs(ctx echo.Context) error {
	tokenString := ctx.QueryParam("token")
	if tokenString == "" {
		return api.ErrorResponse(ctx, apperrors.ErrEmptyAuthHeader, c.logger)
	}
	claims, err := c.jwtService.ValidateToken(tokenString)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	conn, err := c.upgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		c.logger.Warn("WebSocket: не удалось улучшить соединение", zap.Error(err))
		return nil
	}

	session := claims.Session()
	client := appwebsocket.NewClient(c.hub, conn, session)
	c.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	c.logger.Info("WebSocket: вкладка подключена",
		zap.Uint64("userID", session.UserID),
		zap.Uint64("companyID", session.CompanyID),
	)
	return nil
}
