package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"freight-portal/pkg/contextkeys"
	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

func ContextWithTimeout(ctx echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request().Context(), timeout)
}

// WithSession кладёт сессию в контекст запроса.
func WithSession(ctx context.Context, session types.Session) context.Context {
	return context.WithValue(ctx, contextkeys.SessionKey, session)
}

// SessionFromCtx достаёт сессию, положенную AuthMiddleware.
func SessionFromCtx(ctx context.Context) (types.Session, error) {
	session, ok := ctx.Value(contextkeys.SessionKey).(types.Session)
	if !ok || session.UserID == 0 {
		return types.Session{}, apperrors.ErrSessionNotFound
	}
	return session, nil
}
