package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"freight-portal/pkg/utils"
)

// RequestTimeout ограничивает контекст запроса; вызовы бэкенда прерываются
// по его истечении. Ответ не подменяется.
func RequestTimeout(timeout time.Duration, skipPaths ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, p := range skipPaths {
				if c.Path() == p {
					return next(c)
				}
			}
			ctx, cancel := utils.ContextWithTimeout(c, timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
