package middleware

import (
	"net/http"

	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
)

// CSRF requires the X-CSRF-Token header on every state-changing request.
// The OAuth callback is a plain GET redirect from StorX and is never checked.
func CSRF() echo.MiddlewareFunc {
	return echoMiddleware.CSRFWithConfig(echoMiddleware.CSRFConfig{
		TokenLookup:    "header:X-CSRF-Token",
		ContextKey:     utils.ContextKeyCSRF,
		CookieName:     "csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteStrictMode,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics"
		},
	})
}
