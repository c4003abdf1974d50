package middleware

import (
	"net/http"
	"strings"

	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/":                  true,
	"/health":            true,
	"/metrics":           true,
	"/api/auth/login":    true,
	"/api/auth/callback": true,
	"/api/auth/logout":   true,
}

// AuthMiddleware checks for the StorXSeal cookie and validates it
func AuthMiddleware(authService *services.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// Skip for public routes
			path := c.Request().URL.Path
			if publicPaths[path] || strings.HasPrefix(path, "/static/") {
				return next(c)
			}

			// Get Cookie
			cookie, err := c.Cookie(utils.CookieName)
			if err != nil {
				return unauthenticated(c, "Not authenticated")
			}

			// Decrypt
			creds, err := authService.DecryptCredentials(cookie.Value)
			if err != nil {
				// Invalid or expired cookie - Clear it to prevent loop
				c.SetCookie(utils.ExpiredCookie(utils.CookieName))
				if services.IsCredentialError(err) {
					return unauthenticated(c, "Session expired")
				}
				return unauthenticated(c, "Invalid session")
			}

			// Store creds in context for handlers to use
			c.Set(utils.ContextKeyCreds, creds)

			return next(c)
		}
	}
}

// unauthenticated answers API calls with 401 JSON and sends pages to the login screen
func unauthenticated(c echo.Context, message string) error {
	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": message})
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
