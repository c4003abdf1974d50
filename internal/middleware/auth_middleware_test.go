package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService() *services.AuthService {
	return services.NewAuthService("", time.Hour)
}

func runMiddleware(t *testing.T, authService *services.AuthService, req *http.Request) (*httptest.ResponseRecorder, bool, *services.Credentials) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handlerCalled := false
	var contextCreds *services.Credentials
	handler := func(c echo.Context) error {
		handlerCalled = true
		if val := c.Get(utils.ContextKeyCreds); val != nil {
			contextCreds = val.(*services.Credentials)
		}
		return c.String(http.StatusOK, "OK")
	}

	err := AuthMiddleware(authService)(handler)(c)
	require.NoError(t, err)
	return rec, handlerCalled, contextCreds
}

func TestAuthMiddleware_SkipsPublicRoutes(t *testing.T) {
	publicPaths := []string{
		"/",
		"/health",
		"/metrics",
		"/api/auth/login",
		"/api/auth/callback",
		"/api/auth/logout",
		"/static/app.js",
	}

	authService := newAuthService()

	for _, path := range publicPaths {
		t.Run(path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, path, nil)

			_, handlerCalled, _ := runMiddleware(t, authService, req)

			assert.True(t, handlerCalled, "handler should be called for public path %s", path)
		})
	}
}

func TestAuthMiddleware_RedirectsPagesWithoutCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)

	rec, handlerCalled, _ := runMiddleware(t, newAuthService(), req)

	assert.False(t, handlerCalled, "handler should not be called without cookie")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAuthMiddleware_APIReturns401WithoutCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/storx/s3/list", nil)

	rec, handlerCalled, _ := runMiddleware(t, newAuthService(), req)

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Not authenticated", body["error"])
}

func TestAuthMiddleware_RedirectsWithInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{
		Name:  utils.CookieName,
		Value: "invalid-encrypted-value",
	})

	rec, handlerCalled, _ := runMiddleware(t, newAuthService(), req)

	assert.False(t, handlerCalled, "handler should not be called with invalid cookie")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestAuthMiddleware_SetsCredentialsInContext(t *testing.T) {
	authService := newAuthService()

	creds := services.Credentials{
		Endpoint:  "https://gateway.storx.io",
		AccessKey: "access",
		SecretKey: "secret",
	}
	sealed, _, err := authService.Seal(creds)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: sealed})

	_, handlerCalled, contextCreds := runMiddleware(t, authService, req)

	assert.True(t, handlerCalled)
	require.NotNil(t, contextCreds)
	assert.Equal(t, creds.Endpoint, contextCreds.Endpoint)
	assert.Equal(t, creds.AccessKey, contextCreds.AccessKey)
	assert.Equal(t, creds.SecretKey, contextCreds.SecretKey)
	assert.False(t, contextCreds.ExpiresAt.IsZero())
}

func TestAuthMiddleware_ExpiredSessionIsRejectedAndCleared(t *testing.T) {
	authService := newAuthService()
	encrypted, err := authService.EncryptCredentials(services.Credentials{
		AccessKey: "access",
		SecretKey: "secret",
		ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/storx/s3/list", nil)
	req.AddCookie(&http.Cookie{Name: utils.CookieName, Value: encrypted})

	rec, handlerCalled, _ := runMiddleware(t, authService, req)

	assert.False(t, handlerCalled)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Session expired")
	assertCookieCleared(t, rec)
}

func TestAuthMiddleware_ClearsInvalidCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{
		Name:  utils.CookieName,
		Value: "invalid-encrypted-value",
	})

	rec, _, _ := runMiddleware(t, newAuthService(), req)

	assertCookieCleared(t, rec)
}

func assertCookieCleared(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	var foundClearCookie bool
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == utils.CookieName && cookie.MaxAge == -1 {
			foundClearCookie = true
			break
		}
	}
	assert.True(t, foundClearCookie, "should set cookie with MaxAge=-1 to clear it")
}
