package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/damacus/storx-files/internal/config"
	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
)

// stateCookieTTL bounds how long a login may take at StorX
const stateCookieTTL = 10 * time.Minute

type AuthHandler struct {
	authService  *services.AuthService
	loginService *services.LoginService
	exchanger    services.GrantExchanger
	factory      services.ClientFactory
}

func NewAuthHandler(authService *services.AuthService, loginService *services.LoginService,
	exchanger services.GrantExchanger, factory services.ClientFactory) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		loginService: loginService,
		exchanger:    exchanger,
		factory:      factory,
	}
}

// LoginPage renders the sign-in view, showing any ?error from the callback
func (h *AuthHandler) LoginPage(c echo.Context) error {
	// If already logged in (cookie exists AND is valid), redirect to dashboard
	if cookie, err := c.Cookie(utils.CookieName); err == nil {
		if _, err := h.authService.DecryptCredentials(cookie.Value); err == nil {
			return c.Redirect(http.StatusSeeOther, "/dashboard")
		}
		c.SetCookie(utils.ExpiredCookie(utils.CookieName))
	}
	return c.Render(http.StatusOK, "login", PageData{
		Title:     "Sign in",
		CSRFToken: csrfToken(c),
		Error:     c.QueryParam("error"),
	})
}

// Login starts the StorX OAuth flow
func (h *AuthHandler) Login(c echo.Context) error {
	scopes := h.loginService.ResolveScopes(c.QueryParam("scopes"))
	state := uuid.NewString()

	authURL, err := h.loginService.AuthorizationURL(state, scopes)
	if err != nil {
		if errors.Is(err, services.ErrNoScopes) {
			return c.JSON(http.StatusBadRequest, map[string]interface{}{
				"error":   "OAuth scopes are required",
				"message": "Please configure OAuth scopes using one of the following methods:",
				"methods": []string{
					"Set " + config.EnvOAuthScopes + " in your environment variables (e.g., " + config.EnvOAuthScopes + "=read,write,list)",
					"Pass scopes as query parameter: /api/auth/login?scopes=read,write,list",
				},
				"example": "Set in .env.local: " + config.EnvOAuthScopes + "=read,write,list",
			})
		}
		c.Logger().Errorf("failed to initiate OAuth flow: %v", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "Failed to initiate OAuth flow",
			Message: err.Error(),
		})
	}

	c.SetCookie(&http.Cookie{
		Name:     utils.StateCookieName,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int(stateCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   requestIsSecure(c),
	})

	c.Logger().Infof("redirecting to StorX authorization with %d scopes", len(scopes))
	return c.Redirect(http.StatusFound, authURL)
}

// Callback exchanges the access grant, validates the resulting credentials
// and seals them into the session cookie
func (h *AuthHandler) Callback(c echo.Context) error {
	if oauthErr := c.QueryParam("error"); oauthErr != "" {
		return loginError(c, oauthErr)
	}

	grant := c.QueryParam("access_grant")
	if grant == "" {
		return loginError(c, "missing_access_grant")
	}

	// StorX does not always echo state back; when it does it must match
	if state := c.QueryParam("state"); state != "" {
		cookie, err := c.Cookie(utils.StateCookieName)
		if err != nil || cookie.Value != state {
			return loginError(c, "invalid_state")
		}
	}
	c.SetCookie(&http.Cookie{Name: utils.StateCookieName, Path: "/api/auth", MaxAge: -1, HttpOnly: true})

	ctx := c.Request().Context()
	creds, err := h.exchanger.Exchange(ctx, grant)
	if err != nil {
		c.Logger().Warnf("grant exchange failed: %v", err)
		return loginError(c, "grant_exchange_failed")
	}

	client, err := h.factory.NewClient(creds)
	if err != nil {
		c.Logger().Warnf("invalid gateway endpoint %q: %v", creds.Endpoint, err)
		return loginError(c, "invalid_endpoint")
	}
	if err := services.ValidateCredentials(ctx, client); err != nil {
		c.Logger().Warnf("credential validation failed: %v", err)
		var terr *services.TransportError
		if errors.As(err, &terr) {
			return loginError(c, "gateway_unreachable")
		}
		return loginError(c, "invalid_credentials")
	}

	sealed, expires, err := h.authService.Seal(creds)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Failed to create session"})
	}

	c.SetCookie(&http.Cookie{
		Name:     utils.CookieName,
		Value:    sealed,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   requestIsSecure(c),
	})
	return c.Redirect(http.StatusSeeOther, "/dashboard")
}

// Logout clears the session
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie := utils.ExpiredCookie(utils.CookieName)
	cookie.Expires = time.Now().Add(-1 * time.Hour)
	cookie.Secure = requestIsSecure(c)
	c.SetCookie(cookie)
	return c.JSON(http.StatusOK, map[string]bool{"success": true})
}

// SessionResponse describes the signed-in session to the browser
type SessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	Endpoint      string    `json:"endpoint"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CSRFToken     string    `json:"csrfToken"`
}

// Session reports the current session; the auth middleware has already
// rejected requests without one
func (h *AuthHandler) Session(c echo.Context) error {
	creds, err := GetCredentials(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, SessionResponse{
		Authenticated: true,
		Endpoint:      creds.Endpoint,
		ExpiresAt:     creds.ExpiresAt,
		CSRFToken:     csrfToken(c),
	})
}

func loginError(c echo.Context, code string) error {
	return c.Redirect(http.StatusSeeOther, "/?error="+url.QueryEscape(code))
}

func csrfToken(c echo.Context) string {
	token, _ := c.Get(utils.ContextKeyCSRF).(string)
	return token
}
