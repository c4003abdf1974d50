// Package utils provides shared utility functions and constants
package utils

import "net/http"

// ContextKeyCreds is the key used to store credentials in the echo context
const ContextKeyCreds = "creds"

// ContextKeyCSRF is where the CSRF middleware leaves the request token
const ContextKeyCSRF = "csrf"

// CookieName is the name of the session cookie holding sealed credentials
const CookieName = "StorXSeal"

// StateCookieName carries the OAuth state between login and callback
const StateCookieName = "storx_oauth_state"

// ExpiredCookie returns a cookie that tells the browser to drop name
func ExpiredCookie(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
