package services

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/oauth2"

	"github.com/damacus/storx-files/internal/config"
)

// JWTExpiry is the lifetime of the signed client secret sent to StorX
const JWTExpiry = 30 * time.Minute

// AccessMode is sent as the access parameter of the authorization request
const AccessMode = "readwrite"

// ErrNoScopes means neither the request nor the configuration named a scope
var ErrNoScopes = errors.New("OAuth scopes are required")

// LoginService builds the StorX authorization redirect
type LoginService struct {
	cfg config.OAuthConfig
	now func() time.Time
}

func NewLoginService(cfg config.OAuthConfig) *LoginService {
	return &LoginService{cfg: cfg, now: time.Now}
}

// ResolveScopes prefers the comma-separated query value over configuration
func (s *LoginService) ResolveScopes(query string) []string {
	if scopes := config.ParseList(query); len(scopes) > 0 {
		return scopes
	}
	return s.cfg.Scopes
}

// AuthorizationURL returns the URL the browser is sent to. StorX expects
// one scope parameter per scope rather than a space-separated list, and no
// response_type.
func (s *LoginService) AuthorizationURL(state string, scopes []string) (string, error) {
	if err := s.cfg.Validate(); err != nil {
		return "", err
	}
	if len(scopes) == 0 {
		return "", ErrNoScopes
	}

	secret, err := CreateClientSecretJWT(s.cfg.ClientID, s.cfg.ClientSecret, s.now().Add(JWTExpiry))
	if err != nil {
		return "", err
	}

	oc := &oauth2.Config{
		ClientID:    s.cfg.ClientID,
		RedirectURL: s.cfg.RedirectURI,
		Endpoint:    oauth2.Endpoint{AuthURL: s.cfg.AuthorizeURL},
	}
	raw := oc.AuthCodeURL(state,
		oauth2.SetAuthURLParam("client_secret", secret),
		oauth2.SetAuthURLParam("access", AccessMode),
	)

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid authorization URL: %w", err)
	}
	q := u.Query()
	q.Del("response_type")
	q.Del("scope")
	for _, scope := range scopes {
		q.Add("scope", scope)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// CreateClientSecretJWT signs {client_id, exp} with the raw client secret
func CreateClientSecretJWT(clientID, clientSecret string, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"client_id": clientID,
		"exp":       expiresAt.Unix(),
	})
	signed, err := token.SignedString([]byte(clientSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign client secret: %w", err)
	}
	return signed, nil
}
