package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// Credentials are the S3-compatible keys obtained from an access grant.
// They are only trusted until ExpiresAt and are revalidated on every use.
type Credentials struct {
	Endpoint     string    `json:"endpoint"`
	AccessKey    string    `json:"accessKeyId"`
	SecretKey    string    `json:"secretAccessKey"`
	SessionToken string    `json:"sessionToken,omitempty"`
	Region       string    `json:"region,omitempty"`
	Bucket       string    `json:"bucket,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Expired reports whether the credentials carry an expiry that has passed
func (c Credentials) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Validate checks the structural requirements for talking to the gateway
func (c Credentials) Validate(now time.Time) error {
	if strings.TrimSpace(c.AccessKey) == "" || strings.TrimSpace(c.SecretKey) == "" {
		return &CredentialError{Reason: "access key and secret are required"}
	}
	if c.Expired(now) {
		return &CredentialError{Reason: "session expired", Err: ErrCredentialsExpired}
	}
	return nil
}

// AuthService seals credentials into the session cookie
type AuthService struct {
	encryptionKey []byte
	ttl           time.Duration
	now           func() time.Time
}

// NewAuthService creates an auth service. A key that is not exactly 32 bytes
// is replaced by a random one, so sessions do not survive a restart.
func NewAuthService(key string, ttl time.Duration) *AuthService {
	s := &AuthService{ttl: ttl, now: time.Now}
	if len(key) == 32 {
		s.encryptionKey = []byte(key)
		return s
	}
	newKey := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, newKey); err != nil {
		panic("failed to generate random key")
	}
	s.encryptionKey = newKey
	return s
}

// TTL is the lifetime given to sealed sessions
func (s *AuthService) TTL() time.Duration {
	return s.ttl
}

// Seal bounds the credentials by the session TTL and encrypts them. An
// earlier expiry already present on the credentials is kept.
func (s *AuthService) Seal(creds Credentials) (string, time.Time, error) {
	expires := s.now().Add(s.ttl)
	if !creds.ExpiresAt.IsZero() && creds.ExpiresAt.Before(expires) {
		expires = creds.ExpiresAt
	}
	creds.ExpiresAt = expires
	encrypted, err := s.EncryptCredentials(creds)
	if err != nil {
		return "", time.Time{}, err
	}
	return encrypted, expires, nil
}

// EncryptCredentials serializes and encrypts credentials into a string (for the cookie)
func (s *AuthService) EncryptCredentials(creds Credentials) (string, error) {
	data, err := json.Marshal(creds)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, data, nil)
	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// DecryptCredentials decodes the cookie value back into Credentials and
// rejects sessions whose credentials have expired
func (s *AuthService) DecryptCredentials(encrypted string) (*Credentials, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(s.encryptionKey)
	if err != nil {
		return nil, err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(ciphertext) < gcm.NonceSize() {
		return nil, errors.New("malformed ciphertext")
	}

	nonce, ciphertext := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return nil, err
	}

	if creds.Expired(s.now()) {
		return nil, &CredentialError{Reason: "session expired", Err: ErrCredentialsExpired}
	}

	return &creds, nil
}
