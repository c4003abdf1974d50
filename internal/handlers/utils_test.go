package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestGetCredentials_WithValidCredentials(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	expectedCreds := &services.Credentials{
		Endpoint:  "localhost:9000",
		AccessKey: "admin",
		SecretKey: "password",
	}
	c.Set(utils.ContextKeyCreds, expectedCreds)

	creds, err := GetCredentials(c)

	assert.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Equal(t, expectedCreds.Endpoint, creds.Endpoint)
	assert.Equal(t, expectedCreds.AccessKey, creds.AccessKey)
	assert.Equal(t, expectedCreds.SecretKey, creds.SecretKey)
}

func TestGetCredentials_WithoutCredentials(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	creds, err := GetCredentials(c)

	assert.Error(t, err)
	assert.Nil(t, creds)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetCredentials_WithWrongType(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Set wrong type in context
	c.Set(utils.ContextKeyCreds, "not-credentials")

	creds, err := GetCredentials(c)

	assert.Error(t, err)
	assert.Nil(t, creds)

	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestGetCredentialsOrRedirect_WithValidCredentials(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	expectedCreds := &services.Credentials{
		Endpoint:  "localhost:9000",
		AccessKey: "admin",
		SecretKey: "password",
	}
	c.Set(utils.ContextKeyCreds, expectedCreds)

	creds, err := GetCredentialsOrRedirect(c)

	assert.NoError(t, err)
	assert.NotNil(t, creds)
	assert.Equal(t, expectedCreds.Endpoint, creds.Endpoint)
}

func TestGetCredentialsOrRedirect_WithoutCredentials(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	creds, err := GetCredentialsOrRedirect(c)

	assert.Nil(t, creds)
	// err is nil because redirect returns nil error
	assert.Nil(t, err)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestObjectRequest_Normalize(t *testing.T) {
	req := objectRequest{Key: "  docs/a.txt ", Bucket: " files "}
	assert.Empty(t, req.normalize())
	assert.Equal(t, "docs/a.txt", req.Key)
	assert.Equal(t, "files", req.Bucket)

	req = objectRequest{Key: "   ", Bucket: "files"}
	assert.Equal(t, "Object key is required", req.normalize())

	req = objectRequest{Key: "a"}
	assert.Equal(t, "Bucket name is required", req.normalize())
}

func TestBucketRequest_Normalize(t *testing.T) {
	req := bucketRequest{BucketName: " photos "}
	assert.Empty(t, req.normalize())
	assert.Equal(t, "photos", req.BucketName)

	req = bucketRequest{}
	assert.Equal(t, "Bucket name is required", req.normalize())
}
