package handlers

import (
	"net/http"
	"strings"

	"github.com/damacus/storx-files/internal/services"
	"github.com/damacus/storx-files/internal/utils"
	"github.com/labstack/echo/v4"
)

// GetCredentials retrieves and validates credentials from the context
func GetCredentials(c echo.Context) (*services.Credentials, error) {
	val := c.Get(utils.ContextKeyCreds)
	if val == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	creds, ok := val.(*services.Credentials)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	}
	return creds, nil
}

// GetCredentialsOrRedirect retrieves credentials or redirects to login
func GetCredentialsOrRedirect(c echo.Context) (*services.Credentials, error) {
	creds, err := GetCredentials(c)
	if err != nil {
		return nil, c.Redirect(http.StatusSeeOther, "/")
	}
	return creds, nil
}

// ErrorResponse is the JSON body of a failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// badRequest answers a validation failure
func badRequest(c echo.Context, message string) error {
	return c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// storageFailure answers an SDK failure. Credential problems become 401 so
// the dashboard can send the user back to sign in.
func storageFailure(c echo.Context, summary string, err error) error {
	status := http.StatusInternalServerError
	if services.IsCredentialError(err) {
		status = http.StatusUnauthorized
	}
	c.Logger().Warnf("%s: %v", summary, err)
	return c.JSON(status, ErrorResponse{
		Error:   summary,
		Message: err.Error(),
		Code:    services.ErrorCode(err),
	})
}

// objectRequest is the body of the per-object routes
type objectRequest struct {
	Key    string `json:"key"`
	Bucket string `json:"bucket"`
}

// normalize trims the fields and returns a validation message, or ""
func (r *objectRequest) normalize() string {
	r.Key = strings.TrimSpace(r.Key)
	r.Bucket = strings.TrimSpace(r.Bucket)
	if r.Key == "" {
		return "Object key is required"
	}
	if r.Bucket == "" {
		return "Bucket name is required"
	}
	return ""
}

// bucketRequest is the body of the bucket routes
type bucketRequest struct {
	BucketName string `json:"bucketName"`
}

func (r *bucketRequest) normalize() string {
	r.BucketName = strings.TrimSpace(r.BucketName)
	if r.BucketName == "" {
		return "Bucket name is required"
	}
	return ""
}

func requestIsSecure(c echo.Context) bool {
	req := c.Request()
	if req.TLS != nil {
		return true
	}

	return strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https")
}
