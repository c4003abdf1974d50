package services

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
	"github.com/minio/minio-go/v7"
)

// ErrCredentialsExpired is wrapped by a CredentialError once ExpiresAt has passed
var ErrCredentialsExpired = errors.New("credentials expired")

// CredentialError means the access key or secret is missing, expired or was
// rejected by the storage endpoint. It is always fatal to the caller.
type CredentialError struct {
	Reason string
	Err    error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid credentials: %s: %v", e.Reason, e.Err)
	}
	return "invalid credentials: " + e.Reason
}

func (e *CredentialError) Unwrap() error { return e.Err }

// TransportError is a network or service failure during a required step
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsCredentialError reports whether err carries a CredentialError
func IsCredentialError(err error) bool {
	var cerr *CredentialError
	return errors.As(err, &cerr)
}

// authErrorCodes are S3 error codes meaning the endpoint refused the keys
var authErrorCodes = map[string]bool{
	"AccessDenied":          true,
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
}

func isAuthErrorCode(code string) bool {
	return authErrorCodes[code]
}

// ErrorCode extracts the S3 error code from either driver's error, or ""
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return minioErr.Code
	}
	return ""
}
