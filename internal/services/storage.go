package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

// DefaultPageSize is the number of keys requested per listing page
const DefaultPageSize = 1000

// ListObjectsOptions selects one page of a bucket listing
type ListObjectsOptions struct {
	Prefix            string
	MaxKeys           int
	ContinuationToken string
}

// ListObjectsResult is one page of a bucket listing. An empty
// NextContinuationToken means the listing is complete.
type ListObjectsResult struct {
	Objects               []ObjectInfo
	IsTruncated           bool
	NextContinuationToken string
}

// BucketInfo describes a bucket visible to the credentials
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ObjectInfo describes one stored object
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// StorageClient is the set of S3 operations the dashboard uses
type StorageClient interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	MakeBucket(ctx context.Context, bucketName string) error
	RemoveBucket(ctx context.Context, bucketName string) error

	// Object Operations
	ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error)
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error
	GetObjectReader(ctx context.Context, bucketName, objectName string) (io.ReadCloser, int64, error)
	RemoveObject(ctx context.Context, bucketName, objectName string) error

	// Presigned URLs
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error)
}

// ClientFactory creates authenticated clients
type ClientFactory interface {
	NewClient(creds Credentials) (StorageClient, error)
}

// NewClientFactory returns the factory for the configured S3 driver
func NewClientFactory(driver, defaultRegion string) (ClientFactory, error) {
	switch driver {
	case "", "minio":
		return &MinioFactory{DefaultRegion: defaultRegion}, nil
	case "aws":
		return &AWSFactory{DefaultRegion: defaultRegion}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}
}

// ListAllObjects follows continuation tokens until the listing is complete
func ListAllObjects(ctx context.Context, client StorageClient, bucketName, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	token := ""
	for {
		page, err := client.ListObjectsPage(ctx, bucketName, ListObjectsOptions{
			Prefix:            prefix,
			MaxKeys:           DefaultPageSize,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, err
		}
		objects = append(objects, page.Objects...)

		if page.NextContinuationToken == "" {
			return objects, nil
		}
		if page.NextContinuationToken == token {
			return nil, fmt.Errorf("listing %s did not advance past token %q", bucketName, token)
		}
		token = page.NextContinuationToken
	}
}

// shouldUseSSL determines if SSL should be used for an endpoint given without a scheme.
// Returns false for localhost, 127.0.0.1, and docker service names.
func shouldUseSSL(endpoint string) bool {
	// Local development endpoints
	if endpoint == "localhost:9000" || endpoint == "127.0.0.1:9000" {
		return false
	}
	// Docker service names (minio:9000, gateway:7777, ...)
	// Only match simple hostnames without dots (not domain names like gateway.storx.io)
	host, port, found := strings.Cut(endpoint, ":")
	if found && !strings.Contains(host, ".") && host != "localhost" && (port == "9000" || port == "7777") {
		return false
	}
	return true
}

// parseEndpoint accepts "https://gateway.storx.io" as well as a bare
// "host:port" and returns the host and whether TLS is used.
func parseEndpoint(endpoint string) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("storage endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		host := strings.TrimRight(endpoint, "/")
		return host, shouldUseSSL(host), nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid storage endpoint: %w", err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid storage endpoint %q", endpoint)
	}
	switch u.Scheme {
	case "https":
		return u.Host, true, nil
	case "http":
		return u.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported endpoint scheme %q", u.Scheme)
	}
}

func regionOrDefault(region, fallback string) string {
	if region != "" {
		return region
	}
	if fallback != "" {
		return fallback
	}
	return "us-east-1"
}
