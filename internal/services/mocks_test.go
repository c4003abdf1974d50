package services

import (
	"context"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockStorageClient implements StorageClient for testing
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]BucketInfo), args.Error(1)
}

func (m *MockStorageClient) MakeBucket(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

func (m *MockStorageClient) RemoveBucket(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

func (m *MockStorageClient) ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(ListObjectsResult), args.Error(1)
}

func (m *MockStorageClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	args := m.Called(ctx, bucketName, objectName, reader, objectSize, contentType)
	return args.Error(0)
}

func (m *MockStorageClient) GetObjectReader(ctx context.Context, bucketName, objectName string) (io.ReadCloser, int64, error) {
	args := m.Called(ctx, bucketName, objectName)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.Error(2)
}

func (m *MockStorageClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	args := m.Called(ctx, bucketName, objectName)
	return args.Error(0)
}

func (m *MockStorageClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	args := m.Called(ctx, bucketName, objectName, expires)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*url.URL), args.Error(1)
}

// MockClientFactory hands out a fixed client
type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) NewClient(creds Credentials) (StorageClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(StorageClient), args.Error(1)
}

// recordingObserver captures listing metrics
type recordingObserver struct {
	mu       sync.Mutex
	skipped  []string
	buckets  int
	objects  int
	observed int
}

func (o *recordingObserver) ObserveListing(_ time.Duration, buckets, objects int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.observed++
	o.buckets = buckets
	o.objects = objects
}

func (o *recordingObserver) BucketSkipped(bucket string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, bucket)
}

func withToken(token string) interface{} {
	return mock.MatchedBy(func(opts ListObjectsOptions) bool {
		return opts.ContinuationToken == token
	})
}
