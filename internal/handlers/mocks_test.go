package handlers

import (
	"context"
	"html/template"
	"io"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/damacus/storx-files/internal/services"
)

// MockStorageClient implements services.StorageClient for testing
type MockStorageClient struct {
	mock.Mock
}

func (m *MockStorageClient) ListBuckets(ctx context.Context) ([]services.BucketInfo, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.BucketInfo), args.Error(1)
}

func (m *MockStorageClient) MakeBucket(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

func (m *MockStorageClient) RemoveBucket(ctx context.Context, bucketName string) error {
	args := m.Called(ctx, bucketName)
	return args.Error(0)
}

func (m *MockStorageClient) ListObjectsPage(ctx context.Context, bucketName string, opts services.ListObjectsOptions) (services.ListObjectsResult, error) {
	args := m.Called(ctx, bucketName, opts)
	return args.Get(0).(services.ListObjectsResult), args.Error(1)
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

// MockClientFactory hands out the configured client
type MockClientFactory struct {
	mock.Mock
}

func (m *MockClientFactory) NewClient(creds services.Credentials) (services.StorageClient, error) {
	args := m.Called(creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(services.StorageClient), args.Error(1)
}

// MockGrantExchanger implements services.GrantExchanger
type MockGrantExchanger struct {
	mock.Mock
}

func (m *MockGrantExchanger) Exchange(ctx context.Context, accessGrant string) (services.Credentials, error) {
	args := m.Called(ctx, accessGrant)
	return args.Get(0).(services.Credentials), args.Error(1)
}

// MockRenderer records the template name and data it was asked to render
type MockRenderer struct {
	Name string
	Data interface{}
}

func (r *MockRenderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	r.Name = name
	r.Data = data
	return template.Must(template.New(name).Parse(name)).Execute(w, nil)
}

type fileEvents struct {
	uploads []int64
	deleted int
}

func (f *fileEvents) ObserveUpload(size int64) { f.uploads = append(f.uploads, size) }
func (f *fileEvents) BucketDeleted()           { f.deleted++ }
