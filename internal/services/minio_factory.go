package services

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// WrappedMinioClient wraps minio.Core to implement StorageClient. Core is
// needed for ListObjectsV2 with explicit continuation tokens.
type WrappedMinioClient struct {
	core   *minio.Core
	region string
}

func (c *WrappedMinioClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	buckets, err := c.core.Client.ListBuckets(ctx)
	if err != nil {
		return nil, classifyMinioError(err)
	}
	out := make([]BucketInfo, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, BucketInfo{Name: b.Name, CreationDate: b.CreationDate})
	}
	return out, nil
}

func (c *WrappedMinioClient) MakeBucket(ctx context.Context, bucketName string) error {
	return classifyMinioError(c.core.Client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{Region: c.region}))
}

func (c *WrappedMinioClient) RemoveBucket(ctx context.Context, bucketName string) error {
	return classifyMinioError(c.core.Client.RemoveBucket(ctx, bucketName))
}

func (c *WrappedMinioClient) ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	if err := ctx.Err(); err != nil {
		return ListObjectsResult{}, err
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultPageSize
	}

	res, err := c.core.ListObjectsV2(bucketName, opts.Prefix, "", opts.ContinuationToken, "", maxKeys)
	if err != nil {
		return ListObjectsResult{}, classifyMinioError(err)
	}

	objects := make([]ObjectInfo, 0, len(res.Contents))
	for _, obj := range res.Contents {
		objects = append(objects, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
		})
	}

	result := ListObjectsResult{
		Objects:     objects,
		IsTruncated: res.IsTruncated,
	}
	if res.IsTruncated {
		result.NextContinuationToken = res.NextContinuationToken
	}
	return result, nil
}

func (c *WrappedMinioClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	_, err := c.core.Client.PutObject(ctx, bucketName, objectName, reader, objectSize, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return classifyMinioError(err)
}

func (c *WrappedMinioClient) GetObjectReader(ctx context.Context, bucketName, objectName string) (io.ReadCloser, int64, error) {
	obj, err := c.core.Client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, classifyMinioError(err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, classifyMinioError(err)
	}
	return obj, info.Size, nil
}

func (c *WrappedMinioClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	return classifyMinioError(c.core.Client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{}))
}

func (c *WrappedMinioClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	u, err := c.core.Client.PresignedGetObject(ctx, bucketName, objectName, expires, nil)
	return u, classifyMinioError(err)
}

// MinioFactory builds minio-go clients against the StorX gateway
type MinioFactory struct {
	DefaultRegion string
}

func (f *MinioFactory) NewClient(creds Credentials) (StorageClient, error) {
	host, secure, err := parseEndpoint(creds.Endpoint)
	if err != nil {
		return nil, err
	}
	region := regionOrDefault(creds.Region, f.DefaultRegion)
	core, err := minio.NewCore(host, &minio.Options{
		Creds:        credentials.NewStaticV4(creds.AccessKey, creds.SecretKey, creds.SessionToken),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, err
	}
	return &WrappedMinioClient{core: core, region: region}, nil
}

func classifyMinioError(err error) error {
	if err == nil {
		return nil
	}
	if isAuthErrorCode(minio.ToErrorResponse(err).Code) {
		return &CredentialError{Reason: "rejected by storage endpoint", Err: err}
	}
	return err
}
