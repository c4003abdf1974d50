package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscredentials "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// AWSClient implements StorageClient on top of aws-sdk-go-v2
type AWSClient struct {
	s3Client *s3.Client
	presign  *s3.PresignClient
}

func (c *AWSClient) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	out, err := c.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, classifyAWSError(err)
	}
	buckets := make([]BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		buckets = append(buckets, BucketInfo{
			Name:         aws.ToString(b.Name),
			CreationDate: aws.ToTime(b.CreationDate),
		})
	}
	return buckets, nil
}

func (c *AWSClient) MakeBucket(ctx context.Context, bucketName string) error {
	_, err := c.s3Client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)})
	return classifyAWSError(err)
}

func (c *AWSClient) RemoveBucket(ctx context.Context, bucketName string) error {
	_, err := c.s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	return classifyAWSError(err)
}

func (c *AWSClient) ListObjectsPage(ctx context.Context, bucketName string, opts ListObjectsOptions) (ListObjectsResult, error) {
	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = DefaultPageSize
	}

	input := &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucketName),
		MaxKeys: aws.Int32(int32(maxKeys)),
	}
	if opts.Prefix != "" {
		input.Prefix = aws.String(opts.Prefix)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	}

	out, err := c.s3Client.ListObjectsV2(ctx, input)
	if err != nil {
		return ListObjectsResult{}, classifyAWSError(err)
	}

	objects := make([]ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		objects = append(objects, ObjectInfo{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	return ListObjectsResult{
		Objects:               objects,
		IsTruncated:           aws.ToBool(out.IsTruncated),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
	}, nil
}

func (c *AWSClient) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucketName),
		Key:           aws.String(objectName),
		Body:          reader,
		ContentLength: aws.Int64(objectSize),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	_, err := c.s3Client.PutObject(ctx, input)
	return classifyAWSError(err)
}

func (c *AWSClient) GetObjectReader(ctx context.Context, bucketName, objectName string) (io.ReadCloser, int64, error) {
	out, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	})
	if err != nil {
		return nil, 0, classifyAWSError(err)
	}
	return out.Body, aws.ToInt64(out.ContentLength), nil
}

func (c *AWSClient) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	})
	return classifyAWSError(err)
}

func (c *AWSClient) PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration) (*url.URL, error) {
	req, err := c.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(objectName),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return nil, classifyAWSError(err)
	}
	return url.Parse(req.URL)
}

// AWSFactory builds aws-sdk-go-v2 S3 clients against the StorX gateway
type AWSFactory struct {
	DefaultRegion string
}

func (f *AWSFactory) NewClient(creds Credentials) (StorageClient, error) {
	host, secure, err := parseEndpoint(creds.Endpoint)
	if err != nil {
		return nil, err
	}
	scheme := "http"
	if secure {
		scheme = "https"
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(regionOrDefault(creds.Region, f.DefaultRegion)),
		awsconfig.WithCredentialsProvider(awscredentials.NewStaticCredentialsProvider(
			creds.AccessKey, creds.SecretKey, creds.SessionToken,
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(scheme + "://" + host)
		o.UsePathStyle = true
	})
	return &AWSClient{s3Client: client, presign: s3.NewPresignClient(client)}, nil
}

func classifyAWSError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && isAuthErrorCode(apiErr.ErrorCode()) {
		return &CredentialError{Reason: "rejected by storage endpoint", Err: err}
	}
	return err
}
