package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// DeleteBatchSize is the number of keys removed per round
const DeleteBatchSize = 1000

// BucketCleaner empties and removes buckets
type BucketCleaner struct {
	concurrency int
}

func NewBucketCleaner(concurrency int) *BucketCleaner {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &BucketCleaner{concurrency: concurrency}
}

// DeleteBucket removes every object in the bucket and then the bucket itself.
// The count returned on failure covers the rounds that completed.
func (c *BucketCleaner) DeleteBucket(ctx context.Context, client StorageClient, bucketName string) (int, error) {
	objects, err := ListAllObjects(ctx, client, bucketName, "")
	if err != nil {
		return 0, fmt.Errorf("failed to list bucket %s: %w", bucketName, err)
	}

	deleted := 0
	for start := 0; start < len(objects); start += DeleteBatchSize {
		end := min(start+DeleteBatchSize, len(objects))
		batch := objects[start:end]

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.concurrency)
		for _, obj := range batch {
			obj := obj
			g.Go(func() error {
				if err := client.RemoveObject(gctx, bucketName, obj.Key); err != nil {
					return fmt.Errorf("failed to delete %s: %w", obj.Key, err)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return deleted, err
		}
		deleted += len(batch)
	}

	if err := client.RemoveBucket(ctx, bucketName); err != nil {
		return deleted, fmt.Errorf("failed to remove bucket %s: %w", bucketName, err)
	}
	return deleted, nil
}
