package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/damacus/storx-files/internal/models"
	"github.com/damacus/storx-files/internal/utils"
)

// UploadedAtLayout is the ISO-8601 form used for uploadedAt
const UploadedAtLayout = "2006-01-02T15:04:05.000Z"

// Logger is the subset of echo.Logger the services use
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// ListObserver receives listing measurements
type ListObserver interface {
	ObserveListing(d time.Duration, buckets, objects int)
	BucketSkipped(bucket string)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{}) {}
func (nopLogger) Warnf(string, ...interface{}) {}

type nopObserver struct{}

func (nopObserver) ObserveListing(time.Duration, int, int) {}
func (nopObserver) BucketSkipped(string)                   {}

// Lister builds the aggregated listing across every bucket
type Lister struct {
	factory     ClientFactory
	concurrency int
	logger      Logger
	observer    ListObserver
	now         func() time.Time
}

// NewLister creates a Lister. A nil logger or observer is replaced by a no-op.
func NewLister(factory ClientFactory, concurrency int, logger Logger, observer ListObserver) *Lister {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Lister{
		factory:     factory,
		concurrency: concurrency,
		logger:      logger,
		observer:    observer,
		now:         time.Now,
	}
}

// ListAll returns every object in every bucket the credentials can see.
//
// Only credential problems are fatal. A failed ListBuckets degrades to an
// empty result, and a bucket whose listing fails contributes no files but
// stays in the bucket set.
func (l *Lister) ListAll(ctx context.Context, creds Credentials) (models.ListResult, error) {
	result := models.ListResult{Files: []models.FileRecord{}, Buckets: []string{}}

	if err := creds.Validate(l.now()); err != nil {
		return result, err
	}

	client, err := l.factory.NewClient(creds)
	if err != nil {
		return result, &CredentialError{Reason: "cannot build storage client", Err: err}
	}

	start := l.now()
	buckets, err := client.ListBuckets(ctx)
	if err != nil {
		if IsCredentialError(err) {
			return result, err
		}
		l.logger.Warnf("listing buckets failed, returning empty result: %v", err)
		return result, nil
	}

	seen := make(map[string]bool, len(buckets))
	addBucket := func(name string) {
		if !seen[name] {
			seen[name] = true
			result.Buckets = append(result.Buckets, name)
		}
	}
	for _, bucket := range buckets {
		addBucket(bucket.Name)
	}

	names := append([]string(nil), result.Buckets...)
	perBucket := make([][]models.FileRecord, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			objects, err := ListAllObjects(gctx, client, name, "")
			if err != nil {
				l.logger.Warnf("skipping bucket %s: %v", name, err)
				l.observer.BucketSkipped(name)
				return nil
			}
			records := make([]models.FileRecord, 0, len(objects))
			for _, obj := range objects {
				records = append(records, NewFileRecord(name, obj))
			}
			perBucket[i] = records
			return nil
		})
	}
	// Per-bucket failures are swallowed above, so Wait only reports nil.
	_ = g.Wait()

	for _, records := range perBucket {
		result.Files = append(result.Files, records...)
	}
	for _, f := range result.Files {
		addBucket(f.Bucket)
	}

	l.observer.ObserveListing(l.now().Sub(start), len(result.Buckets), len(result.Files))
	l.logger.Infof("listed %d objects across %d buckets", len(result.Files), len(result.Buckets))
	return result, nil
}

// NewFileRecord converts a storage object into its dashboard record
func NewFileRecord(bucket string, obj ObjectInfo) models.FileRecord {
	record := models.FileRecord{
		ID:       obj.Key,
		FileName: utils.BaseName(obj.Key),
		Size:     utils.FormatMegabytes(obj.Size),
		Key:      obj.Key,
		Bucket:   bucket,
	}
	if !obj.LastModified.IsZero() {
		record.UploadedAt = obj.LastModified.UTC().Format(UploadedAtLayout)
	}
	return record
}

// ValidateCredentials performs one authenticated call so a fresh login can
// be rejected before it is sealed into a session.
func ValidateCredentials(ctx context.Context, client StorageClient) error {
	if _, err := client.ListBuckets(ctx); err != nil {
		if IsCredentialError(err) {
			return err
		}
		return &TransportError{Op: "list buckets", Err: err}
	}
	return nil
}
