// Package storage is a small facade over S3 scoped to one bucket and,
// optionally, one key.
//
// The client lists, inspects, downloads, uploads, moves and checks objects.
// Every method is a thin pass-through to the AWS SDK: pagination, multipart
// transfers, retries and authentication are the SDK's responsibility.
//
// Failures are *wraperr.Error values. List, metadata and upload failures are
// wraperr.ErrStorageOperation; download and move failures are
// wraperr.ErrNotFound. The SDK error is always reachable with errors.As.
//
// Move is a copy followed by a delete and is not atomic. When the delete
// fails the object exists at both the source and the destination; the error
// is returned and nothing is rolled back.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"
	"github.com/markberger/awswrappers/internal/config"
	"github.com/markberger/awswrappers/internal/dirhelper"
	"github.com/markberger/awswrappers/internal/progress"
	"github.com/markberger/awswrappers/internal/s3_client"
	"github.com/markberger/awswrappers/metrics"
	"github.com/markberger/awswrappers/wraperr"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// PartSize is the multipart threshold and part size for transfers.
	PartSize = 10 * 1024 * 1024

	// DefaultStorageClass is used by Upload unless overridden.
	DefaultStorageClass = types.StorageClassReducedRedundancy

	service = "s3"
)

// ObjectStore is implemented by Client.
type ObjectStore interface {
	ListObjects(ctx context.Context) ([]ObjectDescriptor, error)
	GetObjectMetadata(ctx context.Context) (ObjectDescriptor, error)
	DownloadTo(ctx context.Context, localPath string) error
	MoveTo(ctx context.Context, destinationKey string) error
	MoveToBucket(ctx context.Context, destinationBucket, destinationKey string) error
	Upload(ctx context.Context, localPath string, opts ...UploadOption) error
	Exists(ctx context.Context) (bool, error)
	ExistsKey(ctx context.Context, key string) (bool, error)
	Close() error
}

var _ ObjectStore = (*Client)(nil)

// Client operates on a single bucket. The bucket is fixed at construction;
// the key may be changed with SetKey.
type Client struct {
	mu  sync.RWMutex
	api API
	key string

	bucket       string
	fs           afero.Fs
	progress     ProgressFunc
	storageClass types.StorageClass
}

// New returns a Client for bucket. Without WithAPI the S3 client is built
// from the AWSW_* environment variables.
func New(ctx context.Context, bucket string, opts ...Option) (*Client, error) {
	const op = "new storage client"

	if strings.TrimSpace(bucket) == "" {
		return nil, wraperr.Validation(op, "bucket name cannot be empty or whitespace")
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var key string
	if o.key != nil {
		if strings.TrimSpace(*o.key) == "" {
			return nil, wraperr.Validation(op, "key cannot be empty or whitespace")
		}
		key = *o.key
	}

	if o.api == nil {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.ApplyLogLevel(); err != nil {
			return nil, err
		}
		metrics.EnsureInit(ctx, cfg.Metrics)

		api, err := s3_client.CreateS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		o.api = api
		if o.storageClass == "" {
			o.storageClass = types.StorageClass(cfg.S3.StorageClass)
		}
	}

	if o.fs == nil {
		o.fs = afero.NewOsFs()
	}
	if o.progress == nil {
		o.progress = progress.Log
	}
	if o.storageClass == "" {
		o.storageClass = DefaultStorageClass
	}

	return &Client{
		api:          o.api,
		key:          key,
		bucket:       bucket,
		fs:           o.fs,
		progress:     o.progress,
		storageClass: o.storageClass,
	}, nil
}

// Bucket returns the bucket the client was built for.
func (c *Client) Bucket() string {
	return c.bucket
}

// Key returns the current object key, which may be empty.
func (c *Client) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

// SetKey changes the key used by subsequent operations.
func (c *Client) SetKey(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
}

// Close releases the underlying S3 client. Subsequent calls return
// wraperr.ErrClosed; closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.api == nil {
		return nil
	}
	api := c.api
	c.api = nil

	log.WithField("bucket", c.bucket).Debug("Closing storage client")
	if closer, ok := api.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) session(op string) (API, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.api == nil {
		return nil, "", wraperr.Closed(op, wraperr.ObjectURI(c.bucket, c.key))
	}
	return c.api, c.key, nil
}

// sessionWithKey is session for operations that address a single object.
func (c *Client) sessionWithKey(op string) (API, string, error) {
	api, key, err := c.session(op)
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(key) == "" {
		return nil, "", wraperr.Validation(op, "key is not set")
	}
	return api, key, nil
}

// ListObjects returns every object under the current key, used as a prefix.
// All pages are fetched before returning; a failure on any page fails the
// whole call.
func (c *Client) ListObjects(ctx context.Context) (objects []ObjectDescriptor, err error) {
	const op = "list objects"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "list_objects", start, err) }()

	api, prefix, err := c.session(op)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"bucket": c.bucket,
		"prefix": prefix,
	}).Debug("Listing objects")

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(c.bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}

	objects = []ObjectDescriptor{}
	paginator := s3.NewListObjectsV2Paginator(api, input)
	for paginator.HasMorePages() {
		page, pageErr := paginator.NextPage(ctx)
		if pageErr != nil {
			return nil, wraperr.StorageOperation(op, wraperr.ObjectURI(c.bucket, prefix), pageErr)
		}
		for _, obj := range page.Contents {
			objects = append(objects, descriptorFromObject(obj))
		}
	}

	return objects, nil
}

// GetObjectMetadata returns the descriptor of the current key.
func (c *Client) GetObjectMetadata(ctx context.Context) (desc ObjectDescriptor, err error) {
	const op = "get object metadata"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "get_object_metadata", start, err) }()

	api, key, err := c.sessionWithKey(op)
	if err != nil {
		return ObjectDescriptor{}, err
	}

	out, err := api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return ObjectDescriptor{}, wraperr.StorageOperation(op, wraperr.ObjectURI(c.bucket, key), err)
	}

	return descriptorFromHead(key, out), nil
}

// DownloadTo writes the current object to localPath, creating missing parent
// directories first. A partially written file is removed on failure.
func (c *Client) DownloadTo(ctx context.Context, localPath string) (err error) {
	const op = "download object"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "download", start, err) }()

	api, key, err := c.sessionWithKey(op)
	if err != nil {
		return err
	}
	target := dirhelper.NormalizePath(localPath)
	if target == "" {
		return wraperr.Validation(op, "local path cannot be empty")
	}
	resource := wraperr.ObjectURI(c.bucket, key)

	if err := dirhelper.EnsureDirectory(c.fs, filepath.Dir(target)); err != nil {
		return wraperr.NotFound(op, resource, err)
	}

	head, err := api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wraperr.NotFound(op, resource, err)
	}

	file, err := c.fs.Create(target)
	if err != nil {
		return wraperr.NotFound(op, resource, err)
	}

	log.WithFields(log.Fields{
		"bucket": c.bucket,
		"key":    key,
		"path":   target,
	}).Debug("Downloading object")

	reporter := progress.NewReporter(key, aws.ToInt64(head.ContentLength), c.progress)
	downloader := manager.NewDownloader(api, func(d *manager.Downloader) {
		d.PartSize = PartSize
	})
	_, dlErr := downloader.Download(ctx, reporter.WriterAt(file), &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	reporter.Close()

	if closeErr := file.Close(); dlErr == nil {
		dlErr = closeErr
	}
	if dlErr != nil {
		if rmErr := c.fs.Remove(target); rmErr != nil {
			log.WithError(rmErr).WithField("path", target).Warn("Failed to remove partial download")
		}
		return wraperr.NotFound(op, resource, dlErr)
	}

	log.WithFields(log.Fields{
		"bucket": c.bucket,
		"key":    key,
		"bytes":  reporter.Transferred(),
	}).Info("Downloaded object")
	return nil
}

// MoveTo moves the current object to destinationKey in the same bucket.
func (c *Client) MoveTo(ctx context.Context, destinationKey string) error {
	return c.MoveToBucket(ctx, c.bucket, destinationKey)
}

// MoveToBucket copies the current object to destinationBucket and then
// deletes the source. If the delete fails the copy is left in place.
func (c *Client) MoveToBucket(ctx context.Context, destinationBucket, destinationKey string) (err error) {
	const op = "move object"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "move", start, err) }()

	if strings.TrimSpace(destinationBucket) == "" {
		return wraperr.Validation(op, "destination bucket cannot be empty or whitespace")
	}
	if strings.TrimSpace(destinationKey) == "" {
		return wraperr.Validation(op, "destination key cannot be empty or whitespace")
	}

	api, key, err := c.sessionWithKey(op)
	if err != nil {
		return err
	}
	resource := fmt.Sprintf("%s > %s",
		wraperr.ObjectURI(c.bucket, key),
		wraperr.ObjectURI(destinationBucket, destinationKey),
	)

	_, err = api.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(destinationBucket),
		Key:        aws.String(destinationKey),
		CopySource: aws.String(copySource(c.bucket, key)),
	})
	if err != nil {
		return wraperr.NotFound(op, resource, err)
	}

	_, err = api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"source":      wraperr.ObjectURI(c.bucket, key),
			"destination": wraperr.ObjectURI(destinationBucket, destinationKey),
		}).Warn("Object copied but source not deleted; it now exists at both locations")
		return wraperr.NotFound(op, resource, err)
	}

	log.WithFields(log.Fields{
		"source":      wraperr.ObjectURI(c.bucket, key),
		"destination": wraperr.ObjectURI(destinationBucket, destinationKey),
	}).Info("Moved object")
	return nil
}

// copySource escapes each key segment but keeps the separators. A literal
// plus is escaped too, since S3 would otherwise read it as a space.
func copySource(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = strings.ReplaceAll(url.PathEscape(s), "+", "%2B")
	}
	return bucket + "/" + strings.Join(segments, "/")
}

// Upload sends the file at localPath to the current key with a
// bucket-owner-read ACL. Files larger than PartSize are sent in parts.
func (c *Client) Upload(ctx context.Context, localPath string, opts ...UploadOption) (err error) {
	const op = "upload object"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "upload", start, err) }()

	api, key, err := c.sessionWithKey(op)
	if err != nil {
		return err
	}

	uo := uploadOptions{storageClass: c.storageClass}
	for _, opt := range opts {
		opt(&uo)
	}

	source := dirhelper.NormalizePath(localPath)
	if source == "" {
		return wraperr.Validation(op, "local path cannot be empty")
	}
	resource := fmt.Sprintf("%s > %s", source, wraperr.ObjectURI(c.bucket, key))

	info, err := c.fs.Stat(source)
	if err != nil {
		return wraperr.StorageOperation(op, resource, err)
	}
	if info.IsDir() {
		return wraperr.StorageOperation(op, resource, fmt.Errorf("%s is a directory", source))
	}

	file, err := c.fs.Open(source)
	if err != nil {
		return wraperr.StorageOperation(op, resource, err)
	}
	defer file.Close()

	if uo.contentType == "" {
		uo.contentType, err = detectContentType(file)
		if err != nil {
			return wraperr.StorageOperation(op, resource, err)
		}
	}

	log.WithFields(log.Fields{
		"bucket":        c.bucket,
		"key":           key,
		"path":          source,
		"storage_class": uo.storageClass,
	}).Debug("Uploading object")

	reporter := progress.NewReporter(key, info.Size(), c.progress)
	uploader := manager.NewUploader(api, func(u *manager.Uploader) {
		u.PartSize = PartSize
	})
	out, upErr := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(key),
		Body:         reporter.Reader(file),
		StorageClass: uo.storageClass,
		ACL:          types.ObjectCannedACLBucketOwnerRead,
		ContentType:  aws.String(uo.contentType),
	})
	reporter.Close()
	if upErr != nil {
		return wraperr.StorageOperation(op, resource, upErr)
	}

	log.WithFields(log.Fields{
		"bucket":   c.bucket,
		"key":      key,
		"location": out.Location,
	}).Info("Uploaded object")
	return nil
}

func detectContentType(file afero.File) (string, error) {
	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("detect content type: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", file.Name(), err)
	}
	return mtype.String(), nil
}

// Exists reports whether the current key exists and is non-empty.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	return c.ExistsKey(ctx, c.Key())
}

// ExistsKey reports whether key exists in the bucket with a non-zero length.
// A not-found response yields false with a nil error; any other SDK error is
// returned unchanged. A blank key is rejected with wraperr.ErrValidation.
func (c *Client) ExistsKey(ctx context.Context, key string) (exists bool, err error) {
	const op = "check object"
	start := time.Now()
	defer func() { metrics.RecordOperation(ctx, service, "exists", start, err) }()

	api, _, err := c.session(op)
	if err != nil {
		return false, err
	}
	if strings.TrimSpace(key) == "" {
		return false, wraperr.Validation(op, "key is not set")
	}

	out, err := api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return aws.ToInt64(out.ContentLength) > 0, nil
}
