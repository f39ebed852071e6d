package storage

import (
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/markberger/awswrappers/internal/progress"
	"github.com/markberger/awswrappers/internal/s3_client"
	"github.com/spf13/afero"
)

// API is the subset of the S3 SDK client used by Client. *s3.Client satisfies
// it.
type API = s3_client.S3Client

// ProgressEvent is delivered to a ProgressFunc during uploads and downloads.
type ProgressEvent = progress.Event

// ProgressFunc observes transfer progress. It runs on its own goroutine and
// never delays the transfer.
type ProgressFunc = progress.Func

type options struct {
	key          *string
	api          API
	fs           afero.Fs
	progress     ProgressFunc
	storageClass types.StorageClass
}

// Option configures a Client.
type Option func(*options)

// WithKey sets the initial object key. It must not be blank.
func WithKey(key string) Option {
	return func(o *options) { o.key = &key }
}

// WithAPI injects the S3 client. Without it New builds one from the
// environment.
func WithAPI(api API) Option {
	return func(o *options) { o.api = api }
}

// WithFs sets the filesystem used for downloads and uploads.
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithProgress sets the transfer progress observer.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// WithDefaultStorageClass overrides the storage class used by Upload when the
// call does not name one.
func WithDefaultStorageClass(class types.StorageClass) Option {
	return func(o *options) { o.storageClass = class }
}

type uploadOptions struct {
	storageClass types.StorageClass
	contentType  string
}

// UploadOption configures a single Upload call.
type UploadOption func(*uploadOptions)

// WithStorageClass sets the storage class for one upload.
func WithStorageClass(class types.StorageClass) UploadOption {
	return func(o *uploadOptions) { o.storageClass = class }
}

// WithContentType skips content detection and uses contentType.
func WithContentType(contentType string) UploadOption {
	return func(o *uploadOptions) { o.contentType = contentType }
}
