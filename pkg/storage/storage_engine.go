package storage

import (
	"context"
	"time"
)

// StorageEngine defines the interface for a storage backend that manages
// objects organized into buckets. Buckets are identified by their slug and
// objects by the pair (bucket slug, filename).
type StorageEngine interface {
	// CreateObject moves the file at sourcePath into the bucket under
	// filename, creating the bucket directory first if it is missing.
	CreateObject(ctx context.Context, bucket string, filename string, sourcePath string) error

	// ObjectExists reports whether a regular file is stored under filename in
	// the bucket. Absence is not an error.
	ObjectExists(ctx context.Context, bucket string, filename string) bool

	// DestroyObject permanently deletes the object. Both identifiers may be
	// percent-encoded.
	DestroyObject(ctx context.Context, bucket string, filename string) error

	// ObjectLocalPath returns the absolute path of an existing object so that
	// collaborators can read its bytes directly.
	ObjectLocalPath(ctx context.Context, bucket string, filename string) (string, error)

	// CreateBucket creates the bucket. Creating an existing bucket succeeds.
	CreateBucket(ctx context.Context, bucket string) error

	// DestroyBucket removes an empty bucket.
	DestroyBucket(ctx context.Context, bucket string) error
}

// URLGenerator renders public URLs for objects and processing endpoints.
// Every render method has a matching Scheme method that returns the URL shape
// with its {{token}} placeholders left in place.
type URLGenerator interface {
	URLServe(ctx context.Context, object string, bucket string, forceDownload bool) string
	URLServeScheme(ctx context.Context, forceDownload bool) string

	URLServeRaw(ctx context.Context, object string, bucket string) string
	URLServeRawScheme(ctx context.Context) string

	URLServeZipped(ctx context.Context, objectIDs []string, hash string, filename string) string
	URLServeZippedScheme(ctx context.Context) string

	URLCrop(ctx context.Context, object string, bucket string, width int, height int) string
	URLCropScheme(ctx context.Context) string

	URLScale(ctx context.Context, object string, bucket string, width int, height int) string
	URLScaleScheme(ctx context.Context) string

	URLPlaceholder(ctx context.Context, width int, height int, border int) string
	URLPlaceholderScheme(ctx context.Context) string

	URLBlankAvatar(ctx context.Context, width int, height int, sex string) string
	URLBlankAvatarScheme(ctx context.Context) string

	URLExpiring(ctx context.Context, object string, bucket string, expires time.Duration, forceDownload bool) (string, error)
	URLExpiringScheme(ctx context.Context) string
}
