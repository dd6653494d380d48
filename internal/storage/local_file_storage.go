package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"strings"

	storageapi "cdnlocal/pkg/storage"
)

// LocalFileStorage is a StorageEngine implementation that keeps each bucket
// as a directory under the base path and each object as a regular file
// inside its bucket directory.
type LocalFileStorage struct {
	paths     PathResolver
	elevation storageapi.Elevation
}

var _ storageapi.StorageEngine = (*LocalFileStorage)(nil)

// NewLocalFileStorage creates a new LocalFileStorage rooted at basePath.
// elevation may be nil, in which case every caller is treated as
// non-elevated.
func NewLocalFileStorage(basePath string, elevation storageapi.Elevation) *LocalFileStorage {
	return &LocalFileStorage{
		paths:     NewPathResolver(basePath),
		elevation: elevation,
	}
}

// Paths returns the resolver used by this storage.
func (s *LocalFileStorage) Paths() PathResolver {
	return s.paths
}

func (s *LocalFileStorage) CreateObject(ctx context.Context, bucket string, filename string, sourcePath string) error {
	dir := s.paths.BucketPath(bucket)

	if !isDir(dir) {
		// Single level only; the base path itself must already exist.
		if err := os.Mkdir(dir, DirMode); err != nil && !errors.Is(err, fs.ErrExist) {
			slog.Warn("Failed to create bucket directory", "bucket", bucket, "path", dir, "error", err)
			return &storageapi.Error{
				Kind:    storageapi.DirectoryCreateFailed,
				Message: fmt.Sprintf("failed to create target directory %q", dir),
				Err:     err,
			}
		}
	}

	if !isWritable(dir) {
		slog.Warn("Bucket directory is not writable", "bucket", bucket, "path", dir)
		return &storageapi.Error{
			Kind:    storageapi.DirectoryNotWritable,
			Message: fmt.Sprintf("target directory %q is not writable", dir),
		}
	}

	dest := s.paths.ObjectPath(bucket, filename)
	if err := MoveFile(sourcePath, dest); err != nil {
		slog.Warn("Failed to move object into place", "source", sourcePath, "dest", dest, "error", err)
		return &storageapi.Error{
			Kind:    storageapi.ObjectWriteFailed,
			Message: "could not move uploaded file into place",
			Err:     err,
		}
	}

	slog.Debug("Created object", "bucket", bucket, "filename", filename, "path", dest)
	return nil
}

func (s *LocalFileStorage) ObjectExists(ctx context.Context, bucket string, filename string) bool {
	return isRegularFile(s.paths.ObjectPath(bucket, filename))
}

func (s *LocalFileStorage) DestroyObject(ctx context.Context, bucket string, filename string) error {
	bucket = unescape(bucket)
	filename = unescape(filename)

	if !isPathSegment(bucket) || !isPathSegment(filename) {
		return &storageapi.Error{
			Kind:    storageapi.ObjectDeleteFailed,
			Message: fmt.Sprintf("refusing to delete %q/%q outside its bucket", bucket, filename),
		}
	}

	path := s.paths.ObjectPath(bucket, filename)
	if !exists(path) {
		return &storageapi.Error{
			Kind:    storageapi.ObjectNotFound,
			Message: fmt.Sprintf("object %s/%s does not exist", bucket, filename),
		}
	}

	if isDir(path) {
		return &storageapi.Error{
			Kind:    storageapi.ObjectDeleteFailed,
			Message: fmt.Sprintf("object %s/%s is a directory", bucket, filename),
		}
	}

	if err := os.Remove(path); err != nil {
		slog.Warn("Failed to delete object", "bucket", bucket, "filename", filename, "error", err)
		return &storageapi.Error{
			Kind:    storageapi.ObjectDeleteFailed,
			Message: fmt.Sprintf("failed to delete object %s/%s", bucket, filename),
			Err:     err,
		}
	}

	// TODO: purge rendered derivatives once the orchestration layer exposes a cache handle.
	slog.Debug("Destroyed object", "bucket", bucket, "filename", filename)
	return nil
}

func (s *LocalFileStorage) ObjectLocalPath(ctx context.Context, bucket string, filename string) (string, error) {
	path := s.paths.ObjectPath(bucket, filename)
	if !isRegularFile(path) {
		return "", &storageapi.Error{
			Kind:    storageapi.ObjectNotFound,
			Message: fmt.Sprintf("could not find a valid local path for object %s/%s", bucket, filename),
		}
	}
	return path, nil
}

func (s *LocalFileStorage) CreateBucket(ctx context.Context, bucket string) error {
	dir := s.paths.BucketPath(bucket)

	if isDir(dir) {
		return nil
	}

	err := os.Mkdir(dir, DirMode)
	// Another caller may have created it between the check and the mkdir.
	if err == nil || (errors.Is(err, fs.ErrExist) && isDir(dir)) {
		slog.Debug("Created bucket", "bucket", bucket, "path", dir)
		return nil
	}

	slog.Warn("Failed to create bucket", "bucket", bucket, "path", dir, "error", err)

	msg := "failed to create bucket directory"
	if s.elevation != nil && s.elevation.IsElevated(ctx) {
		msg = fmt.Sprintf("failed to create bucket directory %q; check that it is writable", dir)
	}

	return &storageapi.Error{
		Kind:    storageapi.BucketCreateFailed,
		Message: msg,
		Err:     err,
	}
}

// DestroyBucket removes the bucket directory. Buckets still holding objects
// are refused rather than emptied.
func (s *LocalFileStorage) DestroyBucket(ctx context.Context, bucket string) error {
	dir := s.paths.BucketPath(bucket)

	if !isDir(dir) {
		return &storageapi.Error{
			Kind:    storageapi.BucketDeleteFailed,
			Message: fmt.Sprintf("bucket %q does not exist", bucket),
		}
	}

	empty, err := isEmptyDir(dir)
	if err != nil {
		return &storageapi.Error{
			Kind:    storageapi.BucketDeleteFailed,
			Message: fmt.Sprintf("failed to inspect bucket %q", bucket),
			Err:     err,
		}
	}
	if !empty {
		return &storageapi.Error{
			Kind:    storageapi.BucketDeleteFailed,
			Message: fmt.Sprintf("bucket %q is not empty", bucket),
		}
	}

	if err := os.Remove(dir); err != nil {
		slog.Warn("Failed to remove bucket", "bucket", bucket, "error", err)
		return &storageapi.Error{
			Kind:    storageapi.BucketDeleteFailed,
			Message: fmt.Sprintf("failed to remove bucket %q", bucket),
			Err:     err,
		}
	}

	slog.Debug("Destroyed bucket", "bucket", bucket)
	return nil
}

// unescape decodes percent-encoded identifiers, leaving malformed input as is.
func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

// isPathSegment reports whether a decoded identifier names a single entry,
// so it cannot climb out of the base or bucket directory.
func isPathSegment(s string) bool {
	return s != "" && s != "." && s != ".." && !strings.ContainsAny(s, "/"+string(os.PathSeparator))
}
