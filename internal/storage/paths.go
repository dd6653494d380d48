package storage

import (
	"os"
	"strings"
)

const separator = "/"

// separators covers "/" plus the platform separator.
var separators = separator + string(os.PathSeparator)

// PathResolver joins the configured base storage path with bucket slugs and
// filenames. It performs no I/O and no validation.
type PathResolver struct {
	base string
}

// NewPathResolver normalizes base so that it carries exactly one trailing
// separator.
func NewPathResolver(base string) PathResolver {
	return PathResolver{base: strings.TrimRight(base, separators) + separator}
}

// Base returns the normalized base path, including its trailing separator.
func (p PathResolver) Base() string {
	return p.base
}

// BucketPath returns the directory backing bucket.
func (p PathResolver) BucketPath(bucket string) string {
	return p.base + strings.Trim(bucket, separators)
}

// ObjectPath returns the file backing filename inside bucket.
func (p PathResolver) ObjectPath(bucket string, filename string) string {
	return p.BucketPath(bucket) + separator + strings.TrimLeft(filename, separators)
}
