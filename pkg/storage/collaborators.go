package storage

import "context"

// SecureDetector reports whether the request carried by ctx should receive
// URLs pointing at the secure endpoints.
type SecureDetector interface {
	IsSecure(ctx context.Context) bool
}

// URLQualifier turns a site-relative path into a fully qualified URL.
type URLQualifier interface {
	QualifyURL(path string) string
}

// TokenEncoder symmetrically encodes expiring-URL tokens with the server
// secret.
type TokenEncoder interface {
	Encode(plaintext string, secret string) (string, error)
}

// Elevation reports whether the caller behind ctx is privileged. It only
// affects how much detail bucket creation errors carry.
type Elevation interface {
	IsElevated(ctx context.Context) bool
}

// SecureDetectorFunc adapts a plain function to SecureDetector.
type SecureDetectorFunc func(ctx context.Context) bool

func (f SecureDetectorFunc) IsSecure(ctx context.Context) bool { return f(ctx) }

// ElevationFunc adapts a plain function to Elevation.
type ElevationFunc func(ctx context.Context) bool

func (f ElevationFunc) IsElevated(ctx context.Context) bool { return f(ctx) }

// URLQualifierFunc adapts a plain function to URLQualifier.
type URLQualifierFunc func(path string) string

func (f URLQualifierFunc) QualifyURL(path string) string { return f(path) }
