package storage

import (
	"errors"
	"fmt"
)

// Kind classifies a storage failure.
type Kind int

const (
	KindUnknown Kind = iota
	DirectoryCreateFailed
	DirectoryNotWritable
	ObjectWriteFailed
	ObjectNotFound
	ObjectDeleteFailed
	BucketCreateFailed
	BucketDeleteFailed
	ConfigurationMissing
)

var kindNames = map[Kind]string{
	KindUnknown:           "Unknown",
	DirectoryCreateFailed: "DirectoryCreateFailed",
	DirectoryNotWritable:  "DirectoryNotWritable",
	ObjectWriteFailed:     "ObjectWriteFailed",
	ObjectNotFound:        "ObjectNotFound",
	ObjectDeleteFailed:    "ObjectDeleteFailed",
	BucketCreateFailed:    "BucketCreateFailed",
	BucketDeleteFailed:    "BucketDeleteFailed",
	ConfigurationMissing:  "ConfigurationMissing",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error is returned by every failing storage operation. Message is meant for
// humans; Err, when set, is the underlying filesystem error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the sentinels below work with
// errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is.
var (
	ErrDirectoryCreateFailed = &Error{Kind: DirectoryCreateFailed}
	ErrDirectoryNotWritable  = &Error{Kind: DirectoryNotWritable}
	ErrObjectWriteFailed     = &Error{Kind: ObjectWriteFailed}
	ErrObjectNotFound        = &Error{Kind: ObjectNotFound}
	ErrObjectDeleteFailed    = &Error{Kind: ObjectDeleteFailed}
	ErrBucketCreateFailed    = &Error{Kind: BucketCreateFailed}
	ErrBucketDeleteFailed    = &Error{Kind: BucketDeleteFailed}
	ErrConfigurationMissing  = &Error{Kind: ConfigurationMissing}
)

// KindOf returns the Kind of err, or KindUnknown when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
