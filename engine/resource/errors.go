package resource

import "github.com/pkg/errors"

// Errors returned by Store operations. Compare with errors.Cause.
var (
	// ErrInvalidPackage means the package index is unknown to the store
	ErrInvalidPackage = errors.New("invalid package")
	// ErrResourceDoesNotExist means the package has no file for the resource
	ErrResourceDoesNotExist = errors.New("resource does not exist")
	// ErrIncorrectVersion means the recorded version is absent or differs from the expected one
	ErrIncorrectVersion = errors.New("incorrect version")
	// ErrResourceWithNameAlreadyExists means a resource with the same name is registered
	ErrResourceWithNameAlreadyExists = errors.New("resource with name already exists")
	// ErrIgnored is the skip signal for sidecar files, swallowed by LoadPackage
	ErrIgnored = errors.New("ignored")
	// ErrInvalidSessionID means session id 0 was supplied
	ErrInvalidSessionID = errors.New("session id 0 is reserved")
	// ErrSessionIDInUse means a resource is already registered under the session id
	ErrSessionIDInUse = errors.New("session id already in use")
	// ErrSessionIDsExhausted means the 16 bit session id space is used up
	ErrSessionIDsExhausted = errors.New("session ids exhausted")
	// ErrMalformedMetadata means a package's version sidecar could not be decoded
	ErrMalformedMetadata = errors.New("malformed package metadata")
	// ErrBadFilename means a file or directory name is not valid text
	ErrBadFilename = errors.New("bad filename")
	// ErrBadJSON means a json resource does not parse
	ErrBadJSON = errors.New("json resource does not parse")
	// ErrFrozen means the store was frozen and can no longer be mutated
	ErrFrozen = errors.New("store is frozen")
)

// IsIgnored reports whether err is the sidecar skip signal
func IsIgnored(err error) bool {
	return errors.Cause(err) == ErrIgnored
}
