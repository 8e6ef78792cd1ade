package screenshot

import (
	"errors"
	"fmt"
)

// Validation failures. Their messages are shown to the uploader as is.
var (
	ErrMissingFile     = errors.New("No file provided")
	ErrUnsupportedType = errors.New("Only images allowed")
	ErrTooLarge        = errors.New("File too large (max 10MB)")
)

var (
	// ErrNotFound is returned for absent records and, to public viewers, for expired ones.
	ErrNotFound = errors.New("screenshot not found")
	// ErrForbidden is returned when the requester does not own the record.
	ErrForbidden = errors.New("not allowed to modify this screenshot")
	// ErrIDTaken is returned by a RecordStore when an id is or was in use.
	ErrIDTaken = errors.New("screenshot id already taken")
	// ErrInvalidTTL is returned for a zero, negative or over-long expiry.
	ErrInvalidTTL = errors.New("ttlHours must be between 1 and 876000 hours, or null")

	// ErrStorageWriteFailed matches an UploadError of kind KindStorageWrite.
	ErrStorageWriteFailed = errors.New("storage write failed")
	// ErrMetadataWriteFailed matches an UploadError of kind KindMetadataWrite.
	ErrMetadataWriteFailed = errors.New("metadata write failed")
)

// ErrorKind classifies an upload failure.
type ErrorKind int

const (
	KindInvalid ErrorKind = iota + 1
	KindStorageWrite
	KindMetadataWrite
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindStorageWrite:
		return "storage write"
	case KindMetadataWrite:
		return "metadata write"
	default:
		return "unknown"
	}
}

// UploadError is returned by Service.Upload. Err keeps the underlying cause.
type UploadError struct {
	Kind ErrorKind
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match the failure kind sentinels.
func (e *UploadError) Is(target error) bool {
	switch target {
	case ErrStorageWriteFailed:
		return e.Kind == KindStorageWrite
	case ErrMetadataWriteFailed:
		return e.Kind == KindMetadataWrite
	}
	return false
}
