package screenshot

import (
	"strconv"
	"strings"
)

// DefaultMaxBytes is the largest accepted upload, 10 MiB.
const DefaultMaxBytes int64 = 10 * 1024 * 1024

// FileInfo is what the validator knows about an incoming file.
type FileInfo struct {
	Present   bool
	MimeType  string
	SizeBytes int64
}

// Validator enforces the upload rules before anything is stored.
type Validator struct {
	MaxBytes int64
}

// Validate checks, in order, that a file is present, is an image and is
// within the size limit, stopping at the first failure.
func (v Validator) Validate(f FileInfo) error {
	if !f.Present {
		return ErrMissingFile
	}
	if !strings.HasPrefix(f.MimeType, "image/") {
		return ErrUnsupportedType
	}
	max := v.MaxBytes
	if max <= 0 {
		max = DefaultMaxBytes
	}
	if f.SizeBytes > max {
		return ErrTooLarge
	}
	return nil
}

// ParseDimension reads a client-reported pixel dimension. Anything that is
// not a non-negative integer yields 0.
func ParseDimension(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
