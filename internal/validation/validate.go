// Package validation checks upload inputs before any network call is made.
// Bucket names follow the S3 DNS-compliant naming rules; object keys and
// metadata are checked for the characters storage layers reject.
package validation

import (
	"strings"
	"unicode"

	"github.com/quaystone/hoist/errors"
)

// maxObjectKeyLength is the S3 key length limit in bytes.
const maxObjectKeyLength = 1024

// ValidateTarget validates the bucket and key of an upload destination.
func ValidateTarget(bucket, key string) error {
	if err := ValidateBucketName(bucket); err != nil {
		return err
	}
	return ValidateObjectKey(key)
}

// ValidateBucketName checks that a bucket name is DNS-compliant.
// Returns ErrInvalidBucketName otherwise.
func ValidateBucketName(bucket string) error {
	fail := func(msg string) error {
		return errors.NewError("validate_bucket", errors.ErrInvalidBucketName).
			WithBucket(bucket).
			WithMessage(msg)
	}

	if len(bucket) < 3 || len(bucket) > 63 {
		return fail("bucket name must be between 3 and 63 characters long")
	}
	for _, r := range bucket {
		if !isBucketRune(r) {
			return fail("bucket name can only contain lowercase letters, numbers, dots, and hyphens")
		}
	}
	if isEdgeRune(bucket[0]) || isEdgeRune(bucket[len(bucket)-1]) {
		return fail("bucket name cannot start or end with a hyphen or dot")
	}
	if strings.Contains(bucket, "..") || strings.Contains(bucket, "--") ||
		strings.Contains(bucket, ".-") || strings.Contains(bucket, "-.") {
		return fail("bucket name cannot contain adjacent dots or hyphens")
	}
	if looksLikeIPAddress(bucket) {
		return fail("bucket name cannot be formatted as an IP address")
	}
	return nil
}

// ValidateObjectKey checks that an object key is acceptable to the storage
// layer and free of path traversal sequences.
func ValidateObjectKey(key string) error {
	fail := func(msg string) error {
		return errors.NewError("validate_key", errors.ErrInvalidObjectKey).
			WithKey(key).
			WithMessage(msg)
	}

	if key == "" {
		return fail("object key cannot be empty")
	}
	if len(key) > maxObjectKeyLength {
		return fail("object key cannot exceed 1024 bytes")
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fail("object key cannot contain path traversal sequences")
		}
	}
	for _, r := range key {
		if unicode.IsControl(r) {
			return fail("object key cannot contain control characters")
		}
	}
	return nil
}

// ValidateMetadata checks user metadata keys and values. Keys become HTTP
// headers on the storage request, so both sides must stay within the ASCII
// range and free of control characters.
func ValidateMetadata(metadata map[string]string) error {
	for k, v := range metadata {
		if k == "" {
			return errors.NewError("validate_metadata", errors.ErrInvalidInput).
				WithMessage("metadata key cannot be empty")
		}
		if !isHeaderSafe(k) || !isHeaderSafe(v) {
			return errors.NewError("validate_metadata", errors.ErrInvalidInput).
				WithMessage("metadata must be printable ASCII without control characters")
		}
	}
	return nil
}

func isBucketRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-'
}

func isEdgeRune(b byte) bool {
	return b == '.' || b == '-'
}

// looksLikeIPAddress reports whether the name is four dot-separated numeric
// octets, which S3 forbids as a bucket name.
func looksLikeIPAddress(bucket string) bool {
	parts := strings.Split(bucket, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		for i := 0; i < len(p); i++ {
			if p[i] < '0' || p[i] > '9' {
				return false
			}
		}
	}
	return true
}

func isHeaderSafe(s string) bool {
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}
