// Package cookbook derives per-upload multipart guidance from the file size
// and the server-advertised part-size policy. Results are purely advisory
// and computed fresh for every upload.
package cookbook

import (
	"github.com/quaystone/hoist/hoisttypes"
)

// Resolve computes the multipart cookbook for a file of the given size.
// advertisedPartSize is the part size suggested by the control plane (or a
// caller override); zero means no suggestion. The part size is floored at
// the storage minimum and defaults to 8 MiB.
func Resolve(sizeBytes, advertisedPartSize int64) hoisttypes.Cookbook {
	partSize := advertisedPartSize
	if partSize <= 0 {
		partSize = hoisttypes.DefaultPartSize
	}
	if partSize < hoisttypes.MinPartSize {
		partSize = hoisttypes.MinPartSize
	}

	cb := hoisttypes.Cookbook{PartSize: partSize}
	if sizeBytes > 0 {
		cb.EstimatedParts = PartCount(sizeBytes, partSize)
	}
	return cb
}

// PartCount returns ceil(size/partSize), with a floor of one part.
func PartCount(size, partSize int64) int {
	if size <= 0 {
		return 1
	}
	return int((size + partSize - 1) / partSize)
}

// PartRange returns the byte range [start, end) covered by the 1-based part
// number. The final part may be shorter than partSize but never longer.
func PartRange(partNumber int32, partSize, totalSize int64) (start, end int64) {
	start = int64(partNumber-1) * partSize
	end = start + partSize
	if end > totalSize {
		end = totalSize
	}
	return start, end
}
