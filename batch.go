package hoist

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
)

// maxReasonExamples caps how many file paths are kept per distinct failure
// reason in the batch summary.
const maxReasonExamples = 2

// sniffLimit bounds how many leading bytes are read when detecting a
// missing content type.
const sniffLimit int64 = 3072

// UploadBatch uploads files sequentially under bucket/prefix, always through
// the proxy transport. Object keys are prefix + relative path, or the bare
// file name for flat uploads. Per-file errors are collected rather than
// propagated so the rest of the batch continues; cancellation stops the loop
// before the next file and reports a cancelled outcome, not a failed one.
//
// The returned result aggregates file and byte counts and groups failures by
// normalized reason. The refresh callback, if set, fires when at least one
// file succeeded.
func (c *Client) UploadBatch(
	ctx context.Context,
	bucket, prefix string,
	files []hoisttypes.BatchFile,
	opts ...hoisttypes.BatchOption,
) (*hoisttypes.BatchResult, error) {
	if len(files) == 0 {
		return nil, errors.NewError("upload_batch", errors.ErrInvalidInput).
			WithBucket(bucket).
			WithMessage("no files to upload")
	}

	cfg := &hoisttypes.BatchOptionConfig{
		PartRetries: c.partRetries,
		Proxy:       c.proxy,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var totalBytes int64
	for _, f := range files {
		totalBytes += f.Source.Size()
	}

	result := &hoisttypes.BatchResult{
		TotalFiles: len(files),
		TotalBytes: totalBytes,
	}
	reasons := make(map[string]*hoisttypes.FailureReason)
	cancelled := false

	var completedBytes int64
	for i, f := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		fileSize := f.Source.Size()
		target := hoisttypes.Target{
			Bucket:      bucket,
			Key:         batchKey(prefix, f),
			ContentType: f.ContentType,
		}
		if target.ContentType == "" {
			target.ContentType = sniffContentType(f.Source)
		}

		progress := func(ev hoisttypes.ProgressEvent) {
			if cfg.Progress == nil {
				return
			}
			// Clamp so a racing progress tick never pushes the running
			// total past what this file can contribute.
			fileBytes := ev.BytesCompleted
			if fileBytes > fileSize {
				fileBytes = fileSize
			}
			cfg.Progress(i, len(files), completedBytes+fileBytes, totalBytes)
		}

		_, err := c.Upload(ctx, target, f.Source,
			WithForceProxy(),
			WithUploadRetries(cfg.PartRetries),
			WithUploadProxy(cfg.Proxy),
			WithProgress(progress),
		)
		if err != nil {
			if errors.IsCancelled(err) {
				cancelled = true
				break
			}
			result.Failed++
			recordFailure(reasons, normalizeReason(err), displayPath(f))
			c.logger.Warn("batch file upload failed",
				"bucket", bucket,
				"key", target.Key,
				"error", err)
			continue
		}

		result.Succeeded++
		completedBytes += fileSize
		if cfg.Progress != nil {
			cfg.Progress(i+1, len(files), completedBytes, totalBytes)
		}
	}

	result.UploadedBytes = completedBytes
	result.Reasons = sortedReasons(reasons)
	switch {
	case cancelled:
		result.Outcome = hoisttypes.BatchCancelled
	case result.Failed == 0:
		result.Outcome = hoisttypes.BatchAllSucceeded
	case result.Succeeded == 0:
		result.Outcome = hoisttypes.BatchAllFailed
	default:
		result.Outcome = hoisttypes.BatchPartial
	}

	if result.Succeeded > 0 && cfg.Refresh != nil {
		cfg.Refresh()
	}
	return result, nil
}

// batchKey builds the destination object key from the batch prefix and the
// file's relative path, or its bare name for flat uploads.
func batchKey(prefix string, f hoisttypes.BatchFile) string {
	rel := f.RelPath
	if rel == "" {
		rel = f.Name
	}
	rel = strings.TrimPrefix(rel, "/")
	if prefix == "" {
		return rel
	}
	return strings.TrimSuffix(prefix, "/") + "/" + rel
}

// displayPath is the per-file identifier used in failure summaries.
func displayPath(f hoisttypes.BatchFile) string {
	if f.RelPath != "" {
		return f.RelPath
	}
	return f.Name
}

// sniffContentType detects the content type from the file's leading bytes,
// defaulting to application/octet-stream when detection is impossible.
func sniffContentType(source hoisttypes.BlobSource) string {
	end := source.Size()
	if end > sniffLimit {
		end = sniffLimit
	}
	r, err := source.Slice(0, end)
	if err != nil {
		return "application/octet-stream"
	}
	mime, err := mimetype.DetectReader(r)
	if err != nil {
		return "application/octet-stream"
	}
	return mime.String()
}

// normalizeReason converts a per-file error into the short human-readable
// reason string that failures are grouped under.
func normalizeReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrProxyNotConfigured):
		return "Upload proxy is not configured"
	case errors.Is(err, errors.ErrMissingETag):
		return "Storage response was missing the entity tag"
	case errors.Is(err, errors.ErrInvalidBucketName), errors.Is(err, errors.ErrInvalidObjectKey):
		return "Invalid upload destination"
	case errors.IsTransport(err):
		return "Upload request could not reach the backend upload proxy"
	}
	if code, ok := errors.IsStatus(err); ok {
		return fmt.Sprintf("Upload rejected by storage (HTTP %d)", code)
	}
	return err.Error()
}

func recordFailure(reasons map[string]*hoisttypes.FailureReason, reason, path string) {
	r, ok := reasons[reason]
	if !ok {
		r = &hoisttypes.FailureReason{Reason: reason}
		reasons[reason] = r
	}
	r.Count++
	if len(r.Examples) < maxReasonExamples {
		r.Examples = append(r.Examples, path)
	}
}

// sortedReasons orders grouped failures by frequency, then alphabetically
// for a stable summary.
func sortedReasons(reasons map[string]*hoisttypes.FailureReason) []hoisttypes.FailureReason {
	out := make([]hoisttypes.FailureReason, 0, len(reasons))
	for _, r := range reasons {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
