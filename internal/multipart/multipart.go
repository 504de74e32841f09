// Package multipart implements chunked uploads: a session is initiated with
// the control plane, each part is PUT to its own pre-signed URL with bounded
// retry, and the session is completed on success or aborted on any failure.
package multipart

import (
	"context"
	"log/slog"
	"net/http"

	hoisterrors "github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
	"github.com/quaystone/hoist/internal/cookbook"
	"github.com/quaystone/hoist/internal/transport"
)

// Uploader performs multipart uploads through the control plane.
type Uploader struct {
	ControlPlane hoisttypes.ControlPlane
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Upload splits the source into partSize chunks, uploads them in ascending
// part order, and completes the session. Each part PUT gets up to retries
// attempts; retries are immediate. A 2xx part response without an ETag header
// is a protocol violation and consumes an attempt like any other failure.
// If anything fails after the session was initiated, the session is aborted
// best-effort and the original error is returned.
func (u *Uploader) Upload(
	ctx context.Context,
	target hoisttypes.Target,
	source hoisttypes.BlobSource,
	partSize int64,
	retries int,
	progress hoisttypes.ProgressFunc,
) (*hoisttypes.Result, error) {
	if partSize <= 0 {
		partSize = hoisttypes.DefaultPartSize
	}
	if partSize < hoisttypes.MinPartSize {
		partSize = hoisttypes.MinPartSize
	}
	if retries <= 0 {
		retries = hoisttypes.DefaultPartRetries
	}

	size := source.Size()
	totalParts := cookbook.PartCount(size, partSize)

	init, err := u.ControlPlane.InitiateMultipartUpload(ctx, target)
	if err != nil {
		return nil, hoisterrors.NewError("multipart_upload", err).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}
	key := init.Key
	if key == "" {
		key = target.Key
	}

	parts := make([]hoisttypes.CompletedPart, 0, totalParts)
	for partNumber := 1; partNumber <= totalParts; partNumber++ {
		start, end := cookbook.PartRange(int32(partNumber), partSize, size)

		partURL, err := u.ControlPlane.CreateMultipartPartUploadURL(
			ctx, target.Bucket, key, init.UploadID, int32(partNumber))
		if err != nil {
			u.abort(ctx, target.Bucket, key, init.UploadID)
			return nil, hoisterrors.NewError("multipart_upload", err).
				WithBucket(target.Bucket).
				WithKey(key)
		}

		etag, err := u.putPart(ctx, partURL.UploadURL, source, start, end, retries)
		if err != nil {
			u.abort(ctx, target.Bucket, key, init.UploadID)
			return nil, err
		}

		parts = append(parts, hoisttypes.CompletedPart{
			PartNumber: int32(partNumber),
			ETag:       etag,
		})
		if progress != nil {
			progress(hoisttypes.ProgressEvent{
				PartsCompleted: partNumber,
				TotalParts:     totalParts,
				BytesCompleted: end,
				TotalBytes:     size,
			})
		}
	}

	completed, err := u.ControlPlane.CompleteMultipartUpload(
		ctx, target.Bucket, key, init.UploadID, parts)
	if err != nil {
		u.abort(ctx, target.Bucket, key, init.UploadID)
		return nil, hoisterrors.NewError("multipart_upload", err).
			WithBucket(target.Bucket).
			WithKey(key)
	}

	finalKey := completed.Key
	if finalKey == "" {
		finalKey = key
	}
	return &hoisttypes.Result{
		Strategy: hoisttypes.StrategyMultipart,
		Key:      finalKey,
		ETag:     completed.ETag,
		Location: completed.Location,
	}, nil
}

// putPart uploads the byte range [start, end) with bounded retry. Each
// attempt re-slices the source so the body stream starts fresh. Cancellation
// stops retrying immediately.
func (u *Uploader) putPart(
	ctx context.Context,
	url string,
	source hoisttypes.BlobSource,
	start, end int64,
	retries int,
) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		body, err := source.Slice(start, end)
		if err != nil {
			return "", hoisterrors.NewError("multipart_upload", err)
		}

		etag, err := transport.Put(ctx, u.HTTPClient, url, nil, body, end-start)
		if err == nil && etag == "" {
			err = hoisterrors.ErrMissingETag
		}
		if err == nil {
			return etag, nil
		}

		lastErr = err
		if hoisterrors.IsCancelled(err) {
			break
		}
		u.Logger.Warn("part upload attempt failed",
			"attempt", attempt,
			"retries", retries,
			"error", err)
	}
	return "", lastErr
}

// abort tears down the multipart session. It runs detached from the caller's
// cancellation so cleanup still reaches the control plane after a cancelled
// upload, and its own failure is logged and swallowed so the upload error
// stays the one the caller sees.
func (u *Uploader) abort(ctx context.Context, bucket, key, uploadID string) {
	if err := u.ControlPlane.AbortMultipartUpload(
		context.WithoutCancel(ctx), bucket, key, uploadID); err != nil {
		u.Logger.Warn("failed to abort multipart upload",
			"bucket", bucket,
			"key", key,
			"upload_id", uploadID,
			"error", err)
	}
}
