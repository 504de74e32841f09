package hoist

import (
	"context"

	"github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
	"github.com/quaystone/hoist/internal/cookbook"
	"github.com/quaystone/hoist/internal/validation"
)

// Upload sends one object to storage, choosing the strategy per target size:
// at or below the multipart threshold a single pre-signed PUT (with proxy
// fallback on transport failure), above it a multipart upload sized by the
// control plane's cookbook. WithForceProxy bypasses the size decision and
// relays through the proxy transport.
//
// Errors from the chosen strategy propagate as-is; there is no retry above
// what the multipart path does per part.
func (c *Client) Upload(
	ctx context.Context,
	target hoisttypes.Target,
	source hoisttypes.BlobSource,
	opts ...hoisttypes.UploadOption,
) (*hoisttypes.Result, error) {
	if source == nil {
		return nil, errors.NewError("upload", errors.ErrInvalidInput).
			WithMessage("source must not be nil")
	}
	if err := validation.ValidateTarget(target.Bucket, target.Key); err != nil {
		return nil, errors.NewError("upload", err).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}

	cfg := &hoisttypes.UploadOptionConfig{
		ThresholdBytes: c.threshold,
		PartRetries:    c.partRetries,
		Proxy:          c.proxy,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.ContentType != "" {
		target.ContentType = cfg.ContentType
	}
	if cfg.Metadata != nil {
		target.Metadata = cfg.Metadata
	}
	if err := validation.ValidateMetadata(target.Metadata); err != nil {
		return nil, errors.NewError("upload", err).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}

	if cfg.ForceProxy {
		return c.singleUploader.Proxy(ctx, target, source, cfg.Progress, cfg.Proxy)
	}

	size := source.Size()
	if size <= cfg.ThresholdBytes {
		return c.singleUploader.Upload(ctx, target, source, cfg.Progress, cfg.Proxy)
	}

	partSize := cfg.PartSize
	if partSize <= 0 {
		partSize = c.resolvePartSize(ctx, target, size, cfg.Cookbook)
	}
	return c.multipartUploader.Upload(ctx, target, source, partSize, cfg.PartRetries, cfg.Progress)
}

// resolvePartSize asks the control plane for its advertised part size. The
// cookbook is advisory: a failed fetch is logged at debug level and the
// default sizing applies, it never aborts the upload.
func (c *Client) resolvePartSize(
	ctx context.Context,
	target hoisttypes.Target,
	size int64,
	prefetched *hoisttypes.CookbookResponse,
) int64 {
	resp := prefetched
	if resp == nil {
		var err error
		resp, err = c.cp.UploadCookbook(ctx, hoisttypes.CookbookRequest{
			Bucket:      target.Bucket,
			Key:         target.Key,
			ContentType: target.ContentType,
			SizeBytes:   size,
		})
		if err != nil {
			c.logger.Debug("cookbook fetch failed, using default part size",
				"bucket", target.Bucket,
				"key", target.Key,
				"error", err)
			resp = nil
		}
	}

	var advertised int64
	if resp != nil {
		advertised = resp.Multipart.PartSizeBytes
	}
	return cookbook.Resolve(size, advertised).PartSize
}
