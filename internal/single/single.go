// Package single implements one-request uploads: a direct PUT against a
// pre-signed URL, with a proxy fallback when the storage endpoint cannot be
// reached, and a pure proxy path for callers that skip direct access
// entirely.
package single

import (
	"context"
	"log/slog"
	"net/http"

	hoisterrors "github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
	"github.com/quaystone/hoist/internal/transport"
)

// Uploader performs single-shot uploads through the control plane.
type Uploader struct {
	ControlPlane hoisttypes.ControlPlane
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// Upload sends the whole source in one pre-signed PUT. A transport-level
// failure (the request never reached a server) falls back to the proxy when
// one is configured; a server rejection never does. On success exactly one
// progress event at 100% is emitted.
func (u *Uploader) Upload(
	ctx context.Context,
	target hoisttypes.Target,
	source hoisttypes.BlobSource,
	progress hoisttypes.ProgressFunc,
	proxy hoisttypes.ProxyUploader,
) (*hoisttypes.Result, error) {
	presigned, err := u.ControlPlane.CreatePresignedUpload(ctx, target)
	if err != nil {
		return nil, hoisterrors.NewError("upload", err).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}

	size := source.Size()
	body, err := source.Slice(0, size)
	if err != nil {
		return nil, hoisterrors.NewError("upload", err).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}

	headers := make(map[string]string, len(presigned.RequiredHeaders)+1)
	for k, v := range presigned.RequiredHeaders {
		headers[k] = v
	}
	if target.ContentType != "" {
		if _, ok := headers["Content-Type"]; !ok {
			headers["Content-Type"] = target.ContentType
		}
	}

	etag, err := transport.Put(ctx, u.HTTPClient, presigned.UploadURL, headers, body, size)
	if err != nil {
		if hoisterrors.IsTransport(err) && !hoisterrors.IsCancelled(err) {
			if proxy == nil {
				return nil, hoisterrors.NewError("upload", hoisterrors.ErrProxyNotConfigured).
					WithBucket(target.Bucket).
					WithKey(target.Key)
			}
			u.Logger.Warn("direct upload unreachable, falling back to proxy",
				"bucket", target.Bucket,
				"key", target.Key,
				"error", err)
			return u.Proxy(ctx, target, source, progress, proxy)
		}
		return nil, err
	}

	if progress != nil {
		progress(hoisttypes.ProgressEvent{
			PartsCompleted: 1,
			TotalParts:     1,
			BytesCompleted: size,
			TotalBytes:     size,
		})
	}

	key := presigned.Key
	if key == "" {
		key = target.Key
	}
	return &hoisttypes.Result{
		Strategy: hoisttypes.StrategyDirect,
		Key:      key,
		ETag:     etag,
	}, nil
}

// Proxy relays the upload through the application backend instead of hitting
// storage directly.
func (u *Uploader) Proxy(
	ctx context.Context,
	target hoisttypes.Target,
	source hoisttypes.BlobSource,
	progress hoisttypes.ProgressFunc,
	proxy hoisttypes.ProxyUploader,
) (*hoisttypes.Result, error) {
	if proxy == nil {
		return nil, hoisterrors.NewError("upload", hoisterrors.ErrProxyNotConfigured).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}
	res, err := proxy.Upload(ctx, target, source, progress)
	if err != nil {
		return nil, err
	}
	key := res.Key
	if key == "" {
		key = target.Key
	}
	return &hoisttypes.Result{
		Strategy: hoisttypes.StrategyProxy,
		Key:      key,
		ETag:     res.ETag,
	}, nil
}
