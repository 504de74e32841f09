package hoist

import (
	"log/slog"
	"net/http"

	"github.com/quaystone/hoist/hoisttypes"
)

// WithHTTPClient sets the HTTP client used for PUTs against pre-signed URLs.
// Default is http.DefaultClient.
func WithHTTPClient(client *http.Client) hoisttypes.Option {
	return func(c *hoisttypes.ClientConfig) {
		if client != nil {
			c.HTTPClient = client
		}
	}
}

// WithLogger sets the structured logger for upload diagnostics.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) hoisttypes.Option {
	return func(c *hoisttypes.ClientConfig) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithProxy sets the default proxy transport used for forced-proxy uploads
// and for fallback when a direct upload cannot reach storage.
func WithProxy(proxy hoisttypes.ProxyUploader) hoisttypes.Option {
	return func(c *hoisttypes.ClientConfig) {
		c.Proxy = proxy
	}
}

// WithThreshold sets the size in bytes above which uploads switch to
// multipart. Default is 12MB.
func WithThreshold(bytes int64) hoisttypes.Option {
	return func(c *hoisttypes.ClientConfig) {
		if bytes > 0 {
			c.ThresholdBytes = bytes
		}
	}
}

// WithRetries sets the per-part attempt budget for multipart uploads.
// Default is 3 attempts.
func WithRetries(retries int) hoisttypes.Option {
	return func(c *hoisttypes.ClientConfig) {
		if retries > 0 {
			c.PartRetries = retries
		}
	}
}

// WithForceProxy routes this upload through the proxy transport, skipping
// the size-based strategy decision entirely.
func WithForceProxy() hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		c.ForceProxy = true
	}
}

// WithUploadThreshold overrides the client's multipart threshold for one
// upload.
func WithUploadThreshold(bytes int64) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		if bytes > 0 {
			c.ThresholdBytes = bytes
		}
	}
}

// WithUploadPartSize fixes the multipart part size for one upload, taking
// precedence over the cookbook's advertised size. Values below the 5MB
// storage minimum are raised to it.
func WithUploadPartSize(bytes int64) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		if bytes > 0 {
			c.PartSize = bytes
		}
	}
}

// WithUploadRetries overrides the per-part attempt budget for one upload.
func WithUploadRetries(retries int) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		if retries > 0 {
			c.PartRetries = retries
		}
	}
}

// WithProgress registers a callback invoked after each completed part (or
// once at 100% for single-shot uploads).
func WithProgress(fn hoisttypes.ProgressFunc) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		c.Progress = fn
	}
}

// WithUploadProxy overrides the client's proxy transport for one upload.
func WithUploadProxy(proxy hoisttypes.ProxyUploader) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		c.Proxy = proxy
	}
}

// WithCookbook supplies a pre-fetched cookbook, skipping the advisory
// control-plane fetch.
func WithCookbook(cb *hoisttypes.CookbookResponse) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		c.Cookbook = cb
	}
}

// WithContentType overrides the target's declared content type.
func WithContentType(contentType string) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		c.ContentType = contentType
	}
}

// WithMetadata attaches custom object metadata to the upload.
func WithMetadata(metadata map[string]string) hoisttypes.UploadOption {
	return func(c *hoisttypes.UploadOptionConfig) {
		c.Metadata = metadata
	}
}

// WithBatchProgress registers a callback fired as the batch advances, with
// file counts and clamped cumulative bytes.
func WithBatchProgress(fn hoisttypes.BatchProgressFunc) hoisttypes.BatchOption {
	return func(c *hoisttypes.BatchOptionConfig) {
		c.Progress = fn
	}
}

// WithRefresh registers a callback invoked once after the batch if at least
// one file uploaded successfully, typically to reload a listing.
func WithRefresh(fn func()) hoisttypes.BatchOption {
	return func(c *hoisttypes.BatchOptionConfig) {
		c.Refresh = fn
	}
}

// WithBatchRetries overrides the per-part attempt budget for every file in
// the batch.
func WithBatchRetries(retries int) hoisttypes.BatchOption {
	return func(c *hoisttypes.BatchOptionConfig) {
		if retries > 0 {
			c.PartRetries = retries
		}
	}
}

// WithBatchProxy overrides the client's proxy transport for the batch.
func WithBatchProxy(proxy hoisttypes.ProxyUploader) hoisttypes.BatchOption {
	return func(c *hoisttypes.BatchOptionConfig) {
		c.Proxy = proxy
	}
}
