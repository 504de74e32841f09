package hoist

import (
	"log/slog"
	"net/http"

	"github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
	"github.com/quaystone/hoist/internal/multipart"
	"github.com/quaystone/hoist/internal/single"
)

// Client uploads objects through a control plane. It is safe for concurrent
// use; per-upload knobs are supplied as options on each call rather than by
// mutating the client.
type Client struct {
	// cp issues pre-signed URLs and manages multipart sessions
	cp hoisttypes.ControlPlane

	// httpClient performs the PUTs against pre-signed URLs
	httpClient *http.Client

	// logger receives structured diagnostics (fallbacks, abort failures)
	logger *slog.Logger

	// proxy is the default relay transport, used for forced-proxy uploads
	// and direct-upload fallback unless overridden per call
	proxy hoisttypes.ProxyUploader

	// threshold is the size in bytes above which multipart is used
	threshold int64

	// partRetries bounds attempts per multipart part
	partRetries int

	singleUploader    *single.Uploader
	multipartUploader *multipart.Uploader
}

// New creates an upload client backed by the given control plane.
//
// Example:
//
//	client, err := hoist.New(cp,
//	    hoist.WithThreshold(32*1024*1024),
//	    hoist.WithRetries(5),
//	)
func New(cp hoisttypes.ControlPlane, opts ...hoisttypes.Option) (*Client, error) {
	if cp == nil {
		return nil, errors.NewError("client initialization", errors.ErrInvalidInput).
			WithMessage("control plane must not be nil")
	}

	cfg := &hoisttypes.ClientConfig{
		ThresholdBytes: hoisttypes.DefaultMultipartThreshold,
		PartRetries:    hoisttypes.DefaultPartRetries,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ThresholdBytes <= 0 {
		cfg.ThresholdBytes = hoisttypes.DefaultMultipartThreshold
	}
	if cfg.PartRetries <= 0 {
		cfg.PartRetries = hoisttypes.DefaultPartRetries
	}

	c := &Client{
		cp:          cp,
		httpClient:  cfg.HTTPClient,
		logger:      cfg.Logger,
		proxy:       cfg.Proxy,
		threshold:   cfg.ThresholdBytes,
		partRetries: cfg.PartRetries,
	}
	c.singleUploader = &single.Uploader{
		ControlPlane: cp,
		HTTPClient:   c.httpClient,
		Logger:       c.logger,
	}
	c.multipartUploader = &multipart.Uploader{
		ControlPlane: cp,
		HTTPClient:   c.httpClient,
		Logger:       c.logger,
	}
	return c, nil
}
