// Package controlplane implements the upload control-plane contract over
// HTTP JSON, targeting the API served by cmd/hoistd (or any compatible
// backend). It also provides the proxy upload transport that relays file
// bodies through the backend when direct storage access is unavailable.
package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	hoisterrors "github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
)

// maxErrorBody caps how much of an error response body is kept for messages.
const maxErrorBody = 512

// Client talks to the control-plane API. It implements
// hoisttypes.ControlPlane.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for control-plane calls.
// Default is http.DefaultClient.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a control-plane client for the API rooted at baseURL
// (e.g. "https://files.example.com/api/v1").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type cookbookRequest struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"contentType,omitempty"`
	SizeBytes   int64  `json:"sizeBytes,omitempty"`
}

type cookbookResponse struct {
	MultipartUpload struct {
		PartSizeBytes      int64 `json:"partSizeBytes"`
		EstimatedPartCount int   `json:"estimatedPartCount"`
	} `json:"multipartUpload"`
}

// UploadCookbook fetches the server's advisory upload policy for a target.
func (c *Client) UploadCookbook(
	ctx context.Context,
	req hoisttypes.CookbookRequest,
) (*hoisttypes.CookbookResponse, error) {
	var resp cookbookResponse
	err := c.postJSON(ctx, "/uploads/cookbook", cookbookRequest{
		Bucket:      req.Bucket,
		Key:         req.Key,
		ContentType: req.ContentType,
		SizeBytes:   req.SizeBytes,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &hoisttypes.CookbookResponse{
		Multipart: hoisttypes.MultipartPolicy{
			PartSizeBytes:      resp.MultipartUpload.PartSizeBytes,
			EstimatedPartCount: resp.MultipartUpload.EstimatedPartCount,
		},
	}, nil
}

type presignRequest struct {
	Bucket      string            `json:"bucket"`
	Key         string            `json:"key"`
	ContentType string            `json:"contentType,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type presignResponse struct {
	UploadURL        string            `json:"uploadUrl"`
	Key              string            `json:"key"`
	ExpiresInSeconds int               `json:"expiresInSeconds"`
	RequiredHeaders  map[string]string `json:"requiredHeaders"`
}

// CreatePresignedUpload requests a pre-signed single-shot PUT URL.
func (c *Client) CreatePresignedUpload(
	ctx context.Context,
	target hoisttypes.Target,
) (*hoisttypes.PresignedUpload, error) {
	var resp presignResponse
	err := c.postJSON(ctx, "/uploads/presign", presignRequest{
		Bucket:      target.Bucket,
		Key:         target.Key,
		ContentType: target.ContentType,
		Metadata:    target.Metadata,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &hoisttypes.PresignedUpload{
		UploadURL:        resp.UploadURL,
		Key:              resp.Key,
		ExpiresInSeconds: resp.ExpiresInSeconds,
		RequiredHeaders:  resp.RequiredHeaders,
	}, nil
}

type multipartInitResponse struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

// InitiateMultipartUpload opens a multipart session for a target.
func (c *Client) InitiateMultipartUpload(
	ctx context.Context,
	target hoisttypes.Target,
) (*hoisttypes.MultipartInit, error) {
	var resp multipartInitResponse
	err := c.postJSON(ctx, "/uploads/multipart", presignRequest{
		Bucket:      target.Bucket,
		Key:         target.Key,
		ContentType: target.ContentType,
		Metadata:    target.Metadata,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &hoisttypes.MultipartInit{UploadID: resp.UploadID, Key: resp.Key}, nil
}

type partURLRequest struct {
	Bucket     string `json:"bucket"`
	Key        string `json:"key"`
	UploadID   string `json:"uploadId"`
	PartNumber int32  `json:"partNumber"`
}

type partURLResponse struct {
	UploadURL        string `json:"uploadUrl"`
	PartNumber       int32  `json:"partNumber"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

// CreateMultipartPartUploadURL requests a pre-signed URL for one part.
func (c *Client) CreateMultipartPartUploadURL(
	ctx context.Context,
	bucket, key, uploadID string,
	partNumber int32,
) (*hoisttypes.PartUploadURL, error) {
	var resp partURLResponse
	err := c.postJSON(ctx, "/uploads/multipart/part-url", partURLRequest{
		Bucket:     bucket,
		Key:        key,
		UploadID:   uploadID,
		PartNumber: partNumber,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &hoisttypes.PartUploadURL{
		UploadURL:        resp.UploadURL,
		PartNumber:       resp.PartNumber,
		ExpiresInSeconds: resp.ExpiresInSeconds,
	}, nil
}

type completeRequest struct {
	Bucket   string          `json:"bucket"`
	Key      string          `json:"key"`
	UploadID string          `json:"uploadId"`
	Parts    []completedPart `json:"parts"`
}

type completedPart struct {
	PartNumber int32  `json:"partNumber"`
	ETag       string `json:"etag"`
}

type completeResponse struct {
	Key      string `json:"key"`
	ETag     string `json:"etag"`
	Location string `json:"location"`
}

// CompleteMultipartUpload finishes a session with the ordered part list.
func (c *Client) CompleteMultipartUpload(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []hoisttypes.CompletedPart,
) (*hoisttypes.CompleteResult, error) {
	wire := make([]completedPart, len(parts))
	for i, p := range parts {
		wire[i] = completedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}
	var resp completeResponse
	err := c.postJSON(ctx, "/uploads/multipart/complete", completeRequest{
		Bucket:   bucket,
		Key:      key,
		UploadID: uploadID,
		Parts:    wire,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &hoisttypes.CompleteResult{
		Key:      resp.Key,
		ETag:     resp.ETag,
		Location: resp.Location,
	}, nil
}

type abortRequest struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

// AbortMultipartUpload tears down a session.
func (c *Client) AbortMultipartUpload(
	ctx context.Context,
	bucket, key, uploadID string,
) error {
	var resp struct {
		Success bool `json:"success"`
	}
	return c.postJSON(ctx, "/uploads/multipart/abort", abortRequest{
		Bucket:   bucket,
		Key:      key,
		UploadID: uploadID,
	}, &resp)
}

// postJSON posts body as JSON to baseURL+path and decodes a 2xx response
// into out. A request that never reached the server comes back as a
// transport error; a non-2xx response as a status error.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return hoisterrors.NewError("control_plane", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return hoisterrors.NewError("control_plane", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &hoisterrors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &hoisterrors.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return hoisterrors.NewError("control_plane", fmt.Errorf("decode response: %w", err))
	}
	return nil
}
