package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/smithy-go"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"

	hoisterrors "github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/internal/cookbook"
	"github.com/quaystone/hoist/internal/validation"
	"github.com/quaystone/hoist/server/storage"
)

// ObjectStore is the storage surface the handlers depend on, implemented by
// storage.Store and mocked in tests.
type ObjectStore interface {
	ListBuckets(ctx context.Context) ([]storage.BucketInfo, error)
	ListObjects(ctx context.Context, bucket, prefix string, maxKeys int32, continuationToken string) (*storage.ObjectPage, error)
	StatObject(ctx context.Context, bucket, key string) (*storage.ObjectStat, error)
	DeleteObject(ctx context.Context, bucket, key string) error
	PutObject(ctx context.Context, bucket, key, contentType string, metadata map[string]string, body io.Reader, size int64) (string, error)
	PresignPut(ctx context.Context, bucket, key, contentType string, metadata map[string]string) (*storage.PresignedRequest, error)
	CreateMultipart(ctx context.Context, bucket, key, contentType string, metadata map[string]string) (*storage.MultipartSession, error)
	PresignPart(ctx context.Context, bucket, key, uploadID string, partNumber int32) (*storage.PresignedRequest, error)
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []storage.CompletedPart) (*storage.CompleteOutput, error)
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error
}

// Handler serves the control-plane and browse endpoints.
type Handler struct {
	store  ObjectStore
	logger *slog.Logger
	upload UploadConfig
}

// NewHandler wires the handler set.
func NewHandler(store ObjectStore, logger *slog.Logger, upload UploadConfig) *Handler {
	return &Handler{store: store, logger: logger, upload: upload}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) respondError(w http.ResponseWriter, status int, msg string) {
	h.respondJSON(w, status, errorResponse{Error: msg})
}

// respondStoreError maps a storage failure to an HTTP status: validation
// failures to 400, missing buckets/keys to 404, anything else to 502.
func (h *Handler) respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, hoisterrors.ErrInvalidBucketName),
		errors.Is(err, hoisterrors.ErrInvalidObjectKey),
		errors.Is(err, hoisterrors.ErrInvalidInput):
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	case isNotFound(err):
		h.respondError(w, http.StatusNotFound, "not found")
		return
	}
	h.logger.Error("storage operation failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err)
	h.respondError(w, http.StatusBadGateway, "storage error")
}

func isNotFound(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NoSuchBucket", "NoSuchUpload", "NotFound":
		return true
	}
	return false
}

type uploadTargetRequest struct {
	Bucket      string            `json:"bucket"`
	Key         string            `json:"key"`
	ContentType string            `json:"contentType"`
	Metadata    map[string]string `json:"metadata"`
	SizeBytes   int64             `json:"sizeBytes"`
}

func (h *Handler) decodeTarget(w http.ResponseWriter, r *http.Request) (*uploadTargetRequest, bool) {
	var req uploadTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}
	if err := validation.ValidateTarget(req.Bucket, req.Key); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err := validation.ValidateMetadata(req.Metadata); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return &req, true
}

type cookbookResponse struct {
	MultipartUpload struct {
		PartSizeBytes      int64 `json:"partSizeBytes"`
		EstimatedPartCount int   `json:"estimatedPartCount"`
	} `json:"multipartUpload"`
}

// Cookbook advertises the upload policy for a target.
func (h *Handler) Cookbook(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTarget(w, r)
	if !ok {
		return
	}

	cb := cookbook.Resolve(req.SizeBytes, h.upload.PartSize)
	var resp cookbookResponse
	resp.MultipartUpload.PartSizeBytes = cb.PartSize
	resp.MultipartUpload.EstimatedPartCount = cb.EstimatedParts
	h.respondJSON(w, http.StatusOK, resp)
}

type presignResponse struct {
	UploadURL        string            `json:"uploadUrl"`
	Key              string            `json:"key"`
	ExpiresInSeconds int               `json:"expiresInSeconds"`
	RequiredHeaders  map[string]string `json:"requiredHeaders,omitempty"`
}

// Presign mints a single-shot upload URL.
func (h *Handler) Presign(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTarget(w, r)
	if !ok {
		return
	}

	presigned, err := h.store.PresignPut(r.Context(), req.Bucket, req.Key, req.ContentType, req.Metadata)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, presignResponse{
		UploadURL:        presigned.URL,
		Key:              req.Key,
		ExpiresInSeconds: int(presigned.Expiry / time.Second),
		RequiredHeaders:  presigned.Headers,
	})
}

type multipartInitResponse struct {
	UploadID string `json:"uploadId"`
	Key      string `json:"key"`
}

// InitiateMultipart opens a multipart session.
func (h *Handler) InitiateMultipart(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTarget(w, r)
	if !ok {
		return
	}

	session, err := h.store.CreateMultipart(r.Context(), req.Bucket, req.Key, req.ContentType, req.Metadata)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, multipartInitResponse{
		UploadID: session.UploadID,
		Key:      session.Key,
	})
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

// PartURL mints an upload URL for one part.
func (h *Handler) PartURL(w http.ResponseWriter, r *http.Request) {
	var req partURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateTarget(req.Bucket, req.Key); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UploadID == "" || req.PartNumber < 1 {
		h.respondError(w, http.StatusBadRequest, "uploadId and a positive partNumber are required")
		return
	}

	presigned, err := h.store.PresignPart(r.Context(), req.Bucket, req.Key, req.UploadID, req.PartNumber)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, partURLResponse{
		UploadURL:        presigned.URL,
		PartNumber:       req.PartNumber,
		ExpiresInSeconds: int(presigned.Expiry / time.Second),
	})
}

type completeRequest struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
	Parts    []struct {
		PartNumber int32  `json:"partNumber"`
		ETag       string `json:"etag"`
	} `json:"parts"`
}

type completeResponse struct {
	Key      string `json:"key"`
	ETag     string `json:"etag"`
	Location string `json:"location,omitempty"`
}

// CompleteMultipart finishes a session. Parts must be 1-based, contiguous,
// ascending, with non-empty ETags.
func (h *Handler) CompleteMultipart(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validation.ValidateTarget(req.Bucket, req.Key); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.UploadID == "" || len(req.Parts) == 0 {
		h.respondError(w, http.StatusBadRequest, "uploadId and a non-empty part list are required")
		return
	}

	parts := make([]storage.CompletedPart, len(req.Parts))
	for i, p := range req.Parts {
		if p.PartNumber != int32(i+1) || p.ETag == "" {
			h.respondError(w, http.StatusBadRequest,
				"parts must be contiguous, ascending from 1, each with an etag")
			return
		}
		parts[i] = storage.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	out, err := h.store.CompleteMultipart(r.Context(), req.Bucket, req.Key, req.UploadID, parts)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, completeResponse{
		Key:      out.Key,
		ETag:     out.ETag,
		Location: out.Location,
	})
}

type abortRequest struct {
	Bucket   string `json:"bucket"`
	Key      string `json:"key"`
	UploadID string `json:"uploadId"`
}

// AbortMultipart tears down a session.
func (h *Handler) AbortMultipart(w http.ResponseWriter, r *http.Request) {
	var req abortRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.UploadID == "" {
		h.respondError(w, http.StatusBadRequest, "uploadId is required")
		return
	}

	if err := h.store.AbortMultipart(r.Context(), req.Bucket, req.Key, req.UploadID); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type proxyUploadResponse struct {
	Key  string `json:"key"`
	ETag string `json:"etag"`
}

// ProxyUpload stores a file relayed through the backend as
// multipart/form-data, for clients that cannot PUT to storage directly.
func (h *Handler) ProxyUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.upload.MaxProxyBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	bucket := r.FormValue("bucket")
	key := r.FormValue("key")
	if err := validation.ValidateTarget(bucket, key); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var metadata map[string]string
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			h.respondError(w, http.StatusBadRequest, "metadata must be a JSON object of strings")
			return
		}
		if err := validation.ValidateMetadata(metadata); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "file part is required")
		return
	}
	defer file.Close()

	contentType := r.FormValue("contentType")
	if contentType == "" {
		contentType = sniffUpload(file)
	}

	etag, err := h.store.PutObject(r.Context(), bucket, key, contentType, metadata, file, header.Size)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, proxyUploadResponse{Key: key, ETag: etag})
}

// sniffUpload detects the content type from the file's leading bytes and
// rewinds the stream for the storage write.
func sniffUpload(file io.ReadSeeker) string {
	contentType := "application/octet-stream"
	if mime, err := mimetype.DetectReader(file); err == nil {
		contentType = mime.String()
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return contentType
	}
	return contentType
}

type bucketListResponse struct {
	Buckets []bucketEntry `json:"buckets"`
}

type bucketEntry struct {
	Name         string    `json:"name"`
	CreationDate time.Time `json:"creationDate"`
}

// ListBuckets returns the buckets visible to the server's credentials.
func (h *Handler) ListBuckets(w http.ResponseWriter, r *http.Request) {
	buckets, err := h.store.ListBuckets(r.Context())
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	resp := bucketListResponse{Buckets: make([]bucketEntry, len(buckets))}
	for i, b := range buckets {
		resp.Buckets[i] = bucketEntry{Name: b.Name, CreationDate: b.CreationDate}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

type objectEntry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	ETag         string    `json:"etag"`
}

type objectListResponse struct {
	Objects               []objectEntry `json:"objects"`
	IsTruncated           bool          `json:"isTruncated"`
	KeyCount              int           `json:"keyCount"`
	NextContinuationToken string        `json:"nextContinuationToken,omitempty"`
}

// ListObjects returns one page of a bucket listing.
func (h *Handler) ListObjects(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	if err := validation.ValidateBucketName(bucket); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var maxKeys int32
	if raw := r.URL.Query().Get("maxKeys"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "maxKeys must be a positive integer")
			return
		}
		maxKeys = int32(n)
	}

	page, err := h.store.ListObjects(r.Context(), bucket,
		r.URL.Query().Get("prefix"), maxKeys, r.URL.Query().Get("continuationToken"))
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}

	resp := objectListResponse{
		Objects:               make([]objectEntry, len(page.Objects)),
		IsTruncated:           page.IsTruncated,
		KeyCount:              page.KeyCount,
		NextContinuationToken: page.NextContinuationToken,
	}
	for i, obj := range page.Objects {
		resp.Objects[i] = objectEntry{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
		}
	}
	h.respondJSON(w, http.StatusOK, resp)
}

type objectStatResponse struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"contentType"`
	LastModified time.Time         `json:"lastModified"`
	ETag         string            `json:"etag"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	DownloadURL  string            `json:"downloadUrl"`
}

// GetObject returns object metadata plus a presigned download URL.
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	if err := validation.ValidateTarget(bucket, key); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	stat, err := h.store.StatObject(r.Context(), bucket, key)
	if err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, objectStatResponse{
		Key:          stat.Key,
		Size:         stat.Size,
		ContentType:  stat.ContentType,
		LastModified: stat.LastModified,
		ETag:         stat.ETag,
		Metadata:     stat.Metadata,
		DownloadURL:  stat.DownloadURL,
	})
}

// DeleteObject removes one object.
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	bucket := chi.URLParam(r, "bucket")
	key := chi.URLParam(r, "*")
	if err := validation.ValidateTarget(bucket, key); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.DeleteObject(r.Context(), bucket, key); err != nil {
		h.respondStoreError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "object deleted",
		"key":     key,
	})
}
