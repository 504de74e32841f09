// Package hoisttypes provides shared type definitions for the hoist module.
package hoisttypes

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
)

// Size and retry defaults shared by the library and the reference server.
const (
	// MinPartSize is the smallest allowed multipart part size. Storage
	// multipart APIs reject smaller non-final parts.
	MinPartSize int64 = 5 * 1024 * 1024

	// DefaultPartSize is used when the control plane does not advertise a
	// part size of its own.
	DefaultPartSize int64 = 8 * 1024 * 1024

	// DefaultMultipartThreshold is the file size above which the multipart
	// strategy is chosen.
	DefaultMultipartThreshold int64 = 12 * 1024 * 1024

	// DefaultPartRetries is the per-part retry budget for multipart uploads.
	DefaultPartRetries = 3
)

// Strategy identifies which upload path was actually used.
type Strategy string

// Upload strategies.
const (
	// StrategyDirect is a single PUT to a pre-signed storage URL
	StrategyDirect Strategy = "direct"

	// StrategyMultipart is a chunked multipart upload through per-part
	// pre-signed URLs
	StrategyMultipart Strategy = "multipart"

	// StrategyProxy is a single upload through the application backend
	StrategyProxy Strategy = "proxy"
)

// Target identifies a single destination object. It is immutable for the
// duration of one upload attempt.
type Target struct {
	// Bucket is the destination bucket name
	Bucket string

	// Key is the destination object key
	Key string

	// ContentType is the declared MIME type of the object
	ContentType string

	// Metadata contains optional user-defined metadata
	Metadata map[string]string
}

// Cookbook is a pure decision record describing the recommended multipart
// part size and estimated part count for a given upload. It is computed
// fresh per upload and never cached across calls.
type Cookbook struct {
	// PartSize is the recommended part size in bytes
	PartSize int64

	// EstimatedParts is the estimated part count, 0 when the size is unknown
	EstimatedParts int
}

// CompletedPart records one successfully uploaded multipart part.
// Part numbering is 1-based and contiguous; the completion call must submit
// parts in ascending PartNumber order with no gaps or duplicates.
type CompletedPart struct {
	// PartNumber is the 1-based part index
	PartNumber int32

	// ETag is the opaque entity tag returned by storage for that part
	ETag string
}

// ProgressEvent is a snapshot emitted after each part or whole-file
// completion. Values are monotonically non-decreasing within one file's
// upload.
type ProgressEvent struct {
	PartsCompleted int
	TotalParts     int
	BytesCompleted int64
	TotalBytes     int64
}

// ProgressFunc receives progress snapshots for a single file's upload.
type ProgressFunc func(ProgressEvent)

// Result describes a finished upload: which strategy was used, the final
// object key, and whatever entity tag and location the storage layer
// reported (both may be empty).
type Result struct {
	Strategy Strategy
	Key      string
	ETag     string
	Location string
}

// BlobSource is the file-like input to an upload: a byte length plus a
// byte-range slicing operation. Slice returns a reader over [start, end).
type BlobSource interface {
	Size() int64
	Slice(start, end int64) (io.Reader, error)
}

// bytesSource adapts an in-memory byte slice to BlobSource.
type bytesSource struct {
	data []byte
}

// NewBytesSource returns a BlobSource over an in-memory byte slice.
func NewBytesSource(data []byte) BlobSource {
	return &bytesSource{data: data}
}

func (s *bytesSource) Size() int64 {
	return int64(len(s.data))
}

func (s *bytesSource) Slice(start, end int64) (io.Reader, error) {
	if start < 0 || end < start || end > int64(len(s.data)) {
		return nil, io.ErrUnexpectedEOF
	}
	return bytes.NewReader(s.data[start:end]), nil
}

// readerAtSource adapts an io.ReaderAt (e.g. *os.File) to BlobSource.
type readerAtSource struct {
	r    io.ReaderAt
	size int64
}

// NewReaderAtSource returns a BlobSource over an io.ReaderAt of known size.
func NewReaderAtSource(r io.ReaderAt, size int64) BlobSource {
	return &readerAtSource{r: r, size: size}
}

func (s *readerAtSource) Size() int64 {
	return s.size
}

func (s *readerAtSource) Slice(start, end int64) (io.Reader, error) {
	if start < 0 || end < start || end > s.size {
		return nil, io.ErrUnexpectedEOF
	}
	return io.NewSectionReader(s.r, start, end-start), nil
}

// CookbookRequest asks the control plane for upload guidance for one target.
type CookbookRequest struct {
	Bucket      string
	Key         string
	ContentType string

	// SizeBytes is the declared file size, 0 when unknown
	SizeBytes int64
}

// MultipartPolicy is the server-advertised multipart guidance.
type MultipartPolicy struct {
	PartSizeBytes      int64
	EstimatedPartCount int
}

// CookbookResponse is the control plane's answer to a cookbook request.
type CookbookResponse struct {
	Multipart MultipartPolicy
}

// PresignedUpload describes a single-shot direct upload: the pre-signed PUT
// URL and the headers that must accompany the request.
type PresignedUpload struct {
	UploadURL        string
	Key              string
	ExpiresInSeconds int
	RequiredHeaders  map[string]string
}

// MultipartInit is the result of initiating a multipart upload.
type MultipartInit struct {
	UploadID string
	Key      string
}

// PartUploadURL is a pre-signed URL scoped to one (uploadID, partNumber)
// pair.
type PartUploadURL struct {
	UploadURL        string
	PartNumber       int32
	ExpiresInSeconds int
}

// CompleteResult is the result of completing a multipart upload.
type CompleteResult struct {
	Key      string
	ETag     string
	Location string
}

// ControlPlane is the pluggable client for the backend that brokers access
// to storage. Implementations live elsewhere (e.g. the controlplane
// package's HTTP client); the orchestrator depends only on this interface.
type ControlPlane interface {
	// UploadCookbook returns upload guidance for the target. The
	// orchestrator treats failures as advisory.
	UploadCookbook(ctx context.Context, req CookbookRequest) (*CookbookResponse, error)

	// CreatePresignedUpload returns a pre-signed single-shot PUT for the
	// target.
	CreatePresignedUpload(ctx context.Context, target Target) (*PresignedUpload, error)

	// InitiateMultipartUpload opens a multipart session for the target.
	InitiateMultipartUpload(ctx context.Context, target Target) (*MultipartInit, error)

	// CreateMultipartPartUploadURL returns a pre-signed PUT for one part.
	CreateMultipartPartUploadURL(ctx context.Context, bucket, key, uploadID string, partNumber int32) (*PartUploadURL, error)

	// CompleteMultipartUpload finalizes a session with the ordered list of
	// uploaded parts.
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (*CompleteResult, error)

	// AbortMultipartUpload discards a session and its uploaded parts.
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error
}

// ProxyResult is what a proxy upload reports back.
type ProxyResult struct {
	Key  string
	ETag string
}

// ProxyUploader uploads through the application's own backend instead of
// directly to storage. Implementations must honor ctx cancellation and may
// report their own progress.
type ProxyUploader interface {
	Upload(ctx context.Context, target Target, source BlobSource, progress ProgressFunc) (*ProxyResult, error)
}

// BatchFile is one entry in a batch upload.
type BatchFile struct {
	// Name is the bare filename, used when RelPath is empty
	Name string

	// RelPath is the path relative to the chosen folder, for folder uploads
	RelPath string

	// ContentType is the declared MIME type; sniffed from content when empty
	ContentType string

	// Source provides the file bytes
	Source BlobSource
}

// BatchProgressFunc receives batch-level progress as files complete and as
// the in-flight file reports bytes.
type BatchProgressFunc func(filesDone, totalFiles int, bytesDone, totalBytes int64)

// BatchOutcome classifies how a batch ended.
type BatchOutcome string

// Batch outcomes.
const (
	BatchAllSucceeded BatchOutcome = "all_succeeded"
	BatchAllFailed    BatchOutcome = "all_failed"
	BatchPartial      BatchOutcome = "partial"
	BatchCancelled    BatchOutcome = "cancelled"
)

// FailureReason groups failed files by their normalized error message.
type FailureReason struct {
	// Reason is the normalized human-readable message
	Reason string

	// Count is how many files failed with this reason
	Count int

	// Examples holds up to two relative paths that failed this way
	Examples []string
}

// BatchResult summarizes one user-initiated batch upload.
type BatchResult struct {
	Outcome       BatchOutcome
	TotalFiles    int
	Succeeded     int
	Failed        int
	TotalBytes    int64
	UploadedBytes int64
	Reasons       []FailureReason
}

// ClientConfig holds configuration for the hoist client.
type ClientConfig struct {
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Proxy          ProxyUploader
	ThresholdBytes int64
	PartRetries    int
}

// UploadOptionConfig holds per-upload configuration via functional options.
type UploadOptionConfig struct {
	ForceProxy     bool
	ThresholdBytes int64
	PartSize       int64
	PartRetries    int
	Progress       ProgressFunc
	Proxy          ProxyUploader
	Cookbook       *CookbookResponse
	ContentType    string
	Metadata       map[string]string
}

// BatchOptionConfig holds per-batch configuration via functional options.
type BatchOptionConfig struct {
	Progress    BatchProgressFunc
	Refresh     func()
	PartRetries int
	Proxy       ProxyUploader
}

// Option is a functional option for configuring the hoist client.
type (
	Option func(*ClientConfig)
	// UploadOption is a functional option for configuring one upload.
	UploadOption func(*UploadOptionConfig)
	// BatchOption is a functional option for configuring one batch upload.
	BatchOption func(*BatchOptionConfig)
)
