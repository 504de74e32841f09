package storage

import (
	"context"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/quaystone/hoist/errors"
)

// Options configures a Store.
type Options struct {
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint string
	// AccessKey and SecretKey are static credentials; both empty means the
	// SDK's default credential chain is used.
	AccessKey string
	SecretKey string
	Region    string
	// ForcePathStyle addresses buckets as path segments, required by most
	// non-AWS endpoints.
	ForcePathStyle bool

	// PresignExpiry is the lifetime of upload URLs, DownloadExpiry of
	// download URLs.
	PresignExpiry  time.Duration
	DownloadExpiry time.Duration
}

// Store performs storage operations against one S3-compatible endpoint.
type Store struct {
	client  S3API
	presign PresignAPI
	opts    Options
}

// New creates a Store, loading AWS configuration and wiring the presign
// client.
func New(ctx context.Context, opts Options) (*Store, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" || opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errors.NewError("storage initialization", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
	})

	return NewWithClient(client, s3.NewPresignClient(client), opts), nil
}

// NewWithClient creates a Store from pre-built clients. Used by tests and by
// callers with custom SDK wiring.
func NewWithClient(client S3API, presign PresignAPI, opts Options) *Store {
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 15 * time.Minute
	}
	if opts.DownloadExpiry <= 0 {
		opts.DownloadExpiry = time.Hour
	}
	return &Store{client: client, presign: presign, opts: opts}
}

// BucketInfo describes one bucket in a listing.
type BucketInfo struct {
	Name         string
	CreationDate time.Time
}

// ListBuckets returns all buckets visible to the configured credentials.
func (s *Store) ListBuckets(ctx context.Context) ([]BucketInfo, error) {
	out, err := s.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, errors.NewError("list_buckets", err)
	}
	buckets := make([]BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		info := BucketInfo{Name: aws.ToString(b.Name)}
		if b.CreationDate != nil {
			info.CreationDate = *b.CreationDate
		}
		buckets = append(buckets, info)
	}
	return buckets, nil
}

// ObjectInfo describes one object in a listing.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// ObjectPage is one page of a bucket listing.
type ObjectPage struct {
	Objects               []ObjectInfo
	IsTruncated           bool
	KeyCount              int
	NextContinuationToken string
}

// ListObjects returns one page of objects under prefix.
func (s *Store) ListObjects(
	ctx context.Context,
	bucket, prefix string,
	maxKeys int32,
	continuationToken string,
) (*ObjectPage, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
	}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	if maxKeys > 0 {
		input.MaxKeys = aws.Int32(maxKeys)
	}
	if continuationToken != "" {
		input.ContinuationToken = aws.String(continuationToken)
	}

	out, err := s.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, errors.NewError("list_objects", err).WithBucket(bucket)
	}

	page := &ObjectPage{
		IsTruncated:           aws.ToBool(out.IsTruncated),
		KeyCount:              int(aws.ToInt32(out.KeyCount)),
		NextContinuationToken: aws.ToString(out.NextContinuationToken),
		Objects:               make([]ObjectInfo, 0, len(out.Contents)),
	}
	for _, obj := range out.Contents {
		info := ObjectInfo{
			Key:  aws.ToString(obj.Key),
			Size: aws.ToInt64(obj.Size),
			ETag: aws.ToString(obj.ETag),
		}
		if obj.LastModified != nil {
			info.LastModified = *obj.LastModified
		}
		page.Objects = append(page.Objects, info)
	}
	return page, nil
}

// ObjectStat is the metadata of one object plus a presigned download URL.
type ObjectStat struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
	Metadata     map[string]string
	DownloadURL  string
}

// StatObject heads an object and mints a presigned download URL for it.
func (s *Store) StatObject(ctx context.Context, bucket, key string) (*ObjectStat, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.NewError("stat_object", err).WithBucket(bucket).WithKey(key)
	}

	download, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.opts.DownloadExpiry))
	if err != nil {
		return nil, errors.NewError("stat_object", err).WithBucket(bucket).WithKey(key)
	}

	stat := &ObjectStat{
		Key:         key,
		Size:        aws.ToInt64(head.ContentLength),
		ContentType: aws.ToString(head.ContentType),
		ETag:        aws.ToString(head.ETag),
		Metadata:    head.Metadata,
		DownloadURL: download.URL,
	}
	if head.LastModified != nil {
		stat.LastModified = *head.LastModified
	}
	return stat, nil
}

// DeleteObject removes one object.
func (s *Store) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.NewError("delete_object", err).WithBucket(bucket).WithKey(key)
	}
	return nil
}

// PutObject uploads a body server-side, used by the proxy upload endpoint.
// Returns the stored object's ETag.
func (s *Store) PutObject(
	ctx context.Context,
	bucket, key, contentType string,
	metadata map[string]string,
	body io.Reader,
	size int64,
) (string, error) {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	out, err := s.client.PutObject(ctx, input)
	if err != nil {
		return "", errors.NewError("put_object", err).WithBucket(bucket).WithKey(key)
	}
	return aws.ToString(out.ETag), nil
}

// PresignedRequest is a minted URL plus the headers the caller must send.
type PresignedRequest struct {
	URL     string
	Headers map[string]string
	Expiry  time.Duration
}

// PresignPut mints a single-shot upload URL for a target.
func (s *Store) PresignPut(
	ctx context.Context,
	bucket, key, contentType string,
	metadata map[string]string,
) (*PresignedRequest, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	req, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.opts.PresignExpiry))
	if err != nil {
		return nil, errors.NewError("presign_put", err).WithBucket(bucket).WithKey(key)
	}
	return &PresignedRequest{
		URL:     req.URL,
		Headers: flattenHeaders(req.SignedHeader),
		Expiry:  s.opts.PresignExpiry,
	}, nil
}

// MultipartSession is an opened multipart upload.
type MultipartSession struct {
	UploadID string
	Key      string
}

// CreateMultipart opens a multipart upload session.
func (s *Store) CreateMultipart(
	ctx context.Context,
	bucket, key, contentType string,
	metadata map[string]string,
) (*MultipartSession, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if len(metadata) > 0 {
		input.Metadata = metadata
	}

	out, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return nil, errors.NewError("create_multipart", err).WithBucket(bucket).WithKey(key)
	}
	return &MultipartSession{
		UploadID: aws.ToString(out.UploadId),
		Key:      aws.ToString(out.Key),
	}, nil
}

// PresignPart mints an upload URL for one part of an open session.
func (s *Store) PresignPart(
	ctx context.Context,
	bucket, key, uploadID string,
	partNumber int32,
) (*PresignedRequest, error) {
	req, err := s.presign.PresignUploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(s.opts.PresignExpiry))
	if err != nil {
		return nil, errors.NewError("presign_part", err).WithBucket(bucket).WithKey(key)
	}
	return &PresignedRequest{
		URL:    req.URL,
		Expiry: s.opts.PresignExpiry,
	}, nil
}

// CompletedPart pairs a part number with its ETag for completion.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// CompleteOutput is the terminal state of a finished multipart upload.
type CompleteOutput struct {
	Key      string
	ETag     string
	Location string
}

// CompleteMultipart finishes a session with the ordered part list.
func (s *Store) CompleteMultipart(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []CompletedPart,
) (*CompleteOutput, error) {
	sdkParts := make([]s3types.CompletedPart, len(parts))
	for i, p := range parts {
		sdkParts[i] = s3types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		}
	}

	out, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &s3types.CompletedMultipartUpload{
			Parts: sdkParts,
		},
	})
	if err != nil {
		return nil, errors.NewError("complete_multipart", err).WithBucket(bucket).WithKey(key)
	}
	return &CompleteOutput{
		Key:      aws.ToString(out.Key),
		ETag:     aws.ToString(out.ETag),
		Location: aws.ToString(out.Location),
	}, nil
}

// AbortMultipart tears down an open session.
func (s *Store) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return errors.NewError("abort_multipart", err).WithBucket(bucket).WithKey(key)
	}
	return nil
}

// flattenHeaders reduces the signed header map to single values, which is
// what upload clients replay on the presigned request.
func flattenHeaders(h map[string][]string) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, vs := range h {
		if len(vs) > 0 {
			out[k] = vs[0]
		}
	}
	return out
}
