// Package testutil provides mocks and helpers shared by the upload
// orchestration tests. It is internal and must only be imported from tests.
package testutil

import (
	"context"
	"fmt"

	"github.com/quaystone/hoist/hoisttypes"
)

// MockControlPlane is a mock implementation of the ControlPlane interface.
// Each operation can be customized through its function field; unset fields
// return canned successful responses.
type MockControlPlane struct {
	UploadCookbookFunc               func(context.Context, hoisttypes.CookbookRequest) (*hoisttypes.CookbookResponse, error)
	CreatePresignedUploadFunc        func(context.Context, hoisttypes.Target) (*hoisttypes.PresignedUpload, error)
	InitiateMultipartUploadFunc      func(context.Context, hoisttypes.Target) (*hoisttypes.MultipartInit, error)
	CreateMultipartPartUploadURLFunc func(ctx context.Context, bucket, key, uploadID string, partNumber int32) (*hoisttypes.PartUploadURL, error)
	CompleteMultipartUploadFunc      func(ctx context.Context, bucket, key, uploadID string, parts []hoisttypes.CompletedPart) (*hoisttypes.CompleteResult, error)
	AbortMultipartUploadFunc         func(ctx context.Context, bucket, key, uploadID string) error

	// AbortCalls records every abort invocation so tests can assert cleanup
	// happened (or didn't).
	AbortCalls []AbortCall
}

// AbortCall records the arguments of one AbortMultipartUpload invocation.
type AbortCall struct {
	Bucket   string
	Key      string
	UploadID string
}

// UploadCookbook mocks the cookbook negotiation.
func (m *MockControlPlane) UploadCookbook(
	ctx context.Context,
	req hoisttypes.CookbookRequest,
) (*hoisttypes.CookbookResponse, error) {
	if m.UploadCookbookFunc != nil {
		return m.UploadCookbookFunc(ctx, req)
	}
	return &hoisttypes.CookbookResponse{
		Multipart: hoisttypes.MultipartPolicy{PartSizeBytes: hoisttypes.DefaultPartSize},
	}, nil
}

// CreatePresignedUpload mocks single-shot URL issuance.
func (m *MockControlPlane) CreatePresignedUpload(
	ctx context.Context,
	target hoisttypes.Target,
) (*hoisttypes.PresignedUpload, error) {
	if m.CreatePresignedUploadFunc != nil {
		return m.CreatePresignedUploadFunc(ctx, target)
	}
	return &hoisttypes.PresignedUpload{
		UploadURL: "https://storage.test/" + target.Key,
		Key:       target.Key,
	}, nil
}

// InitiateMultipartUpload mocks multipart session creation.
func (m *MockControlPlane) InitiateMultipartUpload(
	ctx context.Context,
	target hoisttypes.Target,
) (*hoisttypes.MultipartInit, error) {
	if m.InitiateMultipartUploadFunc != nil {
		return m.InitiateMultipartUploadFunc(ctx, target)
	}
	return &hoisttypes.MultipartInit{UploadID: "upload-1", Key: target.Key}, nil
}

// CreateMultipartPartUploadURL mocks per-part URL issuance.
func (m *MockControlPlane) CreateMultipartPartUploadURL(
	ctx context.Context,
	bucket, key, uploadID string,
	partNumber int32,
) (*hoisttypes.PartUploadURL, error) {
	if m.CreateMultipartPartUploadURLFunc != nil {
		return m.CreateMultipartPartUploadURLFunc(ctx, bucket, key, uploadID, partNumber)
	}
	return &hoisttypes.PartUploadURL{
		UploadURL:  fmt.Sprintf("https://storage.test/%s?partNumber=%d", key, partNumber),
		PartNumber: partNumber,
	}, nil
}

// CompleteMultipartUpload mocks multipart completion.
func (m *MockControlPlane) CompleteMultipartUpload(
	ctx context.Context,
	bucket, key, uploadID string,
	parts []hoisttypes.CompletedPart,
) (*hoisttypes.CompleteResult, error) {
	if m.CompleteMultipartUploadFunc != nil {
		return m.CompleteMultipartUploadFunc(ctx, bucket, key, uploadID, parts)
	}
	return &hoisttypes.CompleteResult{Key: key, ETag: `"complete-etag"`}, nil
}

// AbortMultipartUpload mocks multipart abort and records the call.
func (m *MockControlPlane) AbortMultipartUpload(
	ctx context.Context,
	bucket, key, uploadID string,
) error {
	m.AbortCalls = append(m.AbortCalls, AbortCall{Bucket: bucket, Key: key, UploadID: uploadID})
	if m.AbortMultipartUploadFunc != nil {
		return m.AbortMultipartUploadFunc(ctx, bucket, key, uploadID)
	}
	return nil
}

// MockProxy is a mock implementation of the ProxyUploader interface.
type MockProxy struct {
	UploadFunc func(context.Context, hoisttypes.Target, hoisttypes.BlobSource, hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error)

	// Calls counts Upload invocations.
	Calls int
}

// Upload mocks a relayed upload.
func (m *MockProxy) Upload(
	ctx context.Context,
	target hoisttypes.Target,
	source hoisttypes.BlobSource,
	progress hoisttypes.ProgressFunc,
) (*hoisttypes.ProxyResult, error) {
	m.Calls++
	if m.UploadFunc != nil {
		return m.UploadFunc(ctx, target, source, progress)
	}
	return &hoisttypes.ProxyResult{Key: target.Key, ETag: `"proxy-etag"`}, nil
}
