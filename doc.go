// Package hoist provides a high-level Go module for uploading objects to
// S3-compatible storage through a control plane that issues pre-signed URLs.
// It decides per object whether to upload in one request, in multipart
// chunks with per-part retry, or through a same-origin proxy when direct
// storage access is unavailable.
//
// The module emphasizes predictable failure handling: transport failures can
// fall back to the proxy, server rejections never do, and multipart sessions
// are always completed or aborted, never abandoned.
//
// Key features:
//   - Automatic strategy selection based on a configurable size threshold
//   - Multipart uploads with bounded per-part retry and best-effort abort
//   - Proxy fallback for clients that cannot reach storage directly
//   - Sequential batch uploads with byte-level progress and failure summaries
//   - Pluggable control plane through a small interface
//
// Example usage:
//
//	client, err := hoist.New(controlPlane)
//	if err != nil {
//	    return err
//	}
//
//	result, err := client.Upload(ctx,
//	    hoisttypes.Target{Bucket: "media", Key: "videos/demo.mp4"},
//	    hoisttypes.NewReaderAtSource(f, size),
//	)
//	if err != nil {
//	    return err
//	}
package hoist
