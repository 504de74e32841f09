package hoist

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quaystone/hoist/hoisttypes"
	"github.com/quaystone/hoist/internal/testutil"
)

type batchTick struct {
	filesDone int
	bytesDone int64
}

func bytesFile(name, rel string, size int) hoisttypes.BatchFile {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte('a' + i%26)
	}
	return hoisttypes.BatchFile{Name: name, RelPath: rel, Source: hoisttypes.NewBytesSource(data)}
}

// simulatedProxy reports progress in two ticks per file, half then full.
func simulatedProxy() *testutil.MockProxy {
	return &testutil.MockProxy{
		UploadFunc: func(_ context.Context, tgt hoisttypes.Target, src hoisttypes.BlobSource, progress hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error) {
			size := src.Size()
			if progress != nil {
				progress(hoisttypes.ProgressEvent{BytesCompleted: size / 2, TotalBytes: size})
				progress(hoisttypes.ProgressEvent{BytesCompleted: size, TotalBytes: size})
			}
			return &hoisttypes.ProxyResult{Key: tgt.Key}, nil
		},
	}
}

func TestUploadBatch(t *testing.T) {
	t.Run("empty batch is invalid", func(t *testing.T) {
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient)
		_, err := c.UploadBatch(context.Background(), "media", "", nil)
		require.Error(t, err)
	})

	t.Run("keys join prefix and relative path", func(t *testing.T) {
		var keys []string
		proxy := &testutil.MockProxy{
			UploadFunc: func(_ context.Context, tgt hoisttypes.Target, _ hoisttypes.BlobSource, _ hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error) {
				keys = append(keys, tgt.Key)
				return &hoisttypes.ProxyResult{Key: tgt.Key}, nil
			},
		}
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient, WithProxy(proxy))

		res, err := c.UploadBatch(context.Background(), "media", "incoming/", []hoisttypes.BatchFile{
			bytesFile("flat.txt", "", 4),
			bytesFile("nested.txt", "sub/dir/nested.txt", 4),
		})

		require.NoError(t, err)
		assert.Equal(t, hoisttypes.BatchAllSucceeded, res.Outcome)
		assert.Equal(t, []string{"incoming/flat.txt", "incoming/sub/dir/nested.txt"}, keys)
	})

	t.Run("content type is sniffed when missing", func(t *testing.T) {
		var contentTypes []string
		proxy := &testutil.MockProxy{
			UploadFunc: func(_ context.Context, tgt hoisttypes.Target, _ hoisttypes.BlobSource, _ hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error) {
				contentTypes = append(contentTypes, tgt.ContentType)
				return &hoisttypes.ProxyResult{Key: tgt.Key}, nil
			},
		}
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient, WithProxy(proxy))

		declared := hoisttypes.BatchFile{
			Name:        "page.html",
			ContentType: "text/html",
			Source:      hoisttypes.NewBytesSource([]byte("<html></html>")),
		}
		sniffed := hoisttypes.BatchFile{
			Name:   "image.png",
			Source: hoisttypes.NewBytesSource([]byte("\x89PNG\r\n\x1a\n" + "rest")),
		}

		_, err := c.UploadBatch(context.Background(), "media", "", []hoisttypes.BatchFile{declared, sniffed})

		require.NoError(t, err)
		require.Len(t, contentTypes, 2)
		assert.Equal(t, "text/html", contentTypes[0])
		assert.Equal(t, "image/png", contentTypes[1])
	})

	t.Run("byte accounting sums exactly and never overshoots", func(t *testing.T) {
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient,
			WithProxy(simulatedProxy()))

		var ticks []batchTick
		res, err := c.UploadBatch(context.Background(), "media", "",
			[]hoisttypes.BatchFile{
				bytesFile("a", "", 10),
				bytesFile("b", "", 20),
				bytesFile("c", "", 30),
			},
			WithBatchProgress(func(filesDone, totalFiles int, bytesDone, totalBytes int64) {
				assert.Equal(t, 3, totalFiles)
				assert.Equal(t, int64(60), totalBytes)
				ticks = append(ticks, batchTick{filesDone: filesDone, bytesDone: bytesDone})
			}),
		)

		require.NoError(t, err)
		assert.Equal(t, int64(60), res.UploadedBytes)
		assert.Equal(t, int64(60), res.TotalBytes)

		require.NotEmpty(t, ticks)
		assert.Equal(t, int64(60), ticks[len(ticks)-1].bytesDone)
		var prev int64
		for _, tick := range ticks {
			assert.GreaterOrEqual(t, tick.bytesDone, prev)
			assert.LessOrEqual(t, tick.bytesDone, int64(60))
			prev = tick.bytesDone
		}
	})

	t.Run("overshooting file progress is clamped", func(t *testing.T) {
		proxy := &testutil.MockProxy{
			UploadFunc: func(_ context.Context, tgt hoisttypes.Target, src hoisttypes.BlobSource, progress hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error) {
				// A racing tick reports more bytes than the file holds.
				progress(hoisttypes.ProgressEvent{BytesCompleted: src.Size() * 2, TotalBytes: src.Size()})
				return &hoisttypes.ProxyResult{Key: tgt.Key}, nil
			},
		}
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient, WithProxy(proxy))

		var maxSeen int64
		_, err := c.UploadBatch(context.Background(), "media", "",
			[]hoisttypes.BatchFile{bytesFile("a", "", 10)},
			WithBatchProgress(func(_, _ int, bytesDone, _ int64) {
				if bytesDone > maxSeen {
					maxSeen = bytesDone
				}
			}),
		)

		require.NoError(t, err)
		assert.Equal(t, int64(10), maxSeen)
	})

	t.Run("cancellation mid-batch reports cancelled, not failed", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		uploads := 0
		proxy := &testutil.MockProxy{
			UploadFunc: func(ctx context.Context, tgt hoisttypes.Target, _ hoisttypes.BlobSource, _ hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error) {
				uploads++
				if uploads == 2 {
					// The in-flight request observes the abort signal.
					cancel()
					return nil, ctx.Err()
				}
				return &hoisttypes.ProxyResult{Key: tgt.Key}, nil
			},
		}
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient, WithProxy(proxy))

		refreshed := false
		res, err := c.UploadBatch(ctx, "media", "",
			[]hoisttypes.BatchFile{
				bytesFile("a", "", 4),
				bytesFile("b", "", 4),
				bytesFile("c", "", 4),
			},
			WithRefresh(func() { refreshed = true }),
		)

		require.NoError(t, err)
		assert.Equal(t, hoisttypes.BatchCancelled, res.Outcome)
		assert.Equal(t, 1, res.Succeeded)
		assert.Zero(t, res.Failed)
		assert.Equal(t, 2, uploads)
		// One file made it, so the listing still refreshes.
		assert.True(t, refreshed)
	})

	t.Run("identical failures group into one reason", func(t *testing.T) {
		proxy := &testutil.MockProxy{
			UploadFunc: func(_ context.Context, tgt hoisttypes.Target, _ hoisttypes.BlobSource, _ hoisttypes.ProgressFunc) (*hoisttypes.ProxyResult, error) {
				if tgt.Key == "ok1" || tgt.Key == "ok2" {
					return &hoisttypes.ProxyResult{Key: tgt.Key}, nil
				}
				return nil, errors.New("proxy endpoint returned garbage")
			},
		}
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient, WithProxy(proxy))

		res, err := c.UploadBatch(context.Background(), "media", "",
			[]hoisttypes.BatchFile{
				bytesFile("bad1", "", 4),
				bytesFile("ok1", "", 4),
				bytesFile("bad2", "", 4),
				bytesFile("bad3", "", 4),
				bytesFile("ok2", "", 4),
			},
		)

		require.NoError(t, err)
		assert.Equal(t, hoisttypes.BatchPartial, res.Outcome)
		assert.Equal(t, 2, res.Succeeded)
		assert.Equal(t, 3, res.Failed)

		require.Len(t, res.Reasons, 1)
		reason := res.Reasons[0]
		assert.Equal(t, 3, reason.Count)
		assert.Equal(t, []string{"bad1", "bad2"}, reason.Examples)
	})

	t.Run("no proxy configured fails every file", func(t *testing.T) {
		c := newTestClient(t, &testutil.MockControlPlane{}, http.DefaultClient)

		refreshed := false
		res, err := c.UploadBatch(context.Background(), "media", "",
			[]hoisttypes.BatchFile{bytesFile("a", "", 4), bytesFile("b", "", 4)},
			WithRefresh(func() { refreshed = true }),
		)

		require.NoError(t, err)
		assert.Equal(t, hoisttypes.BatchAllFailed, res.Outcome)
		assert.Equal(t, 2, res.Failed)
		assert.False(t, refreshed)
		require.Len(t, res.Reasons, 1)
		assert.Equal(t, "Upload proxy is not configured", res.Reasons[0].Reason)
	})
}

func TestBatchResultSummary(t *testing.T) {
	tests := []struct {
		name   string
		result hoisttypes.BatchResult
		want   string
	}{
		{
			name:   "all succeeded",
			result: hoisttypes.BatchResult{Outcome: hoisttypes.BatchAllSucceeded, Succeeded: 3},
			want:   "Uploaded 3 file(s)",
		},
		{
			name: "partial with examples",
			result: hoisttypes.BatchResult{
				Outcome:   hoisttypes.BatchPartial,
				Succeeded: 2,
				Failed:    3,
				Reasons: []hoisttypes.FailureReason{{
					Reason:   "Upload request could not reach the backend upload proxy",
					Count:    3,
					Examples: []string{"a.txt", "b.txt"},
				}},
			},
			want: "Uploaded 2 file(s), 3 failed: Upload request could not reach the backend upload proxy (3, e.g. a.txt, b.txt)",
		},
		{
			name: "cancelled",
			result: hoisttypes.BatchResult{
				Outcome:    hoisttypes.BatchCancelled,
				Succeeded:  1,
				TotalFiles: 3,
			},
			want: "Upload cancelled: 1 of 3 file(s) completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Summary())
		})
	}
}
