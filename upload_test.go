package hoist

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hoisterrors "github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
	"github.com/quaystone/hoist/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, cp hoisttypes.ControlPlane, client *http.Client, opts ...hoisttypes.Option) *Client {
	t.Helper()
	opts = append([]hoisttypes.Option{
		WithHTTPClient(client),
		WithLogger(discardLogger()),
	}, opts...)
	c, err := New(cp, opts...)
	require.NoError(t, err)
	return c
}

// okPutClient answers every PUT with a 200 and an ETag.
func okPutClient() *http.Client {
	return testutil.NewHTTPClient(func(req *http.Request) (*http.Response, error) {
		return testutil.Response(http.StatusOK, "", map[string]string{"ETag": `"ok"`}), nil
	})
}

func TestNew(t *testing.T) {
	t.Run("nil control plane", func(t *testing.T) {
		_, err := New(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, hoisterrors.ErrInvalidInput)
	})

	t.Run("defaults applied", func(t *testing.T) {
		c, err := New(&testutil.MockControlPlane{})
		require.NoError(t, err)
		assert.Equal(t, hoisttypes.DefaultMultipartThreshold, c.threshold)
		assert.Equal(t, hoisttypes.DefaultPartRetries, c.partRetries)
		assert.Same(t, http.DefaultClient, c.httpClient)
	})
}

func TestUploadStrategySelection(t *testing.T) {
	target := hoisttypes.Target{Bucket: "media", Key: "file.bin"}

	// A tiny threshold keeps test payloads small while exercising the same
	// boundary arithmetic as the 12MB default.
	const threshold = 64

	strategies := func(t *testing.T, size int64) hoisttypes.Strategy {
		t.Helper()
		cp := &testutil.MockControlPlane{}
		c := newTestClient(t, cp, okPutClient(), WithThreshold(threshold))
		source := hoisttypes.NewBytesSource(bytes.Repeat([]byte("x"), int(size)))

		res, err := c.Upload(context.Background(), target, source,
			WithUploadPartSize(hoisttypes.MinPartSize))
		require.NoError(t, err)
		return res.Strategy
	}

	t.Run("at threshold chooses direct", func(t *testing.T) {
		assert.Equal(t, hoisttypes.StrategyDirect, strategies(t, threshold))
	})

	t.Run("one byte over chooses multipart", func(t *testing.T) {
		assert.Equal(t, hoisttypes.StrategyMultipart, strategies(t, threshold+1))
	})

	t.Run("empty file chooses direct", func(t *testing.T) {
		assert.Equal(t, hoisttypes.StrategyDirect, strategies(t, 0))
	})

	t.Run("force proxy bypasses size decision", func(t *testing.T) {
		cp := &testutil.MockControlPlane{}
		proxy := &testutil.MockProxy{}
		c := newTestClient(t, cp, okPutClient(), WithThreshold(threshold), WithProxy(proxy))

		res, err := c.Upload(context.Background(), target,
			hoisttypes.NewBytesSource(bytes.Repeat([]byte("x"), threshold*4)),
			WithForceProxy())

		require.NoError(t, err)
		assert.Equal(t, hoisttypes.StrategyProxy, res.Strategy)
		assert.Equal(t, 1, proxy.Calls)
	})
}

func TestUploadCookbook(t *testing.T) {
	target := hoisttypes.Target{Bucket: "media", Key: "big.bin"}
	size := hoisttypes.DefaultMultipartThreshold + 1
	source := hoisttypes.NewBytesSource(bytes.Repeat([]byte("x"), int(size)))

	t.Run("cookbook part size is advisory and used", func(t *testing.T) {
		cookbookCalls := 0
		cp := &testutil.MockControlPlane{
			UploadCookbookFunc: func(_ context.Context, req hoisttypes.CookbookRequest) (*hoisttypes.CookbookResponse, error) {
				cookbookCalls++
				assert.Equal(t, size, req.SizeBytes)
				return &hoisttypes.CookbookResponse{
					Multipart: hoisttypes.MultipartPolicy{PartSizeBytes: 16 * 1024 * 1024},
				}, nil
			},
		}

		var requests int
		client := testutil.NewHTTPClient(func(req *http.Request) (*http.Response, error) {
			requests++
			return testutil.Response(http.StatusOK, "", map[string]string{"ETag": `"ok"`}), nil
		})

		_, err := newTestClient(t, cp, client).Upload(context.Background(), target, source)

		require.NoError(t, err)
		assert.Equal(t, 1, cookbookCalls)
		// 12MB+1 at a 16MB part size is a single part.
		assert.Equal(t, 1, requests)
	})

	t.Run("cookbook failure falls back to default sizing", func(t *testing.T) {
		cp := &testutil.MockControlPlane{
			UploadCookbookFunc: func(context.Context, hoisttypes.CookbookRequest) (*hoisttypes.CookbookResponse, error) {
				return nil, errors.New("cookbook unavailable")
			},
		}

		var requests int
		client := testutil.NewHTTPClient(func(req *http.Request) (*http.Response, error) {
			requests++
			return testutil.Response(http.StatusOK, "", map[string]string{"ETag": `"ok"`}), nil
		})

		res, err := newTestClient(t, cp, client).Upload(context.Background(), target, source)

		require.NoError(t, err)
		assert.Equal(t, hoisttypes.StrategyMultipart, res.Strategy)
		// 12MB+1 at the default 8MB part size is two parts.
		assert.Equal(t, 2, requests)
	})

	t.Run("explicit part size skips the cookbook fetch", func(t *testing.T) {
		cookbookCalls := 0
		cp := &testutil.MockControlPlane{
			UploadCookbookFunc: func(context.Context, hoisttypes.CookbookRequest) (*hoisttypes.CookbookResponse, error) {
				cookbookCalls++
				return &hoisttypes.CookbookResponse{}, nil
			},
		}

		_, err := newTestClient(t, cp, okPutClient()).Upload(context.Background(), target, source,
			WithUploadPartSize(hoisttypes.DefaultMultipartThreshold+1))

		require.NoError(t, err)
		assert.Zero(t, cookbookCalls)
	})
}

func TestUploadValidation(t *testing.T) {
	c := newTestClient(t, &testutil.MockControlPlane{}, okPutClient())
	source := hoisttypes.NewBytesSource([]byte("x"))

	t.Run("nil source", func(t *testing.T) {
		_, err := c.Upload(context.Background(), hoisttypes.Target{Bucket: "media", Key: "a"}, nil)
		assert.ErrorIs(t, err, hoisterrors.ErrInvalidInput)
	})

	t.Run("bad bucket", func(t *testing.T) {
		_, err := c.Upload(context.Background(), hoisttypes.Target{Bucket: "NO", Key: "a"}, source)
		assert.ErrorIs(t, err, hoisterrors.ErrInvalidBucketName)
	})

	t.Run("bad key", func(t *testing.T) {
		_, err := c.Upload(context.Background(), hoisttypes.Target{Bucket: "media", Key: "../x"}, source)
		assert.ErrorIs(t, err, hoisterrors.ErrInvalidObjectKey)
	})

	t.Run("bad metadata", func(t *testing.T) {
		_, err := c.Upload(context.Background(), hoisttypes.Target{Bucket: "media", Key: "a"}, source,
			WithMetadata(map[string]string{"k": "bad\nvalue"}))
		assert.ErrorIs(t, err, hoisterrors.ErrInvalidInput)
	})
}

func TestUploadErrorPropagation(t *testing.T) {
	target := hoisttypes.Target{Bucket: "media", Key: "file.bin"}

	t.Run("strategy errors surface unchanged", func(t *testing.T) {
		client := testutil.NewHTTPClient(func(req *http.Request) (*http.Response, error) {
			return testutil.Response(http.StatusBadRequest, "bad digest", nil), nil
		})
		c := newTestClient(t, &testutil.MockControlPlane{}, client)

		_, err := c.Upload(context.Background(), target, hoisttypes.NewBytesSource([]byte("x")))

		require.Error(t, err)
		code, ok := hoisterrors.IsStatus(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, code)
	})
}
