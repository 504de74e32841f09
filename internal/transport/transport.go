// Package transport performs raw HTTP PUTs against pre-signed storage URLs
// and classifies failures into the transport / server-rejection taxonomy.
package transport

import (
	"context"
	"io"
	"net/http"

	hoisterrors "github.com/quaystone/hoist/errors"
)

// maxErrorBody caps how much of an error response body is captured for the
// error message.
const maxErrorBody = 512

// Put issues a single HTTP PUT of body to url with the given headers.
// A request that never produced an HTTP response is reported as a
// TransportError; a non-2xx response is reported as a StatusError. On
// success the response's ETag header is returned. It may be empty; callers
// that require it must check.
func Put(
	ctx context.Context,
	client *http.Client,
	url string,
	headers map[string]string,
	body io.Reader,
	contentLength int64,
) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, body)
	if err != nil {
		return "", hoisterrors.NewError("put", err)
	}
	req.ContentLength = contentLength
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", &hoisterrors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &hoisterrors.StatusError{
			StatusCode: resp.StatusCode,
			Body:       string(snippet),
		}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.Header.Get("ETag"), nil
}
