package controlplane

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	hoisterrors "github.com/quaystone/hoist/errors"
	"github.com/quaystone/hoist/hoisttypes"
)

// Proxy relays uploads through the backend's proxy endpoint as
// multipart/form-data. It implements hoisttypes.ProxyUploader.
type Proxy struct {
	baseURL    string
	httpClient *http.Client
}

// NewProxy creates a proxy transport for the API rooted at baseURL.
func NewProxy(baseURL string, opts ...Option) *Proxy {
	// Reuse the client option set so callers configure both the same way.
	c := New(baseURL, opts...)
	return &Proxy{baseURL: c.baseURL, httpClient: c.httpClient}
}

type proxyResponse struct {
	Key  string `json:"key"`
	ETag string `json:"etag"`
}

// Upload streams the source to the proxy endpoint. The body is produced
// through a pipe so the file is never buffered whole in memory; progress is
// reported as the file bytes are consumed by the request.
func (p *Proxy) Upload(
	ctx context.Context,
	target hoisttypes.Target,
	source hoisttypes.BlobSource,
	progress hoisttypes.ProgressFunc,
) (*hoisttypes.ProxyResult, error) {
	size := source.Size()
	file, err := source.Slice(0, size)
	if err != nil {
		return nil, hoisterrors.NewError("proxy_upload", err).
			WithBucket(target.Bucket).
			WithKey(target.Key)
	}

	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(form, target, file, size, progress))
	}()

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, p.baseURL+"/uploads/proxy", pr)
	if err != nil {
		return nil, hoisterrors.NewError("proxy_upload", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &hoisterrors.TransportError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &hoisterrors.StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var body proxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, hoisterrors.NewError("proxy_upload", fmt.Errorf("decode response: %w", err))
	}
	return &hoisttypes.ProxyResult{Key: body.Key, ETag: body.ETag}, nil
}

// writeForm emits the multipart form fields followed by the streamed file
// part, then closes the form so the terminating boundary is written.
func writeForm(
	form *multipart.Writer,
	target hoisttypes.Target,
	file io.Reader,
	size int64,
	progress hoisttypes.ProgressFunc,
) error {
	fields := map[string]string{
		"bucket":      target.Bucket,
		"key":         target.Key,
		"contentType": target.ContentType,
	}
	if len(target.Metadata) > 0 {
		meta, err := json.Marshal(target.Metadata)
		if err != nil {
			return err
		}
		fields["metadata"] = string(meta)
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := form.WriteField(name, value); err != nil {
			return err
		}
	}

	part, err := form.CreateFormFile("file", target.Key)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, &progressReader{r: file, total: size, progress: progress}); err != nil {
		return err
	}
	return form.Close()
}

// progressReader reports cumulative bytes read through the progress callback.
type progressReader struct {
	r        io.Reader
	read     int64
	total    int64
	progress hoisttypes.ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.read += int64(n)
		if p.progress != nil {
			p.progress(hoisttypes.ProgressEvent{
				BytesCompleted: p.read,
				TotalBytes:     p.total,
			})
		}
	}
	return n, err
}
