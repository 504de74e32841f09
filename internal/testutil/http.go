package testutil

import (
	"io"
	"net/http"
	"strings"
	"sync"
)

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

// RoundTrip implements http.RoundTripper.
func (f RoundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// NewHTTPClient returns an *http.Client whose transport is the given function.
func NewHTTPClient(fn RoundTripperFunc) *http.Client {
	return &http.Client{Transport: fn}
}

// Response builds a minimal *http.Response suitable for returning from a
// RoundTripperFunc.
func Response(status int, body string, headers map[string]string) *http.Response {
	h := make(http.Header)
	for k, v := range headers {
		h.Set(k, v)
	}
	return &http.Response{
		StatusCode: status,
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// RequestLog records requests seen by a stubbed transport. It is safe for
// concurrent use.
type RequestLog struct {
	mu       sync.Mutex
	requests []RecordedRequest
}

// RecordedRequest captures the parts of a request that tests assert on. The
// body is read eagerly because the request is consumed by the transport.
type RecordedRequest struct {
	Method string
	URL    string
	Header http.Header
	Body   string
}

// Record appends the request to the log, consuming its body.
func (l *RequestLog) Record(req *http.Request) {
	var body string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, RecordedRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: req.Header.Clone(),
		Body:   body,
	})
}

// All returns a copy of the recorded requests.
func (l *RequestLog) All() []RecordedRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]RecordedRequest, len(l.requests))
	copy(out, l.requests)
	return out
}

// Len returns the number of recorded requests.
func (l *RequestLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}
