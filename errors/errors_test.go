package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	base := stderrors.New("boom")

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "op only",
			err:  NewError("upload", base),
			want: "hoist.upload: boom",
		},
		{
			name: "with bucket and key",
			err:  NewError("upload", base).WithBucket("media").WithKey("a.txt"),
			want: "hoist.upload media/a.txt: boom",
		},
		{
			name: "with message",
			err:  NewError("upload", base).WithMessage("part 3 failed"),
			want: "hoist.upload: part 3 failed: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUnwrapChain(t *testing.T) {
	base := stderrors.New("boom")
	err := NewError("upload", base).WithBucket("media")

	assert.True(t, stderrors.Is(err, base))
}

func TestTransportError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := &TransportError{Err: cause}

	assert.True(t, IsTransport(err))
	assert.True(t, stderrors.Is(err, ErrTransport))
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, IsCancelled(err))
}

func TestTransportErrorPreservesCancellation(t *testing.T) {
	err := &TransportError{Err: fmt.Errorf("request aborted: %w", context.Canceled)}

	// Both classifications hold; callers check cancellation first.
	assert.True(t, IsTransport(err))
	assert.True(t, IsCancelled(err))
}

func TestStatusError(t *testing.T) {
	err := fmt.Errorf("put failed: %w", &StatusError{StatusCode: 403, Body: "denied"})

	code, ok := IsStatus(err)
	assert.True(t, ok)
	assert.Equal(t, 403, code)
	assert.Contains(t, err.Error(), "unexpected status 403")
	assert.False(t, IsTransport(err))
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(context.Canceled))
	assert.True(t, IsCancelled(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsCancelled(stderrors.New("boom")))
	assert.False(t, IsCancelled(nil))
}
