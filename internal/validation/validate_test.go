package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quaystone/hoist/errors"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr bool
	}{
		{name: "simple name", bucket: "my-bucket"},
		{name: "with dots", bucket: "my.bucket.backups"},
		{name: "numbers allowed", bucket: "bucket123"},
		{name: "minimum length", bucket: "abc"},
		{name: "empty", bucket: "", wantErr: true},
		{name: "too short", bucket: "ab", wantErr: true},
		{name: "too long", bucket: strings.Repeat("a", 64), wantErr: true},
		{name: "uppercase", bucket: "MyBucket", wantErr: true},
		{name: "underscore", bucket: "my_bucket", wantErr: true},
		{name: "leading hyphen", bucket: "-bucket", wantErr: true},
		{name: "trailing dot", bucket: "bucket.", wantErr: true},
		{name: "adjacent dots", bucket: "my..bucket", wantErr: true},
		{name: "dot hyphen", bucket: "my.-bucket", wantErr: true},
		{name: "ip address", bucket: "192.168.1.1", wantErr: true},
		{name: "ip-like but not ip", bucket: "192.168.1.1a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidBucketName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "simple key", key: "file.txt"},
		{name: "nested key", key: "photos/2024/img.png"},
		{name: "unicode", key: "docs/résumé.pdf"},
		{name: "dots inside segment", key: "archive/file..name.txt"},
		{name: "empty", key: "", wantErr: true},
		{name: "too long", key: strings.Repeat("k", 1025), wantErr: true},
		{name: "traversal", key: "photos/../secrets.txt", wantErr: true},
		{name: "leading traversal", key: "../etc/passwd", wantErr: true},
		{name: "control character", key: "file\x00.txt", wantErr: true},
		{name: "newline", key: "file\n.txt", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidObjectKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTarget(t *testing.T) {
	assert.NoError(t, ValidateTarget("media", "a/b.txt"))
	assert.ErrorIs(t, ValidateTarget("", "a.txt"), errors.ErrInvalidBucketName)
	assert.ErrorIs(t, ValidateTarget("media", ""), errors.ErrInvalidObjectKey)
}

func TestValidateMetadata(t *testing.T) {
	assert.NoError(t, ValidateMetadata(nil))
	assert.NoError(t, ValidateMetadata(map[string]string{"owner": "alice"}))
	assert.Error(t, ValidateMetadata(map[string]string{"": "v"}))
	assert.Error(t, ValidateMetadata(map[string]string{"k": "line\nbreak"}))
	assert.Error(t, ValidateMetadata(map[string]string{"clé": "v"}))
}
