// Package server implements the hoist control-plane HTTP API: the upload
// endpoints the client library's controlplane package consumes, plus the
// bucket/object browse surface, backed by S3-compatible storage.
package server

import (
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/quaystone/hoist/hoisttypes"
)

// Config is the full server configuration, loaded from the environment.
type Config struct {
	S3     S3Config
	Server ServerConfig
	Upload UploadConfig
	CORS   CORSConfig
}

// S3Config describes the storage endpoint. Endpoint is optional; when empty
// the SDK's default AWS resolution applies, when set it targets an
// S3-compatible service (MinIO, Rook-Ceph).
type S3Config struct {
	Endpoint       string `envconfig:"S3_ENDPOINT"`
	AccessKey      string `envconfig:"S3_ACCESS_KEY"`
	SecretKey      string `envconfig:"S3_SECRET_KEY"`
	Region         string `envconfig:"S3_REGION" default:"us-east-1"`
	ForcePathStyle bool   `envconfig:"S3_FORCE_PATH_STYLE" default:"true"`
}

// ServerConfig describes the listen address and shutdown behavior.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            string        `envconfig:"SERVER_PORT" default:"8080"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`
}

// UploadConfig is the upload policy the server advertises and enforces.
type UploadConfig struct {
	PartSize       int64         `envconfig:"UPLOAD_PART_SIZE" default:"8388608"` // 8MB
	PresignExpiry  time.Duration `envconfig:"UPLOAD_PRESIGN_EXPIRY" default:"15m"`
	DownloadExpiry time.Duration `envconfig:"DOWNLOAD_PRESIGN_EXPIRY" default:"1h"`
	MaxProxyBytes  int64         `envconfig:"UPLOAD_MAX_PROXY_BYTES" default:"1073741824"` // 1GB
}

// CORSConfig controls which browser origins may call the API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:*"`
}

// Load reads the configuration from the environment and normalizes the
// upload policy to respect the storage part-size floor.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.Upload.PartSize < hoisttypes.MinPartSize {
		cfg.Upload.PartSize = hoisttypes.MinPartSize
	}
	return &cfg, nil
}
