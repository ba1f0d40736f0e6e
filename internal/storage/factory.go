package storage

import (
	"errors"
	"strings"

	"github.com/timmy/prodcat/internal/config"
)

// ErrDisabled is returned by NewStorage when archiving is turned off.
var ErrDisabled = errors.New("storage: disabled")

// NewStorage creates the image archive from configuration.
// Parameters:
//   - cfg: bucket, endpoint and credentials.
//
// Returns:
//   - ObjectStorage: S3-compatible client.
//   - error: ErrDisabled when storage is off or has no bucket.
func NewStorage(cfg *config.StorageConfig) (ObjectStorage, error) {
	if cfg == nil || !cfg.Enabled || cfg.Bucket == "" {
		return nil, ErrDisabled
	}

	storeType := StorageType(strings.ToLower(cfg.Type))
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	return NewS3Storage(&S3Config{
		Type:      storeType,
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		UseSSL:    cfg.UseSSL,
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		PublicURL: cfg.PublicURL,
	})
}

func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)
	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case endpoint == "" || strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
