// Package storage abstracts the file store holding uploaded submission
// documents. Two drivers exist: local disk for single-node deployments and
// an S3-compatible object store.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/Patrickjoshanedez/CMS-V2-sub000/internal/config"
)

// ErrDownloadFailed wraps any driver error for a missing or unreachable
// object. The process routine surfaces it as a fatal check failure.
var ErrDownloadFailed = errors.New("storage download failed")

type Store interface {
	Upload(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// New builds the store named by STORAGE_DRIVER.
func New(cfg *config.Config) (Store, error) {
	if cfg.StorageDriver == "minio" {
		return NewMinioStore(cfg)
	}
	return NewLocalStore(cfg.FileStorageDir)
}
