package blob

import (
	"context"
	"fmt"
	"io"

	"multicompare/internal/config"
	"multicompare/internal/infra/blob/fs"
	"multicompare/internal/infra/blob/gcs"
	"multicompare/internal/infra/blob/memory"
	"multicompare/internal/infra/blob/s3"
)

// NewFilesystem returns a Store rooted at a local directory.
func NewFilesystem(root string) (Store, error) { return fs.New(root) }

// NewMemory returns an in-process Store.
func NewMemory() Store { return memory.New() }

// NewS3 returns a Store on an S3-compatible bucket.
func NewS3(ctx context.Context, cfg config.S3) (Store, error) {
	return s3.New(ctx, s3.Config{
		Bucket:    cfg.Bucket,
		Region:    cfg.Region,
		Endpoint:  cfg.Endpoint,
		PathStyle: cfg.PathStyle,
	})
}

// NewMockS3ForTests returns an S3 Store backed by an in-process transport.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }

// NewGCS returns a Store on a Google Cloud Storage bucket.
func NewGCS(ctx context.Context, cfg config.GCS) (Store, error) {
	return gcs.New(ctx, gcs.Config{Bucket: cfg.Bucket, CredentialsFile: cfg.CredentialsFile})
}

// Open selects a Store implementation from configuration. An empty driver
// defaults to the filesystem.
func Open(ctx context.Context, cfg config.Blob) (Store, error) {
	driver := Driver(cfg.Driver)
	if driver == "" {
		driver = DriverFilesystem
	}
	switch driver {
	case DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverGCS:
		return NewGCS(ctx, cfg.GCS)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}

// Close releases driver resources such as the GCS client. Drivers without
// resources are a no-op.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
