// Package s3 builds the object-storage client used for photo delivery.
package s3

import (
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dkudrin/iskra/internal/config"
)

// NewClient connects to the S3-compatible endpoint holding profile
// photos. Photos are served through presigned GET URLs only, so the
// client never needs write credentials wider than bucket access.
func NewClient(cfg config.S3Config) (*minio.Client, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}

	return client, nil
}
