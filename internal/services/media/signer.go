package media

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

const defaultSignedURLTTL = 15 * time.Minute

var ErrValidation = errors.New("media validation failed")

// S3Storage wraps the object store holding candidate photos.
type S3Storage struct {
	client *minio.Client
	bucket string

	ensureOnce sync.Once
	ensureErr  error
}

func NewS3Storage(client *minio.Client, bucket string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: strings.TrimSpace(bucket),
	}
}

func (s *S3Storage) EnsureBucket(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	if s.bucket == "" {
		return fmt.Errorf("s3 bucket is empty")
	}

	s.ensureOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.ensureErr = err
			return
		}
		if exists {
			return
		}
		s.ensureErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	})

	if s.ensureErr != nil {
		return fmt.Errorf("ensure s3 bucket %q: %w", s.bucket, s.ensureErr)
	}

	return nil
}

func (s *S3Storage) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("s3 client is nil")
	}
	if key == "" {
		return "", ErrValidation
	}
	if ttl <= 0 {
		ttl = defaultSignedURLTTL
	}

	presigned, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign get object: %w", err)
	}

	return presigned.String(), nil
}

// Presigner turns stored photo keys into browsable URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type SignerConfig struct {
	SignedURLTTL time.Duration
}

func (c SignerConfig) withDefaults() SignerConfig {
	if c.SignedURLTTL <= 0 {
		c.SignedURLTTL = defaultSignedURLTTL
	}
	return c
}

// Signer resolves candidate photo references. Keys in the object store
// get a presigned URL; absolute URLs pass through untouched, since
// feeds seeded from external providers store them that way.
type Signer struct {
	storage Presigner
	log     *zap.Logger
	cfg     SignerConfig
}

func NewSigner(storage Presigner, log *zap.Logger, cfg SignerConfig) *Signer {
	return &Signer{
		storage: storage,
		log:     log,
		cfg:     cfg.withDefaults(),
	}
}

// ResolvePhotos maps every reference to a URL. A key that fails to
// presign is dropped rather than failing the whole profile.
func (s *Signer) ResolvePhotos(ctx context.Context, refs []string) []string {
	if len(refs) == 0 {
		return nil
	}

	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if isAbsoluteURL(ref) || s.storage == nil {
			out = append(out, ref)
			continue
		}

		signed, err := s.storage.PresignGet(ctx, ref, s.cfg.SignedURLTTL)
		if err != nil {
			if s.log != nil {
				s.log.Warn("presign photo failed", zap.String("key", ref), zap.Error(err))
			}
			continue
		}
		out = append(out, signed)
	}

	return out
}

func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
