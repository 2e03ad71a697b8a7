// pkg/export/minio.go
package export

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"dbpulse/pkg/config"
)

// Store uploads scan artifacts to an S3-compatible bucket.
type Store struct {
	client *minio.Client
	bucket string
	logger *zap.Logger
}

// NewStore connects to the configured object store and ensures the target
// bucket exists.
func NewStore(ctx context.Context, cfg *config.MinioConfig) (*Store, error) {
	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create object store client: %w", err)
	}

	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &Store{
		client: cli,
		bucket: cfg.Bucket,
		logger: zap.L().Named("export"),
	}, nil
}

// Upload pushes a local artifact under key and returns the object URL.
func (s *Store) Upload(ctx context.Context, localPath, key string) (string, error) {
	contentType := "application/octet-stream"
	switch filepath.Ext(localPath) {
	case ".json":
		contentType = "application/json"
	case ".csv":
		contentType = "text/csv"
	}

	info, err := s.client.FPutObject(ctx, s.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	s.logger.Info("Artifact uploaded",
		zap.String("bucket", s.bucket),
		zap.String("key", key),
		zap.Int64("size", info.Size))

	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucket, key), nil
}

// UploadAll pushes a set of local files under a common key prefix.
func (s *Store) UploadAll(ctx context.Context, paths []string, prefix string) ([]string, error) {
	var urls []string
	for _, p := range paths {
		url, err := s.Upload(ctx, p, prefix+"/"+filepath.Base(p))
		if err != nil {
			return urls, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
