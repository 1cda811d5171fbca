package pkg

import (
	"context"
	"fmt"
	"mime/multipart"
	"path"
	"path/filepath"
	"strings"

	"Vid_Community/internal/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

const (
	VideoDir     = "uploads"
	PostImageDir = "post_images"
)

// MediaStorage 媒体文件存储；key 为对象存储内的相对路径
type MediaStorage interface {
	Save(ctx context.Context, dir string, fh *multipart.FileHeader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

type MinioStorage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	logger    zerolog.Logger
}

func NewMinioStorage(cfg config.StorageConfig, logger zerolog.Logger) (*MinioStorage, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}
	return &MinioStorage{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: cfg.PublicURL,
		logger:    logger,
	}, nil
}

// EnsureBucket bucket 不存在时创建并开放匿名读
func (s *MinioStorage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	s.logger.Info().Str("bucket", s.bucket).Msg("created media bucket")

	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": {"AWS": ["*"]},
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, s.bucket)
	if err = s.client.SetBucketPolicy(ctx, s.bucket, policy); err != nil {
		s.logger.Warn().Err(err).Msg("failed to set public bucket policy")
	}
	return nil
}

func (s *MinioStorage) Save(ctx context.Context, dir string, fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	key := ObjectKey(dir, fh.Filename)
	_, err = s.client.PutObject(ctx, s.bucket, key, f, fh.Size, minio.PutObjectOptions{
		ContentType: fh.Header.Get("Content-Type"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload media: %w", err)
	}
	s.logger.Debug().Str("object_key", key).Int64("size", fh.Size).Msg("uploaded media")
	return key, nil
}

func (s *MinioStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}
	return nil
}

func (s *MinioStorage) URL(key string) string {
	if key == "" {
		return ""
	}
	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, key)
}

// ObjectKey dir/<uuid><ext>，不保留原始文件名
func ObjectKey(dir, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return path.Join(dir, uuid.NewString()+ext)
}
