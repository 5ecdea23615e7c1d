package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"VoidFM/config"
	"VoidFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotConfigured is returned when no MinIO endpoint is set.
var ErrNotConfigured = errors.New("minio not configured")

// MinioStore 封装 MinIO 客户端，按 key 读取音频和封面对象
type MinioStore struct {
	client *minio.Client
	bucket string
}

// Enabled reports whether an endpoint is configured.
func Enabled(cfg *config.Config) bool {
	return cfg.MinioEndpoint != ""
}

// NewMinioStore 创建 MinIO 存储。不会发起网络请求。
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	if !Enabled(cfg) {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}
	return &MinioStore{client: client, bucket: cfg.MinioBucket}, nil
}

// Bucket returns the bucket name.
func (s *MinioStore) Bucket() string {
	return s.bucket
}

// Check 检查存储桶是否存在
func (s *MinioStore) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		return fmt.Errorf("存储桶 %s 不存在", s.bucket)
	}
	logger.Info("MinIO bucket ready", logger.String("bucket", s.bucket))
	return nil
}

// Open 打开对象。GetObject 是惰性的，这里先 Stat 一次，让不存在的 key 立即报错。
func (s *MinioStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("读取对象 %s 失败: %w", key, err)
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, fmt.Errorf("读取对象 %s 失败: %w", key, err)
	}
	return obj, nil
}

// Stat 获取单个对象的信息
func (s *MinioStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return toObjectInfo(info), nil
}

func toObjectInfo(o minio.ObjectInfo) ObjectInfo {
	return ObjectInfo{
		Key:          o.Key,
		Size:         o.Size,
		LastModified: o.LastModified,
		ContentType:  o.ContentType,
		ETag:         o.ETag,
	}
}
