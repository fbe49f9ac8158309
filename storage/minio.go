package storage

import (
	"context"
	"fmt"
	"time"

	"audiopub/config"
	"audiopub/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

var minioClient *minio.Client

// InitMinio initializes the MinIO client and ensures the bucket exists.
func InitMinio(cfg *config.Config) error {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return fmt.Errorf("failed to create MinIO client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		logger.Info("created MinIO bucket", logger.String("bucket", cfg.MinioBucket))
	}

	minioClient = client
	logger.Info("MinIO client initialized", logger.String("bucket", cfg.MinioBucket))
	return nil
}

// GetMinioClient returns the MinIO client, or nil before InitMinio.
func GetMinioClient() *minio.Client {
	return minioClient
}

// MinioMirror copies transcoded audio files into the bucket and removes
// them when an audio is deleted.
type MinioMirror struct {
	bucket string
}

// NewMinioMirror creates a mirror over the initialized client.
func NewMinioMirror(bucket string) *MinioMirror {
	return &MinioMirror{bucket: bucket}
}

// Upload copies the file at filePath into the bucket under objectName.
func (m *MinioMirror) Upload(ctx context.Context, objectName, filePath, contentType string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	_, err := client.FPutObject(ctx, m.bucket, objectName, filePath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s to MinIO: %w", objectName, err)
	}
	return nil
}

// Remove deletes objectName from the bucket.
func (m *MinioMirror) Remove(ctx context.Context, objectName string) error {
	client := GetMinioClient()
	if client == nil {
		return fmt.Errorf("MinIO client not initialized")
	}

	err := client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to remove %s from MinIO: %w", objectName, err)
	}
	return nil
}
