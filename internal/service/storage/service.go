// Package storage persists attachment bytes in MinIO and hands out
// presigned download URLs. Validation happens before this layer; by the
// time bytes arrive here they have already been classified and size-checked.
package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"marketchat-backend/internal/domain"
	"marketchat-backend/pkg/constants"
	"marketchat-backend/pkg/errors"
	"marketchat-backend/pkg/logger"
)

// Config holds MinIO connection settings
type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	BucketName string
	UseSSL     bool
	// PublicBaseURL is the externally reachable object URL prefix. When
	// empty, stored objects carry presigned URLs instead of direct ones.
	PublicBaseURL string
}

// Service handles attachment object storage
type Service struct {
	minioClient *minio.Client
	bucketName  string
	baseURL     string
}

// NewService creates a storage service and ensures the bucket exists
func NewService(ctx context.Context, cfg Config) (*Service, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	exists, err := minioClient.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info("created attachment bucket", zap.String("bucket", cfg.BucketName))
	}

	return &Service{
		minioClient: minioClient,
		bucketName:  cfg.BucketName,
		baseURL:     cfg.PublicBaseURL,
	}, nil
}

// objectKey namespaces stored objects by uploader so keys never collide
// and per-user cleanup stays a prefix listing
func objectKey(ownerID, objectID uuid.UUID) string {
	return fmt.Sprintf("attachments/%s/%s", ownerID, objectID)
}

// Store streams the upload into the bucket and returns the stored object
// metadata the message append will reference
func (s *Service) Store(ctx context.Context, ownerID uuid.UUID, reader io.Reader, size int64, mimeType, fileName string) (*domain.StoredObject, error) {
	objectID := uuid.New()
	key := objectKey(ownerID, objectID)

	_, err := s.minioClient.PutObject(ctx, s.bucketName, key, reader, size, minio.PutObjectOptions{
		ContentType: mimeType,
		UserMetadata: map[string]string{
			"original-filename": fileName,
		},
	})
	if err != nil {
		logger.Error("attachment upload failed",
			zap.String("object_key", key),
			zap.Error(err))
		return nil, errors.StorageError(err)
	}

	url, err := s.downloadURL(ctx, key)
	if err != nil {
		return nil, err
	}

	return &domain.StoredObject{
		ObjectID: objectID,
		URL:      url,
		FileName: fileName,
		FileType: mimeType,
		FileSize: size,
	}, nil
}

// DownloadURL returns a fresh download URL for a previously stored object
func (s *Service) DownloadURL(ctx context.Context, ownerID, objectID uuid.UUID) (string, error) {
	return s.downloadURL(ctx, objectKey(ownerID, objectID))
}

func (s *Service) downloadURL(ctx context.Context, key string) (string, error) {
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.baseURL, s.bucketName, key), nil
	}

	presigned, err := s.minioClient.PresignedGetObject(ctx, s.bucketName, key, constants.PresignedURLExpiry, nil)
	if err != nil {
		return "", errors.StorageError(err)
	}
	return presigned.String(), nil
}

// Delete removes a stored object. Used when a message append fails after
// its attachments were already uploaded.
func (s *Service) Delete(ctx context.Context, ownerID, objectID uuid.UUID) error {
	key := objectKey(ownerID, objectID)
	err := s.minioClient.RemoveObject(ctx, s.bucketName, key, minio.RemoveObjectOptions{})
	if err != nil {
		return errors.StorageError(err)
	}
	return nil
}
