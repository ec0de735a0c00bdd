// Package storage provides the MinIO-backed object store for call recordings
// attached to interactions.
package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"estate_crm_backend/platform/config"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is the expiration time for presigned download URLs.
const PresignedURLTTL = 15 * time.Minute

// PresignedURL is a temporary, signed link to a stored object.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RecordingStore stores and serves call recordings in a MinIO bucket.
type RecordingStore struct {
	client *minio.Client
	bucket string
}

// NewRecordingStore creates a MinIO-backed recording store.
func NewRecordingStore(cfg config.StorageConfig) (*RecordingStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &RecordingStore{
		client: client,
		bucket: cfg.GetMinioBucketCallRecordings(),
	}, nil
}

// EnsureBucket creates the recordings bucket if it doesn't exist.
func (s *RecordingStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload stores a recording under tenant/interaction-scoped key and returns the key.
func (s *RecordingStore) Upload(ctx context.Context, tenantID, interactionID uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (string, error) {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".bin"
	}
	fileKey := strings.Join([]string{
		tenantID.String(),
		interactionID.String() + "_" + uuid.New().String()[:8] + ext,
	}, "/")

	_, err := s.client.PutObject(ctx, s.bucket, fileKey, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload recording %s: %w", fileKey, err)
	}
	return fileKey, nil
}

// DownloadURL creates a presigned URL for fetching a stored recording.
func (s *RecordingStore) DownloadURL(ctx context.Context, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)

	presignedURL, err := s.client.PresignedGetObject(ctx, s.bucket, fileKey, PresignedURLTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}

	return &PresignedURL{
		URL:       presignedURL.String(),
		FileKey:   fileKey,
		ExpiresAt: expiresAt,
	}, nil
}

// Delete removes a recording from storage.
func (s *RecordingStore) Delete(ctx context.Context, fileKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, fileKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete recording %s: %w", fileKey, err)
	}
	return nil
}
