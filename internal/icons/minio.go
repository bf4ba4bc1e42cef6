// Package icons stores uploaded link icons in S3-compatible object storage.
package icons

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrUnsupportedType is returned for uploads that are not recognized images.
var ErrUnsupportedType = errors.New("unsupported icon type")

var allowedTypes = map[string]string{
	"image/png":     ".png",
	"image/jpeg":    ".jpg",
	"image/gif":     ".gif",
	"image/webp":    ".webp",
	"image/svg+xml": ".svg",
	"image/x-icon":  ".ico",
}

// Store uploads icons to a MinIO bucket and hands back public URLs.
type Store struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// New connects to the object store and makes sure the icon bucket exists.
func New(ctx context.Context, endpoint, accessKey, secretKey, bucket, publicURL string, useSSL bool) (*Store, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connect object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// PutIcon stores an icon for a link and returns its public URL. Re-uploading
// for the same link overwrites the previous icon.
func (s *Store) PutIcon(ctx context.Context, userID, linkID int64, contentType string, body io.Reader, size int64) (string, error) {
	ext, ok := allowedTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}

	objectName := fmt.Sprintf("user-%d/link-%d%s", userID, linkID, ext)
	_, err := s.client.PutObject(ctx, s.bucket, objectName, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("put icon %s: %w", objectName, err)
	}

	return fmt.Sprintf("%s/%s/%s", s.publicURL, s.bucket, objectName), nil
}

// RemoveIcon deletes all stored icon variants for a link.
func (s *Store) RemoveIcon(ctx context.Context, userID, linkID int64) error {
	var lastErr error
	for _, ext := range allowedTypes {
		objectName := fmt.Sprintf("user-%d/link-%d%s", userID, linkID, ext)
		if err := s.client.RemoveObject(ctx, s.bucket, objectName, minio.RemoveObjectOptions{}); err != nil {
			lastErr = fmt.Errorf("remove icon %s: %w", objectName, err)
		}
	}
	return lastErr
}
