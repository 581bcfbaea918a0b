package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	c "figures/internal/configuration"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCPStorage stores reports in Google Cloud Storage using application default credentials.
type GCPStorage struct {
	BucketName string
	client     *storage.Client
}

func NewGCPStorage(ctx context.Context, bucketName string) (*GCPStorage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud storage client: %w", err)
	}

	if _, err = client.Bucket(bucketName).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to access bucket %s: %w", bucketName, err)
	}

	return &GCPStorage{BucketName: bucketName, client: client}, nil
}

func (s *GCPStorage) GetBucketName() string {
	return s.BucketName
}

func (s *GCPStorage) PutObject(
	ctx context.Context,
	objectPath string,
	body io.Reader,
	_ int64,
	contentType string,
) error {
	w := s.client.Bucket(s.BucketName).Object(objectPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (s *GCPStorage) PresignedGetObject(_ context.Context, objectPath string) (string, error) {
	return s.client.Bucket(s.BucketName).SignedURL(objectPath, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(c.ReportPresignExpirationInMinutes * time.Minute),
	})
}

func (s *GCPStorage) StatObject(ctx context.Context, objectPath string) (ObjectInfo, error) {
	attrs, err := s.client.Bucket(s.BucketName).Object(objectPath).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated}, nil
}

func (s *GCPStorage) ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	it := s.client.Bucket(s.BucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, ObjectInfo{Key: attrs.Name, Size: attrs.Size, LastModified: attrs.Updated})
		if maxKeys > 0 && len(objects) >= int(maxKeys) {
			break
		}
	}
	return objects, nil
}

func (s *GCPStorage) RemoveObject(ctx context.Context, objectPath string) error {
	return s.client.Bucket(s.BucketName).Object(objectPath).Delete(ctx)
}
