package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	c "figures/internal/configuration"
	"figures/internal/models"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// GenericS3Storage implements IStorage for MinIO and S3-compatible providers
// (Storj, Hetzner, Backblaze B2, Garage, etc.).
type GenericS3Storage struct {
	BucketName       string
	InternalEndpoint string
	ExternalEndpoint string
	Region           string
	storage          *minio.Client
}

// NewMinioStorage connects to a MinIO deployment and creates the bucket if missing.
func NewMinioStorage(ctx context.Context, config *models.MinioStorageConfiguration) (*GenericS3Storage, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds: credentials.NewStaticV4(config.ClientID, config.ClientSecret, ""),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to minio: %w", err)
	}
	if !exists {
		if err = client.MakeBucket(ctx, config.BucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", config.BucketName, err)
		}
		zap.L().Info("Created report bucket", zap.String("bucket", config.BucketName))
	}

	return &GenericS3Storage{
		BucketName:       config.BucketName,
		InternalEndpoint: config.Endpoint,
		ExternalEndpoint: config.ExternalEndpoint,
		storage:          client,
	}, nil
}

// NewGenericS3Storage connects to an S3-compatible provider. The bucket must exist.
func NewGenericS3Storage(ctx context.Context, config *models.S3Configuration) (*GenericS3Storage, error) {
	minioOptions := &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKey, config.SecretKey, ""),
		Secure: config.UseTLS,
		Region: config.Region,
	}
	if config.ForcePathStyle {
		minioOptions.BucketLookup = minio.BucketLookupPath
	}

	client, err := minio.New(config.Endpoint, minioOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 storage client: %w", err)
	}

	exists, err := client.BucketExists(ctx, config.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to S3 storage: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("S3 bucket %s does not exist", config.BucketName)
	}

	return &GenericS3Storage{
		BucketName:       config.BucketName,
		InternalEndpoint: config.Endpoint,
		ExternalEndpoint: config.ExternalEndpoint,
		Region:           config.Region,
		storage:          client,
	}, nil
}

// replaceEndpoint replaces the internal endpoint with the external endpoint in a URL.
func (s *GenericS3Storage) replaceEndpoint(urlString string) string {
	if s.ExternalEndpoint == "" || s.InternalEndpoint == s.ExternalEndpoint {
		return urlString
	}

	presignedURL, err := url.Parse(urlString)
	if err != nil {
		zap.L().Warn("failed to parse presigned URL, using original", zap.Error(err))
		return urlString
	}

	externalURL, err := url.Parse(s.ExternalEndpoint)
	if err != nil {
		zap.L().Warn("failed to parse external endpoint, using original URL", zap.Error(err))
		return urlString
	}

	presignedURL.Scheme = externalURL.Scheme
	presignedURL.Host = externalURL.Host

	return presignedURL.String()
}

func (s *GenericS3Storage) GetBucketName() string {
	return s.BucketName
}

func (s *GenericS3Storage) PutObject(
	ctx context.Context,
	objectPath string,
	body io.Reader,
	size int64,
	contentType string,
) error {
	_, err := s.storage.PutObject(ctx, s.BucketName, objectPath, body, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	return err
}

func (s *GenericS3Storage) PresignedGetObject(ctx context.Context, objectPath string) (string, error) {
	presignedURL, err := s.storage.PresignedGetObject(
		ctx,
		s.BucketName,
		objectPath,
		c.ReportPresignExpirationInMinutes*time.Minute,
		nil,
	)
	if err != nil {
		return "", err
	}

	return s.replaceEndpoint(presignedURL.String()), nil
}

func (s *GenericS3Storage) StatObject(ctx context.Context, objectPath string) (ObjectInfo, error) {
	info, err := s.storage.StatObject(ctx, s.BucketName, objectPath, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, err
	}
	return ObjectInfo{Key: info.Key, Size: info.Size, LastModified: info.LastModified}, nil
}

func (s *GenericS3Storage) ListObjects(ctx context.Context, prefix string, maxKeys int32) ([]ObjectInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
		MaxKeys:   int(maxKeys),
	}

	var objects []ObjectInfo
	for object := range s.storage.ListObjects(ctx, s.BucketName, opts) {
		if object.Err != nil {
			return nil, object.Err
		}
		objects = append(objects, ObjectInfo{Key: object.Key, Size: object.Size, LastModified: object.LastModified})
		if maxKeys > 0 && len(objects) >= int(maxKeys) {
			break
		}
	}

	return objects, nil
}

func (s *GenericS3Storage) RemoveObject(ctx context.Context, objectPath string) error {
	return s.storage.RemoveObject(ctx, s.BucketName, objectPath, minio.RemoveObjectOptions{})
}
