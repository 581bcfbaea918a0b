package core

import (
	"context"

	"figures/internal/configuration"
	"figures/internal/models"
	"figures/internal/storage"

	"go.uber.org/zap"
)

// NewStorage returns nil when report export storage is not configured.
func NewStorage(ctx context.Context, config *models.StorageConfiguration) storage.IStorage {
	if config == nil {
		return nil
	}

	var store storage.IStorage
	var err error

	switch config.Type {
	case configuration.ProviderMinio:
		store, err = storage.NewMinioStorage(ctx, config.Minio)
	case configuration.ProviderGCP:
		store, err = storage.NewGCPStorage(ctx, config.CloudStorage.BucketName)
	case configuration.ProviderAWS:
		store, err = storage.NewAWSStorage(ctx, config.AWS.BucketName)
	case configuration.ProviderS3:
		store, err = storage.NewGenericS3Storage(ctx, config.S3)
	default:
		return nil
	}

	if err != nil {
		zap.L().Fatal("Failed to initialize storage",
			zap.String("provider", config.Type),
			zap.Error(err))
	}

	zap.L().Info("Initialized report storage",
		zap.String("provider", config.Type),
		zap.String("bucket", store.GetBucketName()))
	return store
}
