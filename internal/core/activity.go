package core

import (
	"figures/internal/activity"
	"figures/internal/models"

	"go.uber.org/zap"
)

func NewActivityLogger(config models.ActivityConfiguration) activity.IActivityLogger {
	switch config.Type {
	case "loki":
		return activity.NewLokiClient(*config.Loki)
	case "filesystem":
		client, err := activity.NewFilesystemClient(*config.Filesystem)
		if err != nil {
			zap.L().Fatal("Failed to open activity index",
				zap.String("directory", config.Filesystem.Directory),
				zap.Error(err))
		}
		return client
	default:
		zap.L().Fatal("Unknown activity logger", zap.String("type", config.Type))
		return nil
	}
}
