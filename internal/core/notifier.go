package core

import (
	"figures/internal/models"
	"figures/internal/notifier"

	"go.uber.org/zap"
)

// NewNotifier returns nil when no notifier is configured.
func NewNotifier(config *models.NotifierConfiguration) notifier.INotifier {
	if config == nil {
		return nil
	}

	switch config.Type {
	case "smtp":
		return notifier.NewSMTPNotifier(*config.SMTP)
	case "filesystem":
		fs, err := notifier.NewFilesystemNotifier(*config.Filesystem)
		if err != nil {
			zap.L().Fatal("Failed to initialize filesystem notifier", zap.Error(err))
		}
		return fs
	default:
		return nil
	}
}
