package core

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger replaces the global logger with a production logger at level.
func NewLogger(level string) {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		zap.L().Fatal("Invalid log level", zap.String("level", level), zap.Error(err))
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parsed)
	zap.ReplaceGlobals(zap.Must(config.Build()))
}
