package main

import (
	"context"

	"figures/internal/configuration"
	"figures/internal/core"
	"figures/internal/database"
	"figures/internal/messaging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func main() {
	zap.ReplaceGlobals(zap.Must(zap.NewProduction()))
	ctx := context.Background()

	config := configuration.Read()
	core.NewLogger(config.App.LogLevel)

	profile := configuration.GetProfile(config.App.Profile)

	db := database.InitDB(config.Database)
	cache := core.NewCache(config.Cache)
	store := core.NewStorage(ctx, config.Storage)
	notify := core.NewNotifier(config.Notifier)
	activityLogger := core.NewActivityLogger(config.Activity)

	shutdownTracing := core.StartTracing(ctx, config.App.Telemetry)
	defer func() {
		if err := shutdownTracing(ctx); err != nil {
			zap.L().Error("Failed to flush traces", zap.Error(err))
		}
	}()

	var eventsManager *core.EventsManager
	var publisher messaging.IPublisher
	if profile.NeedsEvents() {
		eventsManager = core.NewEventsManager(ctx, config.Events)
		defer eventsManager.Close()
		publisher = eventsManager.GetPublisher(configuration.EventsPopulateMetrics)
	}

	if profile.HTTPServer {
		core.CreateAdminUser(db, config)
	}

	appIdentity := uuid.New().String()
	core.StartProfiling(config.App.Profiling, appIdentity)

	if cache != nil {
		go cache.StartIdentityTicker(appIdentity)
		zap.L().Info("Cache identity ticker started")
	}

	if profile.Workers.AnyEnabled() {
		core.StartWorkers(
			profile,
			eventsManager,
			db,
			store,
			activityLogger,
			notify,
			config,
			cache,
			appIdentity,
		)
	}

	if profile.HTTPServer {
		core.StartHTTPServer(config, db, cache, store, activityLogger, publisher)
	} else if profile.Workers.AnyEnabled() {
		zap.L().Info("Running in worker-only mode")
		select {} // Block forever
	}
}
