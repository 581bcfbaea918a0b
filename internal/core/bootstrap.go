package core

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"figures/internal/activity"
	c "figures/internal/cache"
	"figures/internal/configuration"
	h "figures/internal/helpers"
	"figures/internal/messaging"
	"figures/internal/metrics"
	m "figures/internal/middlewares"
	"figures/internal/models"
	"figures/internal/notifier"
	"figures/internal/reports"
	"figures/internal/serializers"
	"figures/internal/services"
	"figures/internal/sites"
	"figures/internal/storage"
	"figures/internal/tasks"
	"figures/internal/workers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const APIPrefix = "/figures/api"

func CreateAdminUser(db *gorm.DB, config models.Configuration) {
	hash, err := h.CreateHash(config.App.AdminPassword)
	if err != nil {
		zap.L().Fatal("Failed to hash admin password", zap.Error(err))
	}

	admin := models.Operator{
		Email:          config.App.AdminEmail,
		HashedPassword: hash,
		Role:           models.RoleAdmin,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"hashed_password", "role"}),
	}).Create(&admin).Error
	if err != nil {
		zap.L().Fatal("Failed to create admin operator", zap.String("email", admin.Email), zap.Error(err))
	}
}

func StartWorkers(
	profile models.Profile,
	eventsManager *EventsManager,
	db *gorm.DB,
	store storage.IStorage,
	activityLogger activity.IActivityLogger,
	notify notifier.INotifier,
	config models.Configuration,
	cache c.ICache,
	appIdentity string,
) {
	scope := sites.NewScope(db, config.App)
	metricsTasks := tasks.New(db, scope)
	tracker := &workers.RunTracker{DB: db, ActivityLogger: activityLogger}

	var exporter *workers.ReportExportWorker
	if store != nil && config.Pipeline.ExportReports {
		exporter = &workers.ReportExportWorker{
			Sites:          scope,
			Exporter:       reports.New(db, store),
			Tracker:        tracker,
			ActivityLogger: activityLogger,
			Notifier:       notify,
			NotifyTo:       config.Pipeline.NotifyOnFailure,
			RunInterval:    workers.ReportExportInterval,
		}
	}

	startWorker(profile.Workers.DailyScheduler, workers.DailySchedulerName, cache, appIdentity, func(ctx context.Context) {
		worker := &workers.DailySchedulerWorker{
			Tasks:           metricsTasks,
			Tracker:         tracker,
			Exporter:        exporter,
			Notifier:        notify,
			NotifyOnFailure: config.Pipeline.NotifyOnFailure,
			ScheduleAt:      config.Pipeline.ScheduleAt,
			ForceUpdate:     config.Pipeline.ForceUpdate,
		}
		worker.Start(ctx)
	})

	if eventsManager != nil {
		startWorker(profile.Workers.PopulateConsumer, workers.PopulateConsumerName, cache, appIdentity, func(ctx context.Context) {
			consumer := &workers.PopulateConsumer{
				Subscriber: eventsManager.GetSubscriber(configuration.EventsPopulateMetrics),
				Tasks:      metricsTasks,
				Tracker:    tracker,
			}
			consumer.Start(ctx)
		})
	}

	if exporter != nil {
		startWorker(profile.Workers.ReportExport, workers.ReportExportName, cache, appIdentity, exporter.Start)
	}
}

func startWorker(
	mode models.WorkerMode,
	workerName string,
	cache c.ICache,
	appIdentity string,
	runWorker func(context.Context),
) {
	if mode == models.WorkerModeDisabled {
		return
	}

	if mode == models.WorkerModeSingleton && cache == nil {
		zap.L().Warn("No cache configured, running singleton worker locally", zap.String("worker", workerName))
		mode = models.WorkerModeAll
	}

	if mode == models.WorkerModeSingleton {
		go startSingletonWorker(cache, appIdentity, workerName, runWorker)
	} else {
		go runWorker(context.Background())
		zap.L().Info("Started worker", zap.String("worker", workerName))
	}
}

func startSingletonWorker(cache c.ICache, instanceID string, workerName string, runWorker func(context.Context)) {
	lockKey := fmt.Sprintf(configuration.CacheWorkerLockKey, workerName)
	ticker := time.NewTicker(time.Duration(configuration.CacheWorkerLockRefresh) * time.Second)
	defer ticker.Stop()

	var workerStarted bool
	var cancelWorker context.CancelFunc

	for {
		if !workerStarted {
			acquired, err := cache.TryAcquireLock(lockKey, instanceID, configuration.CacheWorkerLockTTL)
			if err != nil {
				zap.L().Error("Failed to acquire worker lock", zap.String("worker", workerName), zap.Error(err))
			}

			if acquired {
				zap.L().Info("Acquired worker lock, starting worker", zap.String("worker", workerName))
				workerStarted = true
				var ctx context.Context
				ctx, cancelWorker = context.WithCancel(context.Background())
				go runWorker(ctx)
			}
		} else {
			refreshed, err := cache.RefreshLock(lockKey, instanceID, configuration.CacheWorkerLockTTL)
			if err != nil || !refreshed {
				zap.L().Warn("Lost worker lock, stopping worker", zap.String("worker", workerName))
				workerStarted = false
				if cancelWorker != nil {
					cancelWorker()
					cancelWorker = nil
				}
			}
		}

		<-ticker.C
	}
}

// NewRouter builds the Figures API and the dashboard shell.
func NewRouter(
	config models.Configuration,
	db *gorm.DB,
	cache c.ICache,
	store storage.IStorage,
	activityLogger activity.IActivityLogger,
	publisher messaging.IPublisher,
) chi.Router {
	m.InitValidator()

	scope := sites.NewScope(db, config.App)
	siteMetrics := metrics.New(db, scope)
	serializer := serializers.New(db, siteMetrics, config.App.ProfileImageURL)
	defaultSiteID := config.App.DefaultSiteID
	providers := configuration.LoadProviders(context.Background(), config.App.APIURL, config.Auth)

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(m.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.App.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route(APIPrefix, func(apiRouter chi.Router) {
		apiRouter.Use(middleware.StripSlashes)
		apiRouter.Use(m.Authenticate(config.App.JWTSecret))
		apiRouter.Use(m.AudienceValidate)
		apiRouter.Use(m.CurrentSite(scope))
		apiRouter.Use(m.RateLimit(cache, config.App.TrustedProxies, config.App.RateLimitPerMinute))

		apiRouter.Mount("/auth", services.AuthService{
			DB:             db,
			JWTSecret:      config.App.JWTSecret,
			Expiry:         config.App.AccessTokenExpiry,
			Providers:      providers,
			ActivityLogger: activityLogger,
		}.Routes())

		courseService := services.CourseService{DB: db, Sites: scope, Serializer: serializer}
		userService := services.UserService{DB: db, Sites: scope, Serializer: serializer}
		metricsService := services.MetricsService{DB: db, Sites: scope, Metrics: siteMetrics, Cache: cache}
		pipelineService := services.PipelineService{
			DB:             db,
			Sites:          scope,
			Publisher:      publisher,
			ActivityLogger: activityLogger,
		}

		apiRouter.Group(func(staff chi.Router) {
			staff.Use(m.AuthorizeRole(models.RoleStaff))
			staff.Mount("/courses-index", courseService.IndexRoutes())
			staff.Mount("/course-enrollments", courseService.EnrollmentRoutes())
			staff.Mount("/course-daily-metrics", metricsService.CourseDailyMetricsRoutes())
			staff.Mount("/courses", courseService.Routes())
			staff.Mount("/reports", services.ReportService{Exporter: reports.New(db, store)}.Routes())
		})

		apiRouter.Group(func(admin chi.Router) {
			admin.Use(m.AuthorizeRole(models.RoleAdmin))
			admin.Mount("/user-index", userService.IndexRoutes())
			admin.Mount("/users", userService.Routes())
			admin.Mount("/site-daily-metrics", metricsService.SiteDailyMetricsRoutes())
			admin.Mount("/general-site-metrics", metricsService.GeneralSiteMetricsRoutes())
			admin.Mount("/sites", services.SiteService{DB: db, Sites: scope}.Routes())
			admin.Mount("/pipeline-errors", pipelineService.ErrorRoutes())
			admin.Mount("/pipeline-runs", pipelineService.RunRoutes())
			if publisher != nil {
				admin.Mount("/populate", pipelineService.PopulateRoutes())
			}
			admin.Mount("/activity", services.ActivityService{
				ActivityLogger: activityLogger,
				DefaultSiteID:  defaultSiteID,
			}.Routes())
			admin.Mount("/admin", services.AdminService{DB: db, DefaultSiteID: defaultSiteID}.Routes())
		})
	})

	if config.App.StaticFiles.Enabled {
		staticFileService, err := services.NewStaticFileService(config.App.StaticFiles.Directory)
		if err != nil {
			zap.L().Fatal("failed to initialize static file service", zap.Error(err))
		}
		r.Mount("/figures", staticFileService.Routes())
		zap.L().Info("static file service enabled", zap.String("directory", config.App.StaticFiles.Directory))
	} else {
		zap.L().Info("static file service disabled")
	}

	return r
}

func StartHTTPServer(
	config models.Configuration,
	db *gorm.DB,
	cache c.ICache,
	store storage.IStorage,
	activityLogger activity.IActivityLogger,
	publisher messaging.IPublisher,
) {
	r := NewRouter(config, db, cache, store, activityLogger, publisher)

	zap.L().Info("HTTP server starting", zap.Int("port", config.App.Port))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.App.Port),
		Handler:      otelhttp.NewHandler(r, configuration.AppName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	err := server.ListenAndServe()
	if err != nil {
		zap.L().Error("Failed to start the app", zap.Error(err))
	}
}
