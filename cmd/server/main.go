package main

import (
	"context"
	"time"

	"github.com/complytrack/complytrack/internal/api"
	v1 "github.com/complytrack/complytrack/internal/api/v1"
	"github.com/complytrack/complytrack/internal/auditlog"
	"github.com/complytrack/complytrack/internal/cache"
	"github.com/complytrack/complytrack/internal/config"
	"github.com/complytrack/complytrack/internal/httpclient"
	"github.com/complytrack/complytrack/internal/lock"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/postgres"
	"github.com/complytrack/complytrack/internal/pubsub/memory"
	"github.com/complytrack/complytrack/internal/repository"
	"github.com/complytrack/complytrack/internal/security"
	"github.com/complytrack/complytrack/internal/sentry"
	"github.com/complytrack/complytrack/internal/service"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/complytrack/complytrack/internal/validator"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	var opts []fx.Option

	// Core dependencies
	opts = append(opts,
		fx.Provide(
			validator.NewValidator,
			config.NewConfig,
			logger.NewLogger,

			cache.NewInMemoryCache,
			lock.NewKeyedMutex,

			postgres.NewDB,
			httpclient.NewDefaultClient,
			security.NewEncryptionService,

			// Audit event pipeline
			memory.NewPubSub,
			auditlog.NewPublisher,
			auditlog.NewHandler,

			// Repositories
			repository.NewConnectionRepository,
			repository.NewSyncedInvoiceRepository,
			repository.NewSettingsRepository,
		),
		sentry.Module(),
	)

	// Service layer
	opts = append(opts,
		fx.Provide(
			service.NewServiceParams,
			service.NewSettingsService,
			service.NewIntegrationService,
		),
	)

	// API
	opts = append(opts,
		fx.Provide(
			provideHandlers,
			provideRouter,
		),
		fx.Invoke(
			startAuditConsumer,
			startServer,
		),
	)

	app := fx.New(opts...)
	app.Run()
}

func provideHandlers(
	logger *logger.Logger,
	integrationService service.IntegrationService,
	settingsService service.SettingsService,
) api.Handlers {
	return api.Handlers{
		Health:      v1.NewHealthHandler(logger),
		Integration: v1.NewIntegrationHandler(integrationService, settingsService, logger),
	}
}

func provideRouter(handlers api.Handlers, cfg *config.Configuration) *gin.Engine {
	if cfg.Logging.Level != types.LogLevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	return api.NewRouter(handlers, cfg)
}

func startAuditConsumer(lc fx.Lifecycle, handler *auditlog.Handler, log *logger.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting audit event consumer...")
			return handler.Start(context.Background())
		},
		OnStop: func(ctx context.Context) error {
			return nil
		},
	})
}

func startServer(
	lc fx.Lifecycle,
	cfg *config.Configuration,
	r *gin.Engine,
	db *postgres.DB,
	log *logger.Logger,
) {
	mode := cfg.Deployment.Mode
	if mode == "" {
		mode = types.ModeLocal
	}

	switch mode {
	case types.ModeLocal, types.ModeAPI:
		startAPIServer(lc, r, cfg, db, log)
	default:
		log.Fatalf("Unknown deployment mode: %s", mode)
	}
}

func startAPIServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("Starting API server...", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			db.Close()
			return nil
		},
	})
}
