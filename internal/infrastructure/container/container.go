// Package container provides dependency injection using Uber FX
package container

import (
	"context"
	"fmt"
	"os"

	appcart "github.com/alchemorsel/fooddata/internal/application/cart"
	"github.com/alchemorsel/fooddata/internal/application/fusion"
	"github.com/alchemorsel/fooddata/internal/application/jobs"
	"github.com/alchemorsel/fooddata/internal/infrastructure/config"
	"github.com/alchemorsel/fooddata/internal/infrastructure/http/api"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers"
	"github.com/alchemorsel/fooddata/internal/infrastructure/providers/cache"
	"github.com/alchemorsel/fooddata/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides all dependency injection modules
var Module = fx.Options(
	// Infrastructure modules
	ConfigModule,
	LoggerModule,
	CacheModule,

	// Provider modules
	ProviderModule,

	// Service modules
	ServiceModule,

	// HTTP modules
	HTTPModule,

	// Lifecycle hooks
	LifecycleModule,
)

// ConfigModule provides configuration
var ConfigModule = fx.Provide(
	func() (*config.Config, error) {
		return config.Load(os.Getenv("FOODDATA_CONFIG"))
	},
)

// LoggerModule provides logging
var LoggerModule = fx.Provide(
	func(cfg *config.Config) (*zap.Logger, error) {
		return logger.New(logger.Config{
			Level:       cfg.App.LogLevel,
			Format:      cfg.App.LogFormat,
			Development: cfg.App.Debug,
		})
	},
	// Provide sugared logger
	func(log *zap.Logger) *zap.SugaredLogger {
		return log.Sugar()
	},
)

// CacheModule provides the upstream response cache backend
var CacheModule = fx.Provide(
	func(cfg *config.Config, log *zap.Logger) (cache.ResponseCache, error) {
		switch cfg.Cache.Backend {
		case "redis":
			client := redis.NewClient(&redis.Options{
				Addr:         cfg.Redis.Addr(),
				Password:     cfg.Redis.Password,
				DB:           cfg.Redis.Database,
				DialTimeout:  cfg.Redis.DialTimeout,
				ReadTimeout:  cfg.Redis.ReadTimeout,
				WriteTimeout: cfg.Redis.WriteTimeout,
				PoolSize:     cfg.Redis.PoolSize,
			})
			log.Info("Using Redis response cache", zap.String("addr", cfg.Redis.Addr()))
			return cache.NewRedis(client, log), nil
		case "memory":
			log.Info("Using in-memory response cache")
			return cache.NewMemory(), nil
		default:
			return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
		}
	},
)

// ProviderModule provides the external provider registry
var ProviderModule = fx.Provide(
	providers.NewRegistry,
)

// ServiceModule provides application services
var ServiceModule = fx.Provide(
	// Fusion engine
	func(cfg *config.Config, registry *providers.Registry, log *zap.Logger) *fusion.Engine {
		return fusion.NewEngine(
			registry.NutritionSources(),
			registry.Catalog(),
			registry.Recipes(),
			cache.NewMemory(),
			fusion.Options{
				ProviderTimeout: cfg.Fusion.ProviderTimeout,
				FusedTTL:        cfg.Fusion.FusedTTL,
			},
			log,
		)
	},

	// Cart service
	func(cfg *config.Config, engine *fusion.Engine, log *zap.Logger) *appcart.Service {
		return appcart.NewService(engine, cfg.Cart, log)
	},

	// Extraction worker; no primary extractor is wired yet, so the
	// keyword heuristic handles every job.
	func(cfg *config.Config, log *zap.Logger) *jobs.Worker {
		return jobs.NewWorker(jobs.NewQueue(cfg.Jobs.QueueSize), nil, log)
	},
)

// HTTPModule provides the HTTP server and handlers
var HTTPModule = fx.Provide(
	api.NewServer,
)

// LifecycleModule provides lifecycle hooks
var LifecycleModule = fx.Invoke(
	RegisterLifecycleHooks,
)

// RegisterLifecycleHooks registers application lifecycle hooks
func RegisterLifecycleHooks(
	lc fx.Lifecycle,
	cfg *config.Config,
	log *zap.Logger,
	registry *providers.Registry,
	worker *jobs.Worker,
	server *api.Server,
) {
	workerCtx, workerCancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting food-data aggregation engine",
				zap.String("version", cfg.App.Version),
				zap.String("environment", cfg.App.Environment),
				zap.Strings("configured_providers", registry.ConfiguredProviders()),
			)

			// Start extraction worker
			go worker.Run(workerCtx)

			// Start HTTP server
			go func() {
				if err := server.Start(); err != nil {
					log.Fatal("Failed to start HTTP server", zap.Error(err))
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down food-data aggregation engine")

			// Shutdown HTTP server
			if err := server.Shutdown(ctx); err != nil {
				log.Error("Failed to shutdown HTTP server", zap.Error(err))
			}

			// Stop the extraction worker
			workerCancel()
			worker.Stop()

			// Flush logs
			_ = log.Sync()

			return nil
		},
	})
}
