// Package fxapp is the composition root, grounded on the teacher's
// internal/fx/core.go + app.go: CoreModule provides ambient infrastructure
// (config, logger, database, router, middleware), EngineModule wires the
// ingestion engine's own components, and RunnerModule (app.go) runs the
// scheduler and the HTTP server.
package fxapp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"txledger/internal/adapter/aiport"
	"txledger/internal/adapter/clock"
	"txledger/internal/adapter/fxport"
	"txledger/internal/adapter/sourcestore"
	"txledger/internal/adapter/ziplog"
	"txledger/internal/config"
	"txledger/internal/handler/admin"
	"txledger/internal/logger"
	"txledger/internal/middleware"
	"txledger/internal/module/ingest/aicategorizer"
	"txledger/internal/module/ingest/category"
	"txledger/internal/module/ingest/confidence"
	"txledger/internal/module/ingest/currency"
	"txledger/internal/module/ingest/dedup"
	"txledger/internal/module/ingest/history"
	"txledger/internal/module/ingest/historylookup"
	"txledger/internal/module/ingest/normalize"
	"txledger/internal/module/ingest/ports"
	"txledger/internal/module/ingest/retry"
	"txledger/internal/module/ingest/run"
	"txledger/internal/module/ingest/source"
	"txledger/internal/module/ingest/status"
	"txledger/internal/module/ingest/transaction"
	"txledger/internal/scheduler"
	"txledger/internal/shared"
	"txledger/internal/ws"
)

// CoreModule provides the ambient stack: config, logging, database, redis,
// the gin router and its middleware chain.
var CoreModule = fx.Module("core",
	fx.Provide(
		config.Load,
		NewLogger,
		NewDatabase,
		config.NewRedisClient,
		NewGinRouter,
		NewAuthMiddleware,
	),
)

// EngineModule provides the ingestion engine's own components: C1-C14's
// concrete wiring plus the adapters, scheduler, and admin surface.
var EngineModule = fx.Module("engine",
	fx.Provide(
		NewClock,
		fx.Annotate(NewSourceStore, fx.As(new(ports.SourceStore))),
		fx.Annotate(NewResultStore, fx.As(new(ports.ResultStore))),
		fx.Annotate(NewRunStore, fx.As(new(ports.RunStore))),
		fx.Annotate(NewCategoriesStore, fx.As(new(ports.CategoriesStore))),
		fx.Annotate(NewExchangeRatePort, fx.As(new(ports.ExchangeRatePort))),
		fx.Annotate(ziplog.New, fx.As(new(ports.Logger))),
		NewAICategorizationPort,

		NewSourceRegistry,
		NewConfidenceWeights,
		NewRetryPolicy,
		NewHistoryParams,
		NewRunConfig,
		NewAICategorizerParams,

		dedup.NewDetector,
		NewCurrencyConverter,
		status.NewManager,
		normalize.NewPipeline,
		NewCategoryResolver,
		NewCandidatePoolCache,
		NewAICategorizer,
		run.NewCoordinator,
		historylookup.NewBuilder,
		NewScheduler,
		ws.NewHub,
		admin.NewHandler,
	),
)

// NewLogger builds the zap logger used throughout the engine.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log.Info("logger initialized", zap.String("level", cfg.Logging.Level), zap.String("format", cfg.Logging.Format))
	return log, nil
}

// NewDatabase opens the Postgres connection, grounded on the teacher's
// NewDatabase (DSN-or-components, UTC NowFunc, pool tuning).
func NewDatabase(cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	dsn := cfg.Database.URL
	if dsn == "" {
		dsn = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Pass, cfg.Database.Name,
		)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		log.Error("failed to connect to database", zap.Error(err))
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("connected to database", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
	return db, nil
}

// NewGinRouter builds the router and middleware chain, grounded on the
// teacher's NewGinRouter (logger -> recovery -> error handler -> rate limit
// ordering, health endpoint, swagger UI). No CORS middleware is installed.
func NewGinRouter(cfg *config.Config, log *zap.Logger) *gin.Engine {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.RecoveryMiddleware())
	r.Use(middleware.ErrorHandlerMiddleware())
	r.Use(middleware.GlobalRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))

	r.GET("/health", func(c *gin.Context) {
		shared.RespondWithSuccess(c, http.StatusOK, "service is healthy", gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	url := ginSwagger.URL("/openapi/swagger.yaml")
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler, url,
		ginSwagger.PersistAuthorization(true),
		ginSwagger.DocExpansion("list"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	)
	r.GET("/swagger/*any", swaggerHandler)
	r.GET("/swagger-ui/*any", swaggerHandler)

	return r
}

// NewAuthMiddleware wraps the teacher's bare-string constructor since fx
// cannot inject a primitive directly; the secret comes from config instead.
func NewAuthMiddleware(cfg *config.Config) *middleware.AuthMiddleware {
	return middleware.NewAuthMiddleware(cfg.Auth.JWTSecret)
}

func NewClock() ports.Clock { return clock.SystemClock{} }

func NewSourceStore(db *gorm.DB) *sourcestore.GormSourceStore { return sourcestore.NewGormSourceStore(db) }
func NewResultStore(db *gorm.DB) *transaction.GormResultStore { return transaction.NewGormResultStore(db) }
func NewRunStore(db *gorm.DB) *transaction.GormRunStore       { return transaction.NewGormRunStore(db) }
func NewCategoriesStore(db *gorm.DB) *category.GormRepository { return category.NewGormRepository(db) }

func NewExchangeRatePort(cfg *config.Config) *fxport.Client {
	fxCfg := fxport.DefaultConfig()
	if cfg.ExchangeFX.BaseURL != "" {
		fxCfg.BaseURL = cfg.ExchangeFX.BaseURL
	}
	return fxport.NewClient(fxCfg)
}

func NewAICategorizationPort(cfg *config.Config) (ports.AICategorizationPort, error) {
	return aiport.NewPort(context.Background(), aiport.Config{
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	})
}

func NewCurrencyConverter(port ports.ExchangeRatePort, cfg *config.Config) *currency.Converter {
	target := cfg.ExchangeFX.TargetCurrency
	if target == "" {
		target = "GBP"
	}
	return currency.NewConverter(port, target)
}

func NewSourceRegistry() *source.Registry {
	return source.NewRegistry(
		source.NewMonzoAdapter(),
		source.NewRevolutAdapter(),
		source.NewYonderAdapter(),
		source.NewStarlingAdapter(),
	)
}

func NewConfidenceWeights(cfg *config.Config) confidence.Weights {
	return confidence.Weights{
		AIWeight:             cfg.Run.WeightAI,
		HistoricalWeight:     cfg.Run.WeightHistory,
		ConsensusBonus:       cfg.Run.ConsensusBonus,
		ConflictPenalty:      cfg.Run.ConflictPenalty,
		MinHistoricalMatches: cfg.Run.MinHistoricalMatches,
		ManualOverrideBoost:  cfg.Run.ManualOverrideBoost,
	}
}

func NewRetryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		MaxAttempts: cfg.Run.MaxRetryAttempts,
		Base:        time.Duration(cfg.Run.BaseBackoffSeconds) * time.Second,
		Cap:         32 * time.Second,
	}
}

func NewHistoryParams(cfg *config.Config) history.Params {
	return history.Params{
		LookbackDays:         cfg.Run.HistoryLookbackDays,
		FuzzyThreshold:       cfg.Run.FuzzyMatchThreshold,
		AmountTolerance:      cfg.Run.AmountTolerancePct,
		ManualOverrideWeight: cfg.Run.ManualOverrideWeight,
	}
}

func NewRunConfig(cfg *config.Config) run.Config {
	return run.Config{
		NormalizationWorkers:  cfg.Concurrency.NormalizationParallelism,
		CategorizationWorkers: cfg.Concurrency.CategorizationParallelism,
	}
}

func NewAICategorizerParams(cfg *config.Config) aicategorizer.Params {
	return aicategorizer.Params{BatchSize: cfg.AI.BatchSize, ContextSize: cfg.AI.ContextSize}
}

// NewCategoryResolver snapshots the active category set at startup, matching
// C7's "resolver over the set of active categories loaded for a run" — a
// category added after startup is picked up on the next process restart,
// the same granularity the teacher's own fx-provided singletons offer for
// any in-memory snapshot.
func NewCategoryResolver(store ports.CategoriesStore, log *zap.Logger) *category.Resolver {
	categories, err := store.List(context.Background())
	if err != nil {
		log.Warn("failed to load categories for resolver, starting with an empty set", zap.Error(err))
	}
	return category.NewResolver(categories)
}

// candidatePoolCacheTTL bounds how long a run's candidate pool snapshot is
// reused; long enough to cover a single categorization run, short enough
// that the next scheduled run sees newly-categorised transactions.
const candidatePoolCacheTTL = 30 * time.Minute

func NewCandidatePoolCache(client *redis.Client) *history.CandidatePoolCache {
	return history.NewCandidatePoolCache(client, candidatePoolCacheTTL)
}

func NewAICategorizer(
	port ports.AICategorizationPort,
	resolver *category.Resolver,
	statusMgr *status.Manager,
	weights confidence.Weights,
	retryPolicy retry.Policy,
	params aicategorizer.Params,
) *aicategorizer.Categorizer {
	return aicategorizer.New(port, resolver, statusMgr, weights, retryPolicy, params)
}

func NewScheduler(coordinator *run.Coordinator, historyBuilder *historylookup.Builder, hub *ws.Hub, log *zap.Logger) *scheduler.Scheduler {
	return scheduler.New(coordinator, historyBuilder, hub, log, scheduler.DefaultConfig())
}
