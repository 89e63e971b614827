package fxapp

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"txledger/internal/config"
	"txledger/internal/database"
	"txledger/internal/handler/admin"
	"txledger/internal/middleware"
	"txledger/internal/scheduler"
)

// RunnerModule invokes migrations/seeding, route registration, the
// scheduler, and the HTTP server — grounded on the teacher's AppModule.
var RunnerModule = fx.Module("runner",
	fx.Invoke(
		RunMigrationsAndSeeding,
		RegisterRoutes,
		StartScheduler,
		StartServer,
	),
)

// RunMigrationsAndSeeding runs schema migration and idempotent startup
// seeding before anything else touches the database.
func RunMigrationsAndSeeding(db *gorm.DB, log *zap.Logger) error {
	log.Info("running migrations and seeding")
	if err := database.AutoMigrate(db, log); err != nil {
		return err
	}
	return database.SeedAll(db, log)
}

// RegisterRoutes attaches the admin surface behind bearer auth.
func RegisterRoutes(router *gin.Engine, adminH *admin.Handler, auth *middleware.AuthMiddleware, log *zap.Logger) {
	adminH.RegisterRoutes(router, auth)
	log.Info("admin routes registered")
}

// StartScheduler starts/stops the cron-driven run trigger alongside the
// fx.Lifecycle, matching the teacher's pattern of tying background workers
// to the same lifecycle as the HTTP server.
func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, log *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			s.Stop()
			return nil
		},
	})
}

// StartServer starts the HTTP server with a 30s graceful shutdown window,
// grounded on the teacher's StartServer.
func StartServer(lc fx.Lifecycle, router *gin.Engine, cfg *config.Config, log *zap.Logger) {
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("starting http server", zap.String("addr", server.Addr))
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("failed to start server", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("shutting down http server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Error("server forced to shutdown", zap.Error(err))
				return err
			}
			return nil
		},
	})
}

// Application assembles the full fx.App, grounded on the teacher's
// Application().
func Application() *fx.App {
	options := []fx.Option{CoreModule, EngineModule, RunnerModule}
	if config.IsProduction() {
		options = append(options, fx.NopLogger)
	}
	return fx.New(options...)
}
