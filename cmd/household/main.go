package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"household/internal/backend"
	"household/internal/cache"
	"household/internal/cli"
	"household/internal/config"
	"household/internal/core"
	apphttp "household/internal/http"
	"household/internal/log"
	"household/internal/metrics"
	"household/internal/services"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg, cfgErr := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	if cfgErr != nil {
		logger.Error("Configuration validation failed", log.FieldError, cfgErr)
		os.Exit(1)
	}

	if err := run(logger, cfg); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be, err := cli.InitBackend(ctx, logger, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := be.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	m := metrics.New()
	validator := core.NewValidator()

	familyCache := cache.NewLRUCache[core.FamilyProfile](cache.Config{
		Name:     "family",
		MaxSize:  500,
		TTL:      10 * time.Minute,
		Observer: m,
	})
	caches := cache.NewManager()
	caches.Register(familyCache)
	caches.StartCleanup(5 * time.Minute)
	defer caches.Stop()

	families := services.NewFamilyService(be.Repository, validator, familyCache, logger)
	importer := services.NewImporter(be.Opener, be.Repository, validator,
		importerOptions(be, m, logger, families)...)

	// Assigning a nil EventPublisher would hand the service a typed nil
	var txPublisher services.TransactionPublisher
	if be.Publisher != nil {
		txPublisher = be.Publisher
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Families:           families,
		Transactions:       services.NewTransactionService(be.Repository, validator, txPublisher, logger),
		Analysis:           services.NewAnalysisService(be.Repository, m, logger),
		Importer:           importer,
		Logger:             logger,
		Metrics:            m,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		MaxUploadBytes:     cfg.MaxUploadBytes(),
		Readiness:          be.Repository.Ping,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting household server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"import_source", cfg.ImportSource)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on :%s: %w", cfg.Port, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func importerOptions(be *backend.BackendResult, m *metrics.Metrics, logger *log.Logger, families *services.FamilyService) []services.ImporterOption {
	opts := []services.ImporterOption{
		services.WithImportMetrics(m),
		services.WithImportLogger(logger),
		services.WithCommitHook(families.InvalidateCache),
	}
	if be.Publisher != nil {
		opts = append(opts, services.WithImportPublisher(be.Publisher))
	}
	return opts
}
