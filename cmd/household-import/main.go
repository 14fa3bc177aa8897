// Command household-import replaces the stored families and transactions
// with the content of a workbook, then exits.
//
// Usage:
//
//	household-import [-ref path-or-spreadsheet-id]
//
// Without -ref the configured IMPORT_FILE (or GOOGLE_SPREADSHEET_ID when
// IMPORT_SOURCE=sheets) is used.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"household/internal/cli"
	"household/internal/config"
	"household/internal/core"
	"household/internal/log"
	"household/internal/metrics"
	"household/internal/services"
)

func main() {
	ref := flag.String("ref", "", "workbook path, or spreadsheet ID when IMPORT_SOURCE=sheets")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, cfgErr := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg)
	if cfgErr != nil {
		logger.Error("Configuration validation failed", log.FieldError, cfgErr)
		os.Exit(1)
	}

	if *ref == "" {
		*ref = cfg.ImportRef()
	}
	if err := run(logger, cfg, *ref); err != nil {
		logger.Error("Import failed", log.FieldSource, *ref, log.FieldError, err)
		os.Exit(1)
	}
}

func run(logger *log.Logger, cfg *config.Config, ref string) error {
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

	opts := []services.ImporterOption{
		services.WithImportLogger(logger),
		services.WithImportMetrics(metrics.New()),
	}
	if be.Publisher != nil {
		opts = append(opts, services.WithImportPublisher(be.Publisher))
	}
	importer := services.NewImporter(be.Opener, be.Repository, core.NewValidator(), opts...)

	result, err := importer.Import(ctx, ref)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	return nil
}
