package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"paygate-hq/ceres/pkg/audit"
	"paygate-hq/ceres/pkg/catalog"
	"paygate-hq/ceres/pkg/config"
	"paygate-hq/ceres/pkg/server"
	"paygate-hq/ceres/pkg/telemetry/logging"
	"paygate-hq/ceres/pkg/telemetry/metrics"
	"paygate-hq/ceres/pkg/validator"
)

var runFlags struct {
	listenAddress string
	logLevel      string
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the validation server",
	Long: `Start the validation server with the specified configuration.

Examples:
  # Start with defaults
  ceres run

  # Start with a custom config
  ceres run --config /etc/ceres/config.yaml

  # Override the listen address
  ceres run --listen 0.0.0.0:9090`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.listenAddress != "" {
		cfg.Server.Addr = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cat, err := catalog.Open(catalog.Config{
		DictionariesDir:    cfg.Catalog.DictionariesDir,
		RulesetsDir:        cfg.Catalog.RulesetsDir,
		MerchantConfigPath: cfg.Catalog.MerchantConfigPath,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	sink, retention, err := buildAuditBackend(cfg.Audit, logger)
	if err != nil {
		return err
	}
	defer sink.Close()
	if retention != nil {
		defer retention.Stop()
	}

	var (
		serverOpts        []server.Option
		validationMetrics *metrics.ValidationMetrics
	)
	if cfg.Telemetry.MetricsEnabled {
		registry := metrics.NewRegistry()
		validationMetrics = metrics.NewValidationMetrics(registry)
		serverOpts = append(serverOpts, server.WithMetrics(cfg.Telemetry.MetricsPath, metrics.Handler(registry)))
	}

	svc := validator.New(cat, validator.Config{
		AcceptLegacyDates: cfg.Catalog.AcceptLegacyDates,
	}, logger, validationMetrics)

	if cfg.Catalog.Watch {
		watcher := catalog.NewWatcher(cat, logger)
		go func() {
			if err := watcher.Watch(ctx); err != nil {
				logger.Error("catalog watcher exited", "error", err)
			}
		}()
	}

	srv := server.New(svc, sink, cfg.Server, logger)
	httpServer := server.NewHTTPServer(srv.Router(serverOpts...), cfg.Server)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}
	return nil
}

func buildAuditBackend(cfg config.AuditConfig, logger *slog.Logger) (audit.Sink, *audit.Retention, error) {
	switch cfg.Backend {
	case "log":
		return audit.NewLogSink(logger), nil, nil
	case "memory":
		return audit.NewMemorySink(), nil, nil
	case "sqlite":
		sink, err := audit.OpenSQLite(cfg.SQLite.Path)
		if err != nil {
			return nil, nil, err
		}
		retention, err := audit.StartRetention(sink, cfg.RetentionDays, cfg.PruneSchedule, logger)
		if err != nil {
			sink.Close()
			return nil, nil, err
		}
		return sink, retention, nil
	}
	return nil, nil, fmt.Errorf("unknown audit backend %q", cfg.Backend)
}
