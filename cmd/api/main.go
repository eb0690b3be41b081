package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"saldo/internal/shared/config"
	"saldo/internal/shared/logging"
	"saldo/internal/shared/telemetry"
)

func main() {
	cfg, err := config.Load("saldo.toml")
	if err != nil {
		logging.New("info", "console").Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format).With().
		Str("service", cfg.Telemetry.ServiceName).
		Str("env", cfg.Environment).
		Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("application error")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Telemetry.Enabled {
		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			ServiceName:  cfg.Telemetry.ServiceName,
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("telemetry shutdown failed")
			}
		}()
	}

	deps, err := NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	reconcileScheduler, err := NewReconcileScheduler(deps, cfg, logger)
	if err != nil {
		return err
	}
	if reconcileScheduler != nil {
		reconcileScheduler.Start()
		defer reconcileScheduler.Shutdown(cfg.Server.ShutdownTimeout)
	}

	handler := SetupRoutes(deps, cfg, logger)
	srv, redirectSrv, errCh := StartServers(NewServerConfigFromConfig(handler, cfg), logger)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		GracefulShutdown(srv, redirectSrv, cfg.Server.ShutdownTimeout, logger)
		return err
	}

	GracefulShutdown(srv, redirectSrv, cfg.Server.ShutdownTimeout, logger)
	return nil
}
