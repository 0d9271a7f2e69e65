package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/subcommands"

	"github.com/efreitasn/mocktrader/internal/config"
	"github.com/efreitasn/mocktrader/internal/engine"
	"github.com/efreitasn/mocktrader/internal/handler"
	"github.com/efreitasn/mocktrader/internal/service"
)

type serveCmd struct {
	envFile string
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the HTTP API" }
func (*serveCmd) Usage() string {
	return `serve [-env <file>]

  Starts the HTTP API on PORT and serves until SIGINT or SIGTERM.
  Configuration is read from the environment and, if present, the env file.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.envFile, "env", ".env", "dotenv file to load before reading the environment")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, err := config.LoadWithEnvFile(c.envFile)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	logger := newLogger(os.Stdout, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store",
			slog.String("driver", cfg.StoreDriver),
			slog.String("error", err.Error()),
		)
		return subcommands.ExitFailure
	}
	defer func() {
		if err := repos.close(); err != nil {
			logger.Error("store close error", slog.String("error", err.Error()))
		}
	}()

	// Services.
	authSvc := service.NewAuthService(repos.investors, repos.sessions, cfg.BcryptCost, cfg.SessionTTL, logger)
	orderSvc := service.NewOrderService(engine.NewLifecycle(), repos.orders, logger)

	// Expired sessions are swept in the background until shutdown.
	sweeper := service.NewSessionSweeper(cfg.SessionSweepInterval, authSvc, logger)
	if err := sweeper.Start(ctx); err != nil {
		logger.Error("failed to start session sweeper", slog.String("error", err.Error()))
		return subcommands.ExitFailure
	}

	router := handler.NewRouter(authSvc, orderSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			slog.String("addr", addr),
			slog.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for SIGINT/SIGTERM or a listener failure.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return subcommands.ExitFailure
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	cancel()

	logger.Info("server stopped")
	return subcommands.ExitSuccess
}
