package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/efreitasn/mocktrader/internal/config"
	"github.com/efreitasn/mocktrader/internal/service"
	"github.com/efreitasn/mocktrader/internal/store"
)

// newLogger builds the JSON slog logger used by every subcommand.
func newLogger(w io.Writer, level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

// repositories is the storage backend selected by STORE_DRIVER.
type repositories struct {
	orders    service.OrderRepository
	investors service.InvestorRepository
	sessions  service.SessionRepository
	close     func() error
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		return &repositories{
			orders:    store.NewOrderStore(),
			investors: store.NewInvestorStore(),
			sessions:  store.NewSessionStore(),
			close:     func() error { return nil },
		}, nil
	case config.StoreDriverSQLite:
		db, err := store.NewSQLiteStore(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return &repositories{
			orders:    db,
			investors: db,
			sessions:  db,
			close:     db.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
