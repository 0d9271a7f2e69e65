package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// SessionPruner deletes expired sessions.
type SessionPruner interface {
	PruneSessions(ctx context.Context) (int64, error)
}

// SessionSweeper periodically removes expired sessions on a cron schedule.
type SessionSweeper struct {
	interval time.Duration
	pruner   SessionPruner
	logger   *slog.Logger
}

// NewSessionSweeper creates a sweeper that runs every interval.
func NewSessionSweeper(interval time.Duration, pruner SessionPruner, logger *slog.Logger) *SessionSweeper {
	return &SessionSweeper{
		interval: interval,
		pruner:   pruner,
		logger:   logger,
	}
}

// Start schedules the sweep and returns immediately. The schedule stops
// when ctx is cancelled.
func (s *SessionSweeper) Start(ctx context.Context) error {
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule session sweep: %w", err)
	}
	c.Start()

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
	}()
	return nil
}

func (s *SessionSweeper) sweep(ctx context.Context) {
	n, err := s.pruner.PruneSessions(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", slog.Int64("count", n))
	}
}
