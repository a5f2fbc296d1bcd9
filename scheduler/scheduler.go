package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DraftPurger удаляет черновики регистраций, не изменявшиеся дольше ttl.
type DraftPurger interface {
	PurgeStaleDrafts(ctx context.Context, ttl time.Duration) (int64, error)
}

type Config struct {
	DraftTTL      time.Duration
	PurgeInterval time.Duration
	JobTimeout    time.Duration
}

type Scheduler struct {
	sched  gocron.Scheduler
	purger DraftPurger
	cfg    Config
	logger *slog.Logger
}

func New(purger DraftPurger, cfg Config, logger *slog.Logger) (*Scheduler, error) {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	s := &Scheduler{sched: sched, purger: purger, cfg: cfg, logger: logger}
	_, err = sched.NewJob(
		gocron.DurationJob(cfg.PurgeInterval),
		gocron.NewTask(s.purgeDrafts),
		gocron.WithName("purge-stale-drafts"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register draft purge job: %w", err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.logger.Info("scheduler started",
		slog.Duration("purge_interval", s.cfg.PurgeInterval),
		slog.Duration("draft_ttl", s.cfg.DraftTTL))
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

func (s *Scheduler) purgeDrafts() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	if _, err := s.purger.PurgeStaleDrafts(ctx, s.cfg.DraftTTL); err != nil {
		s.logger.Error("scheduler: draft purge failed", slog.Any("error", err))
	}
}
