// Package scheduler runs periodic maintenance jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRetentionSchedule runs the cleanup daily at 03:00
const DefaultRetentionSchedule = "0 3 * * *"

// DocumentSweeper removes stored documents older than a given age
type DocumentSweeper interface {
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// RetentionConfig holds the document retention settings
type RetentionConfig struct {
	// Schedule is a five-field cron expression
	Schedule string
	// RetentionDays is how long documents are kept; 0 disables the job
	RetentionDays int
	// RunTimeout bounds a single cleanup pass
	RunTimeout time.Duration
}

// DefaultRetentionConfig returns daily cleanup of documents older than 30 days
func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		Schedule:      DefaultRetentionSchedule,
		RetentionDays: 30,
		RunTimeout:    30 * time.Minute,
	}
}

// Age returns the retention period as a duration
func (c RetentionConfig) Age() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// RetentionJob deletes stored documents once they pass the retention period
type RetentionJob struct {
	config  RetentionConfig
	sweeper DocumentSweeper
	logger  *zap.Logger

	cron      *cron.Cron
	mu        sync.Mutex
	isRunning bool
	lastRun   time.Time
	lastCount int
}

// NewRetentionJob validates cfg and creates an idle job
func NewRetentionJob(cfg RetentionConfig, sweeper DocumentSweeper, logger *zap.Logger) (*RetentionJob, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultRetentionSchedule
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = DefaultRetentionConfig().RunTimeout
	}
	if cfg.RetentionDays < 0 {
		return nil, fmt.Errorf("%w: retention days must not be negative", ErrInvalidConfig)
	}
	if _, err := cronParser.Parse(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSchedule, cfg.Schedule, err)
	}

	return &RetentionJob{
		config:  cfg,
		sweeper: sweeper,
		logger:  logger,
	}, nil
}

// Start registers the cleanup on the cron schedule. It is a no-op when
// retention is disabled or the job is already running.
func (j *RetentionJob) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.isRunning {
		return nil
	}
	if j.config.RetentionDays == 0 {
		j.logger.Info("Document retention disabled")
		return nil
	}

	c := cron.New(
		cron.WithParser(cronParser),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(j.config.Schedule, func() { j.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidSchedule, j.config.Schedule, err)
	}
	c.Start()
	j.cron = c
	j.isRunning = true

	j.logger.Info("Document retention scheduled",
		zap.String("schedule", j.config.Schedule),
		zap.Int("retention_days", j.config.RetentionDays))
	return nil
}

// Stop removes the schedule and waits for a running cleanup, or for ctx
func (j *RetentionJob) Stop(ctx context.Context) error {
	j.mu.Lock()
	if !j.isRunning {
		j.mu.Unlock()
		return nil
	}
	j.isRunning = false
	done := j.cron.Stop()
	j.mu.Unlock()

	select {
	case <-done.Done():
		j.logger.Info("Document retention stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one cleanup pass and returns the number of documents removed
func (j *RetentionJob) RunOnce(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, j.config.RunTimeout)
	defer cancel()

	start := time.Now()
	removed, err := j.sweeper.CleanupOlderThan(ctx, j.config.Age())

	j.mu.Lock()
	j.lastRun = start
	j.lastCount = removed
	j.mu.Unlock()

	if err != nil {
		j.logger.Error("Document retention run failed",
			zap.Int("removed", removed),
			zap.Error(err))
		return removed
	}
	j.logger.Info("Document retention run finished",
		zap.Int("removed", removed),
		zap.Duration("duration", time.Since(start)))
	return removed
}

// LastRun reports when the last pass started and how many documents it removed
func (j *RetentionJob) LastRun() (time.Time, int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun, j.lastCount
}
