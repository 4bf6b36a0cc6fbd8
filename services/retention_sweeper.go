package services

import (
	"context"
	"sync"
	"time"

	"civleAPI/internal/daykey"
	"civleAPI/internal/logger"
	"civleAPI/internal/metrics"
)

// SweepReport summarizes one retention pass.
type SweepReport struct {
	ScoresDeleted      int
	ScreenshotsDeleted int
	Failures           int
}

// RetentionSweeper deletes score files and screenshots whose day key is
// neither today nor yesterday.
type RetentionSweeper struct {
	scores      *ScoreStore
	screenshots *ScreenshotArchive
	days        *daykey.Partitioner
	interval    time.Duration
	now         func() time.Time

	wg sync.WaitGroup
}

func NewRetentionSweeper(scores *ScoreStore, screenshots *ScreenshotArchive, days *daykey.Partitioner, interval time.Duration, now func() time.Time) *RetentionSweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &RetentionSweeper{
		scores:      scores,
		screenshots: screenshots,
		days:        days,
		interval:    interval,
		now:         now,
	}
}

// SweepOnce runs one pass. Failures are logged per file and never stop the pass.
func (s *RetentionSweeper) SweepOnce(ctx context.Context) SweepReport {
	var report SweepReport
	now := s.now()
	today, yesterday := s.days.Window(now)

	keys, err := s.scores.DayKeys()
	if err != nil {
		logger.Error("Retention: listing score files failed: %v", err)
		report.Failures++
	}
	for _, key := range keys {
		if s.days.InWindow(key, now) {
			continue
		}
		if err := s.scores.Reset(ctx, key); err != nil {
			logger.Error("Retention: deleting score file %s failed: %v", key, err)
			metrics.RetentionErrors.WithLabelValues("scores").Inc()
			report.Failures++
			continue
		}
		logger.Info("Retention: deleted old score file %s", key)
		metrics.RetentionDeleted.WithLabelValues("scores").Inc()
		report.ScoresDeleted++
	}

	shots, err := s.screenshots.Files()
	if err != nil {
		logger.Error("Retention: listing screenshots failed: %v", err)
		report.Failures++
	}
	for _, shot := range shots {
		if s.days.InWindow(shot.DayKey, now) {
			continue
		}
		if err := s.screenshots.Remove(ctx, shot); err != nil {
			logger.Error("Retention: deleting screenshot %s failed: %v", shot.FileName, err)
			metrics.RetentionErrors.WithLabelValues("screenshots").Inc()
			report.Failures++
			continue
		}
		logger.Info("Retention: deleted old screenshot %s", shot.FileName)
		metrics.RetentionDeleted.WithLabelValues("screenshots").Inc()
		report.ScreenshotsDeleted++
	}

	logger.Debug("Retention: kept %s and %s, removed %d score files and %d screenshots",
		today, yesterday, report.ScoresDeleted, report.ScreenshotsDeleted)
	return report
}

// Start sweeps immediately and then on every interval until ctx is done.
func (s *RetentionSweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.SweepOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.SweepOnce(ctx)
			case <-ctx.Done():
				logger.Info("Retention sweeper stopped")
				return
			}
		}
	}()
}

// Wait blocks until the goroutine started by Start has returned.
func (s *RetentionSweeper) Wait() {
	s.wg.Wait()
}
