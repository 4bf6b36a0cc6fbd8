package services

import (
	"context"
	"fmt"
	"os"
	"time"

	"civleAPI/internal/apperrors"
	"civleAPI/internal/daykey"
	"civleAPI/internal/leaderboard"
	"civleAPI/internal/logger"
	"civleAPI/internal/metrics"
	"civleAPI/utils"
)

type LeaderboardOptions struct {
	// TopN is the size of the public leaderboard and the inTopN threshold.
	TopN int
	Now  func() time.Time
}

// LeaderboardService ties the score store, the screenshot archive and the
// challenge source together for the HTTP layer. It keeps no state between
// calls; every operation reads the current files.
type LeaderboardService struct {
	scores      *ScoreStore
	screenshots *ScreenshotArchive
	challenges  ChallengeSource
	days        *daykey.Partitioner
	topN        int
	now         func() time.Time
}

func NewLeaderboardService(scores *ScoreStore, screenshots *ScreenshotArchive, challenges ChallengeSource, days *daykey.Partitioner, opts LeaderboardOptions) *LeaderboardService {
	if opts.TopN <= 0 {
		opts.TopN = 20
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LeaderboardService{
		scores:      scores,
		screenshots: screenshots,
		challenges:  challenges,
		days:        days,
		topN:        opts.TopN,
		now:         opts.Now,
	}
}

func (s *LeaderboardService) TopN() int {
	return s.topN
}

func (s *LeaderboardService) Today() string {
	return s.days.DayKey(s.now())
}

func (s *LeaderboardService) Yesterday() string {
	return s.days.Yesterday(s.now())
}

// SubmitScore records a score for today and returns its rank. When the entry
// lands in first place the screenshot is stored and an anonymous winner
// screenshot is renamed once the player's name arrives. Screenshot problems
// are logged; the score result stands regardless.
func (s *LeaderboardService) SubmitScore(ctx context.Context, score float64, name *string, screenshot []byte) (*leaderboard.SubmitResult, error) {
	dayKey := s.Today()

	sub, err := s.scores.Submit(ctx, dayKey, score, name)
	if err != nil {
		if _, ok := apperrors.AsValidation(err); ok {
			metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeRejected).Inc()
		} else {
			metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeFailed).Inc()
		}
		return nil, err
	}

	if sub.Merged {
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeMerged).Inc()
	} else {
		metrics.ScoreSubmissions.WithLabelValues(metrics.OutcomeAccepted).Inc()
	}

	if sub.Rank == 1 {
		if len(screenshot) > 0 {
			s.storeWinner(ctx, dayKey, screenshot, name, &score)
		}
		if name != nil && *name != "" {
			s.attachName(ctx, dayKey, *name, &score)
		}
	}

	return &leaderboard.SubmitResult{
		Rank:   sub.Rank,
		InTopN: sub.Rank <= s.topN,
	}, nil
}

func (s *LeaderboardService) storeWinner(ctx context.Context, dayKey string, image []byte, name *string, score *float64) {
	shot, err := s.screenshots.StoreWinner(ctx, dayKey, image, name, score)
	if err != nil {
		logger.Error("Error saving winner screenshot for %s: %v", dayKey, err)
		metrics.WinnerScreenshots.WithLabelValues("store", "error").Inc()
		return
	}
	logger.Info("Saved winner screenshot %s", shot.FileName)
	metrics.WinnerScreenshots.WithLabelValues("store", "ok").Inc()
}

func (s *LeaderboardService) attachName(ctx context.Context, dayKey, name string, score *float64) {
	renamed, err := s.screenshots.AttachName(ctx, dayKey, name, score)
	if err != nil {
		logger.Error("Error renaming winner screenshot for %s: %v", dayKey, err)
		metrics.WinnerScreenshots.WithLabelValues("rename", "error").Inc()
		return
	}
	if renamed {
		logger.Info("Attached name to winner screenshot for %s", dayKey)
		metrics.WinnerScreenshots.WithLabelValues("rename", "ok").Inc()
	}
}

// Leaderboard returns the top limit rows of a day.
func (s *LeaderboardService) Leaderboard(ctx context.Context, dayKey string, limit int) ([]leaderboard.Row, error) {
	list, err := s.scores.Load(ctx, dayKey)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard %s: %w", dayKey, err)
	}
	return list.Top(limit), nil
}

func (s *LeaderboardService) TodayLeaderboard(ctx context.Context, limit int) ([]leaderboard.Row, error) {
	return s.Leaderboard(ctx, s.Today(), limit)
}

// BestSetup combines a day's challenge with its winner screenshot.
// It returns apperrors.ErrNotFound when neither exists.
func (s *LeaderboardService) BestSetup(ctx context.Context, dayKey string) (*leaderboard.BestSetup, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	setup := &leaderboard.BestSetup{DayKey: dayKey}

	challenge, found, err := s.challenges.Challenge(dayKey)
	if err != nil {
		return nil, fmt.Errorf("load challenge %s: %w", dayKey, err)
	}
	if found {
		setup.Challenge = &challenge
	}

	shot, image, err := s.screenshots.ReadImage(dayKey)
	if err != nil {
		return nil, fmt.Errorf("load screenshot %s: %w", dayKey, err)
	}
	if shot != nil {
		url := utils.EncodeDataURL("image/png", image)
		setup.HasScreenshot = true
		setup.Screenshot = &url
		setup.PlayerName = shot.Name
		setup.PlayerScore = shot.Score
	}

	if setup.Challenge == nil && !setup.HasScreenshot {
		return nil, apperrors.ErrNotFound
	}
	return setup, nil
}

func (s *LeaderboardService) YesterdayBestSetup(ctx context.Context) (*leaderboard.BestSetup, error) {
	return s.BestSetup(ctx, s.Yesterday())
}

// DailyChallenge returns today's challenge or apperrors.ErrNotFound.
func (s *LeaderboardService) DailyChallenge(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	content, found, err := s.challenges.Challenge(s.Today())
	if err != nil {
		return "", err
	}
	if !found {
		return "", apperrors.ErrNotFound
	}
	return content, nil
}

// ResetToday clears today's scores and today's winner screenshot.
func (s *LeaderboardService) ResetToday(ctx context.Context) error {
	dayKey := s.Today()
	if err := s.scores.Reset(ctx, dayKey); err != nil {
		return fmt.Errorf("reset scores %s: %w", dayKey, err)
	}
	if err := s.screenshots.Reset(ctx, dayKey); err != nil {
		return fmt.Errorf("reset screenshots %s: %w", dayKey, err)
	}
	logger.Warn("Leaderboard for %s was reset", dayKey)
	return nil
}

// StoreUploadedScreenshot overwrites today's winner screenshot with an
// admin-supplied image. The current leader's name and score are kept in the
// filename when there is one.
func (s *LeaderboardService) StoreUploadedScreenshot(ctx context.Context, image []byte) error {
	dayKey := s.Today()

	var name *string
	var score *float64
	list, err := s.scores.Load(ctx, dayKey)
	if err != nil {
		return err
	}
	if len(list) > 0 && !list[0].Anonymous() {
		name = list[0].Name
		score = &list[0].Score
	}

	if _, err := s.screenshots.StoreWinner(ctx, dayKey, image, name, score); err != nil {
		metrics.WinnerScreenshots.WithLabelValues("upload", "error").Inc()
		return err
	}
	metrics.WinnerScreenshots.WithLabelValues("upload", "ok").Inc()
	return nil
}

// CheckStorage verifies that the storage directories can be created and listed.
func (s *LeaderboardService) CheckStorage() error {
	for _, dir := range []string{s.scores.repoDir(), s.screenshots.Dir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperrors.NewStorage("mkdir", dir, err)
		}
		if _, err := os.ReadDir(dir); err != nil {
			return apperrors.NewStorage("list", dir, err)
		}
	}
	return nil
}
