package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"civleAPI/internal/apperrors"
	"civleAPI/internal/daykey"
	"civleAPI/internal/leaderboard"
	"civleAPI/internal/wordfilter"
)

// ScoreRepository persists one ScoreList per day key.
type ScoreRepository interface {
	// Read returns an empty list when nothing is stored for dayKey.
	Read(dayKey string) (leaderboard.ScoreList, error)
	Write(dayKey string, list leaderboard.ScoreList) error
	// Delete is a no-op when nothing is stored.
	Delete(dayKey string) error
	Keys() ([]string, error)
}

const scoreFileExt = ".json"

// FileScoreRepository stores each day as <dir>/<MM-DD>.json.
type FileScoreRepository struct {
	dir string
}

func NewFileScoreRepository(dir string) *FileScoreRepository {
	return &FileScoreRepository{dir: dir}
}

func (r *FileScoreRepository) Dir() string {
	return r.dir
}

func (r *FileScoreRepository) path(dayKey string) string {
	return filepath.Join(r.dir, dayKey+scoreFileExt)
}

func (r *FileScoreRepository) Read(dayKey string) (leaderboard.ScoreList, error) {
	path := r.path(dayKey)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return leaderboard.ScoreList{}, nil
		}
		return nil, apperrors.NewStorage("read", path, err)
	}

	var list leaderboard.ScoreList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, apperrors.NewStorage("decode", path, err)
	}
	if list == nil {
		list = leaderboard.ScoreList{}
	}
	return list, nil
}

// Write replaces the day's file through a temp file and rename, so readers
// see either the old list or the new one.
func (r *FileScoreRepository) Write(dayKey string, list leaderboard.ScoreList) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return apperrors.NewStorage("mkdir", r.dir, err)
	}
	if list == nil {
		list = leaderboard.ScoreList{}
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return apperrors.NewStorage("encode", r.path(dayKey), err)
	}
	return writeFileAtomic(r.path(dayKey), data)
}

func (r *FileScoreRepository) Delete(dayKey string) error {
	path := r.path(dayKey)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.NewStorage("delete", path, err)
	}
	return nil
}

// Keys lists the day keys that have a score file. A missing directory has none.
func (r *FileScoreRepository) Keys() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewStorage("list", r.dir, err)
	}

	var keys []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), scoreFileExt) {
			continue
		}
		key := strings.TrimSuffix(e.Name(), scoreFileExt)
		if daykey.IsDayKey(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func writeFileAtomic(path string, data []byte) error {
	dir, base := filepath.Split(path)
	tmp := filepath.Join(dir, fmt.Sprintf(".%s.%s.tmp", base, uuid.NewString()))

	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorage("write", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return apperrors.NewStorage("rename", path, err)
	}
	return nil
}

// Submission is the outcome of ScoreStore.Submit.
type Submission struct {
	List   leaderboard.ScoreList
	Rank   int
	Merged bool
}

type ScoreStoreOptions struct {
	MaxEntries int
	Blocklist  *wordfilter.Blocklist
	Now        func() time.Time
}

// ScoreStore owns the per-day merge, ranking and retention rules.
type ScoreStore struct {
	repo       ScoreRepository
	blocklist  *wordfilter.Blocklist
	locks      *DayLocker
	now        func() time.Time
	maxEntries int
}

func NewScoreStore(repo ScoreRepository, opts ScoreStoreOptions) *ScoreStore {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 100
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ScoreStore{
		repo:       repo,
		blocklist:  opts.Blocklist,
		locks:      NewDayLocker(),
		now:        opts.Now,
		maxEntries: opts.MaxEntries,
	}
}

func (s *ScoreStore) MaxEntries() int {
	return s.maxEntries
}

func (s *ScoreStore) Load(ctx context.Context, dayKey string) (leaderboard.ScoreList, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.repo.Read(dayKey)
}

// Submit validates the name, merges the score into the day's list, keeps the
// top entries and persists the result. The whole read-modify-write holds the
// day's lock so concurrent submissions for one day are applied in turn.
func (s *ScoreStore) Submit(ctx context.Context, dayKey string, score float64, name *string) (*Submission, error) {
	unlock, err := s.locks.Lock(ctx, dayKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	list, err := s.repo.Read(dayKey)
	if err != nil {
		return nil, fmt.Errorf("load scores for %s: %w", dayKey, err)
	}

	if name != nil {
		if s.blocklist.Contains(*name) {
			return nil, apperrors.NewValidation(apperrors.ReasonBadWord, "Name contains inappropriate content")
		}
		if list.HasName(*name) {
			return nil, apperrors.NewValidation(apperrors.ReasonDuplicateName, "Name already taken")
		}
	}

	list, rank, merged := leaderboard.Apply(list, score, name, s.now(), s.maxEntries)

	if err := s.repo.Write(dayKey, list); err != nil {
		return nil, fmt.Errorf("save scores for %s: %w", dayKey, err)
	}

	return &Submission{List: list, Rank: rank, Merged: merged}, nil
}

// Reset deletes the day's list. Resetting an empty day succeeds.
func (s *ScoreStore) Reset(ctx context.Context, dayKey string) error {
	unlock, err := s.locks.Lock(ctx, dayKey)
	if err != nil {
		return err
	}
	defer unlock()

	return s.repo.Delete(dayKey)
}

func (s *ScoreStore) DayKeys() ([]string, error) {
	return s.repo.Keys()
}

// repoDir is the backing directory for file repositories, "" otherwise.
func (s *ScoreStore) repoDir() string {
	if d, ok := s.repo.(interface{ Dir() string }); ok {
		return d.Dir()
	}
	return ""
}
