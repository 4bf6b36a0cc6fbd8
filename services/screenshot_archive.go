package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"civleAPI/internal/apperrors"
)

const screenshotExt = ".png"

var (
	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

	// Inverse of ScreenshotFileName. A score is only ever written after a
	// name, so a single "(x)" suffix is always the name.
	screenshotPattern = regexp.MustCompile(`^(\d{2}-\d{2})(?:_\(([A-Za-z0-9_-]+)\))?(?:_\((-?\d+(?:\.\d+)?)\))?\.png$`)
)

// Screenshot describes the stored winner image of one day.
type Screenshot struct {
	DayKey   string
	FileName string
	Path     string
	Name     *string
	Score    *float64
}

// SanitizeName replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

func formatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// ScreenshotFileName builds <day>[_(Name)][_(Score)].png. The score is only
// encoded when a name is present.
func ScreenshotFileName(dayKey string, name *string, score *float64) string {
	var b strings.Builder
	b.WriteString(dayKey)
	if name != nil && *name != "" {
		b.WriteString("_(" + SanitizeName(*name) + ")")
		if score != nil {
			b.WriteString("_(" + formatScore(*score) + ")")
		}
	}
	b.WriteString(screenshotExt)
	return b.String()
}

// ParseScreenshotFileName reverses ScreenshotFileName.
func ParseScreenshotFileName(fileName string) (*Screenshot, bool) {
	m := screenshotPattern.FindStringSubmatch(fileName)
	if m == nil {
		return nil, false
	}

	shot := &Screenshot{DayKey: m[1], FileName: fileName}
	if m[2] != "" {
		name := m[2]
		shot.Name = &name
	}
	if m[3] != "" {
		score, err := strconv.ParseFloat(m[3], 64)
		if err != nil {
			return nil, false
		}
		shot.Score = &score
	}
	return shot, true
}

// ScreenshotArchive keeps at most one winner screenshot per day key.
type ScreenshotArchive struct {
	dir   string
	locks *DayLocker
}

func NewScreenshotArchive(dir string) *ScreenshotArchive {
	return &ScreenshotArchive{dir: dir, locks: NewDayLocker()}
}

func (a *ScreenshotArchive) Dir() string {
	return a.dir
}

// dayFiles lists the file names that begin with dayKey and end in .png.
func (a *ScreenshotArchive) dayFiles(dayKey string) ([]string, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewStorage("list", a.dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasPrefix(e.Name(), dayKey) && strings.HasSuffix(e.Name(), screenshotExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (a *ScreenshotArchive) removeDayFiles(dayKey string) error {
	names, err := a.dayFiles(dayKey)
	if err != nil {
		return err
	}
	for _, n := range names {
		path := filepath.Join(a.dir, n)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return apperrors.NewStorage("delete", path, err)
		}
	}
	return nil
}

// StoreWinner replaces the day's screenshot with image.
func (a *ScreenshotArchive) StoreWinner(ctx context.Context, dayKey string, image []byte, name *string, score *float64) (*Screenshot, error) {
	unlock, err := a.locks.Lock(ctx, dayKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return nil, apperrors.NewStorage("mkdir", a.dir, err)
	}
	if err := a.removeDayFiles(dayKey); err != nil {
		return nil, fmt.Errorf("clear screenshots for %s: %w", dayKey, err)
	}

	fileName := ScreenshotFileName(dayKey, name, score)
	path := filepath.Join(a.dir, fileName)
	if err := writeFileAtomic(path, image); err != nil {
		return nil, err
	}

	shot, _ := ParseScreenshotFileName(fileName)
	shot.Path = path
	return shot, nil
}

// AttachName renames the day's anonymous screenshot to carry name and score,
// or adds the score to a screenshot that already has this name but no score.
// It reports whether a rename happened.
func (a *ScreenshotArchive) AttachName(ctx context.Context, dayKey, name string, score *float64) (bool, error) {
	if name == "" {
		return false, nil
	}

	unlock, err := a.locks.Lock(ctx, dayKey)
	if err != nil {
		return false, err
	}
	defer unlock()

	current, err := a.lookup(dayKey)
	if err != nil || current == nil {
		return false, err
	}

	var target string
	switch {
	case current.Name == nil:
		target = ScreenshotFileName(dayKey, &name, score)
	case current.Score == nil && score != nil && *current.Name == SanitizeName(name):
		target = ScreenshotFileName(dayKey, current.Name, score)
	default:
		return false, nil
	}

	if target == current.FileName {
		return false, nil
	}
	newPath := filepath.Join(a.dir, target)
	if err := os.Rename(current.Path, newPath); err != nil {
		return false, apperrors.NewStorage("rename", current.Path, err)
	}
	return true, nil
}

// Lookup returns the day's screenshot, or nil when there is none.
func (a *ScreenshotArchive) Lookup(dayKey string) (*Screenshot, error) {
	return a.lookup(dayKey)
}

func (a *ScreenshotArchive) lookup(dayKey string) (*Screenshot, error) {
	names, err := a.dayFiles(dayKey)
	if err != nil {
		return nil, err
	}
	for _, n := range names {
		shot, ok := ParseScreenshotFileName(n)
		if !ok || shot.DayKey != dayKey {
			continue
		}
		shot.Path = filepath.Join(a.dir, n)
		return shot, nil
	}
	return nil, nil
}

// ReadImage returns the day's screenshot together with its bytes.
func (a *ScreenshotArchive) ReadImage(dayKey string) (*Screenshot, []byte, error) {
	shot, err := a.lookup(dayKey)
	if err != nil || shot == nil {
		return nil, nil, err
	}
	data, err := os.ReadFile(shot.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, apperrors.NewStorage("read", shot.Path, err)
	}
	return shot, data, nil
}

// Reset removes every screenshot of the day.
func (a *ScreenshotArchive) Reset(ctx context.Context, dayKey string) error {
	unlock, err := a.locks.Lock(ctx, dayKey)
	if err != nil {
		return err
	}
	defer unlock()

	return a.removeDayFiles(dayKey)
}

// Files lists all day-keyed screenshots in the archive.
func (a *ScreenshotArchive) Files() ([]Screenshot, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, apperrors.NewStorage("list", a.dir, err)
	}

	var shots []Screenshot
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		shot, ok := ParseScreenshotFileName(e.Name())
		if !ok {
			continue
		}
		shot.Path = filepath.Join(a.dir, e.Name())
		shots = append(shots, *shot)
	}
	return shots, nil
}

// Remove deletes one screenshot file under its day's lock.
func (a *ScreenshotArchive) Remove(ctx context.Context, shot Screenshot) error {
	unlock, err := a.locks.Lock(ctx, shot.DayKey)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(shot.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.NewStorage("delete", shot.Path, err)
	}
	return nil
}
