package services

import (
	"errors"
	"os"
	"path/filepath"

	"civleAPI/internal/apperrors"
	"civleAPI/internal/daykey"
)

// ChallengeSource looks up the challenge definition published for a day.
type ChallengeSource interface {
	// Challenge returns found=false when no challenge exists for dayKey.
	Challenge(dayKey string) (content string, found bool, err error)
}

const challengeExt = ".civle"

// FileChallengeSource reads <dir>/<MM-DD>.civle.
type FileChallengeSource struct {
	dir string
}

func NewFileChallengeSource(dir string) *FileChallengeSource {
	return &FileChallengeSource{dir: dir}
}

func (c *FileChallengeSource) Challenge(dayKey string) (string, bool, error) {
	if !daykey.IsDayKey(dayKey) {
		return "", false, nil
	}
	path := filepath.Join(c.dir, dayKey+challengeExt)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, apperrors.NewStorage("read", path, err)
	}
	return string(data), true, nil
}
