package services

import (
	"sync"
	"testing"
	"time"

	"civleAPI/internal/daykey"
	"civleAPI/internal/wordfilter"
)

// stepClock advances one millisecond per reading so entries get distinct timestamps.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func newStepClock(start time.Time) *stepClock {
	return &stepClock{t: start}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Millisecond)
	return c.t
}

func (c *stepClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

// Noon on 2025-06-15 in UTC keeps every test well away from midnight.
var testNoon = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, clock *stepClock, words ...string) (*ScoreStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := NewScoreStore(NewFileScoreRepository(dir), ScoreStoreOptions{
		MaxEntries: 100,
		Blocklist:  wordfilter.New(words),
		Now:        clock.Now,
	})
	return store, dir
}

func utcDays() *daykey.Partitioner {
	return daykey.New(time.UTC)
}
