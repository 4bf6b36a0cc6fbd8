package leaderboard

import (
	"strings"
	"time"
)

// ScoreEntry is one submission in a day's list. Timestamp is set on creation
// and never changes, including when a name is merged in later.
type ScoreEntry struct {
	Score     float64   `json:"score"`
	Name      *string   `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

func (e ScoreEntry) Anonymous() bool {
	return e.Name == nil || *e.Name == ""
}

// ScoreList is kept sorted by score descending, then timestamp ascending.
type ScoreList []ScoreEntry

// Row is the public projection of an entry; timestamps are never exposed.
type Row struct {
	Name  *string `json:"name"`
	Score float64 `json:"score"`
}

type SubmitResult struct {
	Rank   int  `json:"rank"`
	InTopN bool `json:"inTopN"`
}

// BestSetup is the previous day's challenge plus its winner screenshot.
type BestSetup struct {
	DayKey        string   `json:"-"`
	Challenge     *string  `json:"challenge"`
	HasScreenshot bool     `json:"hasScreenshot"`
	Screenshot    *string  `json:"screenshot,omitempty"`
	PlayerName    *string  `json:"playerName,omitempty"`
	PlayerScore   *float64 `json:"playerScore,omitempty"`
}

// HasName reports whether a named entry matches name, ignoring case.
func (l ScoreList) HasName(name string) bool {
	for _, e := range l {
		if !e.Anonymous() && strings.EqualFold(*e.Name, name) {
			return true
		}
	}
	return false
}

// Top returns at most limit rows from the head of the list.
func (l ScoreList) Top(limit int) []Row {
	if limit < 0 || limit > len(l) {
		limit = len(l)
	}
	rows := make([]Row, 0, limit)
	for _, e := range l[:limit] {
		var name *string
		if !e.Anonymous() {
			n := *e.Name
			name = &n
		}
		rows = append(rows, Row{Name: name, Score: e.Score})
	}
	return rows
}

func StringPtr(s string) *string {
	return &s
}
