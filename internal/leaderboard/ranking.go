package leaderboard

import (
	"sort"
	"time"
)

// Merge applies one submission to l.
//
// A named submission first looks for the most recently appended anonymous
// entry with the same score, scanning from the end of the stored list, and
// attaches the name to it in place. Players usually submit anonymously at
// game over and add a name moments later, so the newest same-score
// placeholder is the one that belongs to them. The placeholder keeps its
// original timestamp. With no placeholder, or with no name, a new entry is
// appended.
func Merge(l ScoreList, score float64, name *string, now time.Time) (ScoreList, bool) {
	if name != nil && *name != "" {
		for i := len(l) - 1; i >= 0; i-- {
			if l[i].Score == score && l[i].Anonymous() {
				n := *name
				l[i].Name = &n
				return l, true
			}
		}
		n := *name
		return append(l, ScoreEntry{Score: score, Name: &n, Timestamp: now}), false
	}
	return append(l, ScoreEntry{Score: score, Timestamp: now}), false
}

// Sort orders by score descending, earlier timestamp first on ties. The sort
// is stable so entries with identical score and timestamp keep list order.
func Sort(l ScoreList) {
	sort.SliceStable(l, func(i, j int) bool {
		if l[i].Score != l[j].Score {
			return l[i].Score > l[j].Score
		}
		return l[i].Timestamp.Before(l[j].Timestamp)
	})
}

func Truncate(l ScoreList, max int) ScoreList {
	if max >= 0 && len(l) > max {
		return l[:max]
	}
	return l
}

// Rank returns the 1-based position of the entry a submission produced.
// Named submissions match on exact (score, name). Anonymous ones take the
// last (score, anonymous) entry, which is the newest because ties sort by
// timestamp. When nothing matches, for instance because the entry was
// truncated away, the list length is returned.
func Rank(l ScoreList, score float64, name *string) int {
	if name != nil && *name != "" {
		for i, e := range l {
			if e.Score == score && e.Name != nil && *e.Name == *name {
				return i + 1
			}
		}
		return len(l)
	}
	for i := len(l) - 1; i >= 0; i-- {
		if l[i].Score == score && l[i].Anonymous() {
			return i + 1
		}
	}
	return len(l)
}

// Apply runs merge, sort and truncate, and ranks the affected entry.
func Apply(l ScoreList, score float64, name *string, now time.Time, max int) (ScoreList, int, bool) {
	l, merged := Merge(l, score, name, now)
	Sort(l)
	l = Truncate(l, max)
	return l, Rank(l, score, name), merged
}
