package daykey

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultTimezone is the civil timezone the daily rotation follows.
const DefaultTimezone = "America/New_York"

const layout = "01-02"

var dayKeyPattern = regexp.MustCompile(`^\d{2}-\d{2}$`)

// Partitioner maps instants to MM-DD day keys in a fixed location.
// Keys carry no year, so they repeat yearly. Only the today/yesterday
// window is ever queried.
type Partitioner struct {
	loc *time.Location
}

func New(loc *time.Location) *Partitioner {
	if loc == nil {
		loc = time.UTC
	}
	return &Partitioner{loc: loc}
}

// NewFromName loads the IANA zone by name.
func NewFromName(name string) (*Partitioner, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", name, err)
	}
	return New(loc), nil
}

func (p *Partitioner) Location() *time.Location {
	return p.loc
}

// DayKey returns the civil month and day of t, e.g. "03-07".
func (p *Partitioner) DayKey(t time.Time) string {
	return t.In(p.loc).Format(layout)
}

// Yesterday steps back one calendar day on the local civil date, not 24h,
// so the 23h and 25h DST days resolve to the right key.
func (p *Partitioner) Yesterday(t time.Time) string {
	local := t.In(p.loc)
	noon := time.Date(local.Year(), local.Month(), local.Day(), 12, 0, 0, 0, p.loc)
	return p.DayKey(noon.AddDate(0, 0, -1))
}

// Window returns the retention window {today, yesterday} for t.
func (p *Partitioner) Window(t time.Time) (today, yesterday string) {
	return p.DayKey(t), p.Yesterday(t)
}

// InWindow reports whether key is today or yesterday relative to t.
func (p *Partitioner) InWindow(key string, t time.Time) bool {
	today, yesterday := p.Window(t)
	return key == today || key == yesterday
}

func IsDayKey(s string) bool {
	return dayKeyPattern.MatchString(s)
}
