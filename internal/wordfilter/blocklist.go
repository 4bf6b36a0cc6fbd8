package wordfilter

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Blocklist rejects names containing any listed word as a case-insensitive
// substring. The zero value allows everything.
type Blocklist struct {
	words []string
}

func New(words []string) *Blocklist {
	b := &Blocklist{}
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			b.words = append(b.words, w)
		}
	}
	return b
}

// Parse reads one word per line; blank lines are skipped.
func Parse(r io.Reader) (*Blocklist, error) {
	var words []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		words = append(words, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read blocklist: %w", err)
	}
	return New(words), nil
}

// LoadFile reads the blocklist at path. A missing file yields an empty list
// and found=false so callers can warn about it.
func LoadFile(path string) (b *Blocklist, found bool, err error) {
	if path == "" {
		return New(nil), false, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(nil), false, nil
		}
		return nil, false, fmt.Errorf("open blocklist %s: %w", path, err)
	}
	defer f.Close()

	b, err = Parse(f)
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (b *Blocklist) Contains(name string) bool {
	if b == nil {
		return false
	}
	lower := strings.ToLower(name)
	for _, w := range b.words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func (b *Blocklist) Len() int {
	if b == nil {
		return 0
	}
	return len(b.words)
}
