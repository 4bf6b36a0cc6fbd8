package services

import (
	"context"
	"sync"
)

// DayLocker serializes work per day key. Keys never block each other.
// Each key gets a one-slot channel so waiting can be cancelled by ctx.
type DayLocker struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewDayLocker() *DayLocker {
	return &DayLocker{slots: make(map[string]chan struct{})}
}

func (d *DayLocker) slot(key string) chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	ch, ok := d.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		d.slots[key] = ch
	}
	return ch
}

// Lock blocks until key is free or ctx is done. The returned func releases it.
func (d *DayLocker) Lock(ctx context.Context, key string) (func(), error) {
	ch := d.slot(key)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
