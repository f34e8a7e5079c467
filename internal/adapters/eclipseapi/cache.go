package eclipseapi

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshTimeout = 2 * time.Minute

// listCache holds one listing for ttl. Concurrent refreshes share a single
// upstream call, detached from the caller that started it. Each caller stops
// waiting when its own context is done.
type listCache[T any] struct {
	ttl time.Duration
	now func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	items     []T
	fetchedAt time.Time
}

func (c *listCache[T]) get(ctx context.Context, fetch func(context.Context) ([]T, error)) ([]T, error) {
	c.mu.RLock()
	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) < c.ttl {
		items := c.items
		c.mu.RUnlock()
		return items, nil
	}
	c.mu.RUnlock()

	ch := c.group.DoChan("refresh", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		items, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.items = items
		c.fetchedAt = c.now()
		c.mu.Unlock()
		return items, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]T), nil
	}
}
