package device

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	freshKey     = "reading.fresh"
	lastKnownKey = "reading.last_known"
)

// Fetcher produces a fresh reading from the device.
type Fetcher interface {
	FetchReading(ctx context.Context) (*Reading, error)
}

// Cache holds the most recently fetched reading. A reading younger than
// twice the polling interval is served without a network call; when a
// refresh fails, the last known reading is preferred over no data.
type Cache struct {
	fetcher  Fetcher
	store    *gocache.Cache
	freshFor time.Duration
}

// NewCache creates a reading cache whose freshness window is twice the
// polling interval.
func NewCache(fetcher Fetcher, pollingInterval time.Duration) *Cache {
	freshFor := 2 * pollingInterval
	return &Cache{
		fetcher:  fetcher,
		store:    gocache.New(freshFor, 10*time.Minute),
		freshFor: freshFor,
	}
}

// Get returns a reading. With forceRefresh false a fresh cached reading is
// returned as is; otherwise the device is polled. When the poll fails the
// fetch error is always returned; the stale last-known reading rides along
// with it when one exists, so callers can tell "stale" from "fresh" and
// never mistake outage data for a current reading.
func (c *Cache) Get(ctx context.Context, forceRefresh bool) (*Reading, error) {
	if !forceRefresh {
		if cached, found := c.store.Get(freshKey); found {
			return cached.(*Reading), nil
		}
	}

	reading, err := c.fetcher.FetchReading(ctx)
	if err != nil {
		if stale, found := c.store.Get(lastKnownKey); found {
			return stale.(*Reading), err
		}
		return nil, err
	}

	c.store.Set(freshKey, reading, c.freshFor)
	c.store.Set(lastKnownKey, reading, gocache.NoExpiration)
	return reading, nil
}

// LastKnown returns the most recent successfully fetched reading without
// touching the network.
func (c *Cache) LastKnown() (*Reading, bool) {
	if cached, found := c.store.Get(lastKnownKey); found {
		return cached.(*Reading), true
	}
	return nil, false
}
