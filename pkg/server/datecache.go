package server

import (
	"net/http"
	"sync"
	"time"
)

// DateHeaderCache memoizes the formatted HTTP date header value.
//
// Formatting the current time costs far more than a comparison, and a
// busy server produces many responses within the same wall-clock second.
// The cache reformats at most once per second regardless of call volume.
type DateHeaderCache struct {
	mu    sync.Mutex
	epoch int64
	value []byte

	// now is swappable for tests.
	now func() time.Time
}

// NewDateHeaderCache creates an empty cache.
func NewDateHeaderCache() *DateHeaderCache {
	return &DateHeaderCache{now: time.Now}
}

// Get returns the current time formatted as an RFC-1123 GMT HTTP date,
// e.g. "Mon, 01 Jan 2024 00:00:00 GMT". Within a single wall-clock
// second repeated calls return the identical cached byte slice.
//
// Callers must treat the returned slice as read-only.
func (c *DateHeaderCache) Get() []byte {
	t := c.now()
	sec := t.Unix()

	c.mu.Lock()
	defer c.mu.Unlock()
	if sec != c.epoch || c.value == nil {
		c.value = []byte(t.UTC().Format(http.TimeFormat))
		c.epoch = sec
	}
	return c.value
}
