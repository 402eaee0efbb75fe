package http

import (
	"sync"

	"github.com/benbjohnson/clock"
)

const rfc1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// dateCache formats the Date header value, re-rendering at most once
// per second. Responses within the same second share the string.
type dateCache struct {
	clock clock.Clock

	mu       sync.Mutex
	lastUnix int64
	value    string
}

func newDateCache(clock clock.Clock) *dateCache {
	return &dateCache{clock: clock}
}

func (d *dateCache) get() string {
	now := d.clock.Now().UTC()

	d.mu.Lock()
	defer d.mu.Unlock()

	if unix := now.Unix(); unix != d.lastUnix || d.value == "" {
		d.lastUnix = unix
		d.value = now.Format(rfc1123GMT)
	}

	return d.value
}
