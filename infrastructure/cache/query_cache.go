package cache

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// QueryCache stores JSON query results keyed by endpoint and filter parameters.
// Entries leave the cache only through Invalidate or when their ttl runs out; a
// failed load is never cached and never retried.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[string]queryEntry
	// epoch counts invalidations; a load started under an older epoch is not stored.
	epoch uint64
	ttl   time.Duration
	now   func() time.Time
	group singleflight.Group
}

type queryEntry struct {
	body     []byte
	storedAt time.Time
}

// NewQueryCache returns a cache whose entries expire after ttl. A zero ttl keeps
// entries until they are invalidated.
func NewQueryCache(ttl time.Duration) *QueryCache {
	return &QueryCache{entries: make(map[string]queryEntry), ttl: ttl, now: time.Now}
}

// Key builds the cache key of an endpoint and its parameters. Parameters are sorted
// and empty values dropped so equivalent filters share an entry.
func Key(endpoint string, params url.Values) string {
	clean := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v != "" {
				clean.Add(k, v)
			}
		}
	}
	if len(clean) == 0 {
		return endpoint
	}
	return endpoint + "?" + clean.Encode()
}

func (c *QueryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.body, true
}

func (c *QueryCache) Set(key string, body []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = queryEntry{body: body, storedAt: c.now()}
}

func (c *QueryCache) expired(e queryEntry) bool {
	return c.ttl > 0 && c.now().Sub(e.storedAt) > c.ttl
}

// Fetch returns the cached body for key or loads it once, sharing the load between
// concurrent callers of the same key. The load runs detached from any single
// caller's cancellation; each caller's context only bounds its own wait. A load
// that overlaps an Invalidate is returned to its callers but not stored.
func (c *QueryCache) Fetch(ctx context.Context, key string, load func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if body, ok := c.Get(key); ok {
		return body, nil
	}
	c.mu.RLock()
	epoch := c.epoch
	c.mu.RUnlock()

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey(key, epoch), func() (any, error) {
		body, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.store(key, body, epoch)
		return body, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

func flightKey(key string, epoch uint64) string {
	return key + "#" + strconv.FormatUint(epoch, 10)
}

// store sets key only if no invalidation happened since epoch was read.
func (c *QueryCache) store(key string, body []byte, epoch uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	c.entries[key] = queryEntry{body: body, storedAt: c.now()}
}

// Invalidate drops every entry whose key equals a prefix or starts with it followed
// by '?' or '/'. No prefixes drops everything.
func (c *QueryCache) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	if len(prefixes) == 0 {
		c.entries = make(map[string]queryEntry)
		return
	}
	for key := range c.entries {
		for _, p := range prefixes {
			if matchesPrefix(key, p) {
				delete(c.entries, key)
				break
			}
		}
	}
}

func matchesPrefix(key, prefix string) bool {
	if !strings.HasPrefix(key, prefix) {
		return false
	}
	rest := key[len(prefix):]
	return rest == "" || rest[0] == '?' || rest[0] == '/'
}

// Len returns the number of live entries.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, e := range c.entries {
		if !c.expired(e) {
			n++
		}
	}
	return n
}
