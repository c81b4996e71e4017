package cache

import "time"

type config struct {
	listTTL          time.Duration
	listSize         int
	statSize         int
	bodyCacheSize    int64
	bodyKeySizeLimit int64
}

type Option func(c *config)

func WithListTTL(ttl time.Duration) Option {
	return func(c *config) {
		if ttl > 0 {
			c.listTTL = ttl
		}
	}
}

func WithListSize(sz int) Option {
	return func(c *config) {
		if sz > 0 {
			c.listSize = sz
		}
	}
}

func WithStatSize(sz int) Option {
	return func(c *config) {
		if sz > 0 {
			c.statSize = sz
		}
	}
}

// WithBodyCache enables caching of object bodies no larger than keyLimit,
// total bytes held is bounded by total.
func WithBodyCache(total int64, keyLimit int64) Option {
	return func(c *config) {
		c.bodyCacheSize = total
		c.bodyKeySizeLimit = keyLimit
	}
}
