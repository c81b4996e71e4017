package server

import "github.com/xxxsen/dsdav/dataset"

type config struct {
	tokens      map[string]string
	factory     dataset.Factory
	webdavRoot  string
	realm       string
	maxBodySize int64
}

type Option func(c *config)

// WithTokens sets the "owner/dataset" => token table, empty means no check.
func WithTokens(m map[string]string) Option {
	return func(c *config) {
		c.tokens = m
	}
}

func WithDatasetFactory(f dataset.Factory) Option {
	return func(c *config) {
		c.factory = f
	}
}

func WithWebdav(root string, realm string) Option {
	return func(c *config) {
		c.webdavRoot = root
		c.realm = realm
	}
}

func WithMaxBodySize(sz int64) Option {
	return func(c *config) {
		c.maxBodySize = sz
	}
}

func applyOpts(opts ...Option) *config {
	c := &config{
		webdavRoot: "/",
		realm:      "dsdav",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
