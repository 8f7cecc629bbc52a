package mdict

import (
	"context"

	"github.com/gomdict/mdict/internal/options"
)

// Option configures Open.
type Option = options.Option[*openConfig]

type openConfig struct {
	ctx      context.Context
	key      []byte
	useCache bool
	cacheDir string
}

func defaultOpenConfig() *openConfig {
	return &openConfig{
		ctx:      context.Background(),
		useCache: true,
	}
}

// WithKey supplies the secret used to derive the record-decryption
// scramble key for dictionaries whose records are user-key encrypted.
// It has no effect on key-header encryption, which is always derivable
// from the directory's own declared length.
func WithKey(secret []byte) Option {
	return options.NoError(func(c *openConfig) {
		c.key = append([]byte(nil), secret...)
	})
}

// WithCache enables or disables the persistent on-disk index cache.
// Enabled by default; disable it for short-lived opens of large
// dictionaries where the one-time build cost outweighs reuse.
func WithCache(enabled bool) Option {
	return options.NoError(func(c *openConfig) {
		c.useCache = enabled
	})
}

// WithCacheDir overrides where the persistent index cache is written.
// By default it sits beside the MDX file as "name.db".
func WithCacheDir(dir string) Option {
	return options.NoError(func(c *openConfig) {
		c.cacheDir = dir
	})
}

// WithContext supplies the context.Context observed by Open while it
// opens or builds the persistent cache. Lookups on the returned
// Dictionary observe the context passed to each call instead.
func WithContext(ctx context.Context) Option {
	return options.NoError(func(c *openConfig) {
		c.ctx = ctx
	})
}
