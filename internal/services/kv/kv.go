package kv

import (
	"context"
	"time"
)

type Options struct {
	Expiration time.Duration
}

type Option func(*Options)

func WithExpiration(expiration time.Duration) Option {
	return func(o *Options) {
		o.Expiration = expiration
	}
}

// Store persists small string values, most importantly the resumable
// transfer state keyed by file fingerprint. The redis mode survives a
// process restart, which is what makes cross-run resume work.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key string, value string, opts ...Option) error
	Delete(ctx context.Context, key string) error
}
