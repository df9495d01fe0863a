package repository

import "github.com/okian/scoreboard/pkg/logger"

type options struct {
	logger   logger.Logger
	maxConns int32
}

// Option applies a configuration option to a store.
type Option func(*options)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMaxConns caps the Postgres pool size. Ignored by the memory store.
func WithMaxConns(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConns = int32(n)
		}
	}
}

func applyOptions(name string, opts []Option) options {
	o := options{logger: logger.Get().Named(name)}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
