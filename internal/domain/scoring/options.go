package scoring

import "github.com/okian/scoreboard/pkg/logger"

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithDetailFetcher enables run detail enrichment.
func WithDetailFetcher(d DetailFetcher) Option {
	return func(a *Aggregator) {
		if d != nil {
			a.details = d
		}
	}
}

// WithLogger sets a custom logger for the aggregator.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}
