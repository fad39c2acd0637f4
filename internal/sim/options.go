package sim

import (
	"math/rand/v2"

	"github.com/tuomaz/stationkeeper/internal/config"
	"github.com/tuomaz/stationkeeper/internal/spacecraft"
)

// Option customises a Simulation or Driver.
type Option func(*options)

type options struct {
	newSource func() rand.Source
	observer  Observer
	queueSize int
}

// WithSeed makes sensor noise deterministic. Reset replays the same sequence.
func WithSeed(seed uint64) Option {
	return func(o *options) {
		o.newSource = func() rand.Source { return spacecraft.NewSource(seed) }
	}
}

// WithSource supplies the noise source factory, called at start and on every Reset.
func WithSource(newSource func() rand.Source) Option {
	return func(o *options) {
		o.newSource = newSource
	}
}

// WithObserver receives tick outcomes from a Driver.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithQueueSize sets how many requests may wait for the tick loop.
func WithQueueSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.queueSize = n
		}
	}
}

func buildOptions(cfg config.Config, opts []Option) options {
	o := options{
		newSource: spacecraft.NewLiveSource,
		observer:  nopObserver{},
		queueSize: 4,
	}
	if cfg.Seed != nil {
		WithSeed(*cfg.Seed)(&o)
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
