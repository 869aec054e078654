package engine

import (
	"imagededup/fingerprint"
	"imagededup/grouper"
	"imagededup/imagehash"
	"imagededup/index"
)

// Cache stores fingerprints between runs. Implementations are bound to one
// algorithm and hash size.
type Cache interface {
	Lookup(id string) (fingerprint.Fingerprint, bool)
	Store(id string, fp fingerprint.Fingerprint) error
}

type options struct {
	codec       imagehash.Codec
	strategy    index.StrategyKind
	workers     int
	maxInFlight int64
	reporter    Reporter
	cache       Cache
	keep        grouper.KeepPolicy
}

// Option configures an Engine.
type Option func(*options)

// WithCodec sets the hash codec. The default is an 8x8 difference hash.
func WithCodec(c imagehash.Codec) Option {
	return func(o *options) {
		if c != nil {
			o.codec = c
		}
	}
}

// WithStrategy selects the index search strategy. Banded is the default;
// both strategies return the same duplicates.
func WithStrategy(k index.StrategyKind) Option {
	return func(o *options) {
		o.strategy = k
	}
}

// WithWorkers sets the number of hashing and grouping goroutines.
// Values <= 0 use GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithMaxInFlight bounds how many decoded rasters may be held at once.
// Values <= 0 use the worker count.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		o.maxInFlight = int64(n)
	}
}

// WithReporter sets the progress and failure sink for each run.
func WithReporter(r Reporter) Option {
	return func(o *options) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithCache enables fingerprint reuse across runs.
func WithCache(c Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithKeepPolicy chooses which cluster members end up in the removal set.
func WithKeepPolicy(p grouper.KeepPolicy) Option {
	return func(o *options) {
		o.keep = p
	}
}
