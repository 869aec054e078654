// Package engine runs the duplicate detection pipeline over a batch of
// images: parallel hashing, index build, grouping and removal selection.
package engine

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"imagededup/fingerprint"
	"imagededup/grouper"
	"imagededup/imagehash"
	"imagededup/index"
)

// Source yields one image. Load is called at most once per run, from a
// worker goroutine.
type Source interface {
	Identity() string
	Load() (*imagehash.Image, error)
}

type decoded struct {
	img *imagehash.Image
}

func (d decoded) Identity() string                { return d.img.ID }
func (d decoded) Load() (*imagehash.Image, error) { return d.img, nil }

// Decoded wraps an already decoded image as a Source.
func Decoded(img *imagehash.Image) Source { return decoded{img: img} }

// Result is the outcome of a run.
type Result struct {
	Total      int
	Hashed     int
	CacheHits  int
	Failures   []Failure
	Duplicates grouper.Duplicates
	Clusters   []grouper.Cluster
	// Removal is sorted.
	Removal []string
	Elapsed time.Duration
}

// Summary condenses the result for the final report.
func (r *Result) Summary() Summary {
	return Summary{
		Attempted:  r.Total,
		Hashed:     r.Hashed,
		CacheHits:  r.CacheHits,
		Failed:     len(r.Failures),
		Duplicates: len(r.Removal),
		Clusters:   len(r.Clusters),
		Elapsed:    r.Elapsed,
	}
}

// Engine is safe to reuse; every Run builds a fresh index.
type Engine struct {
	opts options
}

// New creates an Engine.
func New(opts ...Option) (*Engine, error) {
	o := options{
		strategy: index.KindBanded,
		reporter: NopReporter{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.codec == nil {
		c, err := imagehash.NewDifferenceHash(imagehash.DefaultHashSize)
		if err != nil {
			return nil, err
		}
		o.codec = c
	}
	if o.workers <= 0 {
		o.workers = runtime.GOMAXPROCS(0)
	}
	if o.maxInFlight <= 0 {
		o.maxInFlight = int64(o.workers)
	}
	return &Engine{opts: o}, nil
}

// Codec returns the configured codec.
func (e *Engine) Codec() imagehash.Codec { return e.opts.codec }

// Run hashes every source, groups the fingerprints at threshold t and
// selects the removal set.
//
// Per-image load and hash failures are collected in Result.Failures. An
// invalid threshold fails before any work, and a repeated identity aborts
// the run. When ctx is cancelled no new image is started, in-flight images
// finish, and the partial result is returned with ctx.Err().
func (e *Engine) Run(ctx context.Context, sources []Source, t int) (*Result, error) {
	start := time.Now()
	width := e.opts.codec.Width()
	if err := index.ValidateThreshold(t, width); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(sources))
	for _, src := range sources {
		id := src.Identity()
		if _, ok := seen[id]; ok {
			return nil, &index.DuplicateIdentityError{ID: id}
		}
		seen[id] = struct{}{}
	}

	strategy := index.Exhaustive()
	if e.opts.strategy == index.KindBanded {
		strategy = index.BandedFor(t, width)
	}
	idx, err := index.New(width, strategy)
	if err != nil {
		return nil, err
	}

	res := &Result{Total: len(sources)}
	finish := func() {
		sort.Slice(res.Failures, func(i, j int) bool { return res.Failures[i].ID < res.Failures[j].ID })
		res.Elapsed = time.Since(start)
		e.opts.reporter.Finished(res.Summary())
	}

	if err := e.buildIndex(ctx, idx, sources, res); err != nil {
		finish()
		return res, err
	}

	// Index is read-only from here on.
	dups, err := grouper.GroupDuplicates(ctx, idx, t, e.opts.workers)
	if err != nil {
		finish()
		return res, err
	}

	order := make([]string, len(sources))
	for i, src := range sources {
		order[i] = src.Identity()
	}
	res.Duplicates = dups
	res.Clusters = grouper.Clusters(dups)
	res.Removal = grouper.RemovalSet(dups, e.opts.keep, order).Sorted()
	finish()
	return res, nil
}

// buildIndex fans sources out to the workers and inserts every fingerprint.
func (e *Engine) buildIndex(ctx context.Context, idx *index.Index, sources []Source, res *Result) error {
	var mu sync.Mutex
	sem := semaphore.NewWeighted(e.opts.maxInFlight)
	work := make(chan Source)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(work)
		for _, src := range sources {
			select {
			case <-gctx.Done():
				return nil
			case work <- src:
			}
		}
		return nil
	})

	for i := 0; i < e.opts.workers; i++ {
		g.Go(func() error {
			for src := range work {
				if err := sem.Acquire(gctx, 1); err != nil {
					return nil
				}
				id := src.Identity()
				fp, cached, err := e.hash(src)
				sem.Release(1)

				if err != nil {
					mu.Lock()
					res.Failures = append(res.Failures, Failure{ID: id, Err: err})
					mu.Unlock()
					e.opts.reporter.ImageFailed(id, err)
					continue
				}
				if err := idx.Insert(id, fp); err != nil {
					return err
				}

				mu.Lock()
				res.Hashed++
				if cached {
					res.CacheHits++
				}
				mu.Unlock()
				e.opts.reporter.ImageHashed(id, cached)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// hash returns the fingerprint of src, from the cache when possible.
func (e *Engine) hash(src Source) (fp fingerprint.Fingerprint, cached bool, err error) {
	id := src.Identity()
	if e.opts.cache != nil {
		if fp, ok := e.opts.cache.Lookup(id); ok && fp.Width() == e.opts.codec.Width() {
			return fp, true, nil
		}
	}

	// A broken decoder must not take the whole batch down.
	defer func() {
		if r := recover(); r != nil {
			err = &imagehash.DecodeError{ID: id, Err: fmt.Errorf("panic during image loading: %v\n%s", r, debug.Stack())}
		}
	}()

	img, err := src.Load()
	if err != nil {
		var de *imagehash.DecodeError
		if !errors.As(err, &de) {
			err = &imagehash.DecodeError{ID: id, Err: err}
		}
		return fp, false, err
	}
	fp, err = e.opts.codec.Compute(img)
	if err != nil {
		return fp, false, err
	}

	if e.opts.cache != nil {
		if err := e.opts.cache.Store(id, fp); err != nil {
			e.opts.reporter.CacheFailed(id, err)
		}
	}
	return fp, false, nil
}
