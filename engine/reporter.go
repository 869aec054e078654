package engine

import "time"

// Failure records an image that could not be hashed.
type Failure struct {
	ID  string
	Err error
}

// Summary holds the counts reported at the end of a run.
type Summary struct {
	Attempted  int
	Hashed     int
	CacheHits  int
	Failed     int
	Duplicates int
	Clusters   int
	Elapsed    time.Duration
}

// Reporter receives progress from a run. Calls may arrive from several
// goroutines at once. Nothing in the engine depends on what a reporter does.
type Reporter interface {
	ImageHashed(id string, cached bool)
	ImageFailed(id string, err error)
	CacheFailed(id string, err error)
	Finished(s Summary)
}

// NopReporter discards everything.
type NopReporter struct{}

func (NopReporter) ImageHashed(string, bool)  {}
func (NopReporter) ImageFailed(string, error) {}
func (NopReporter) CacheFailed(string, error) {}
func (NopReporter) Finished(Summary)          {}
