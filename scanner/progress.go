package scanner

import (
	"io"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"imagededup/engine"
	"imagededup/logging"
)

// ProgressTracker is an engine.Reporter that drives a progress bar and logs
// per-image outcomes.
type ProgressTracker struct {
	bar *progressbar.ProgressBar
	log *logging.Logger

	mu        sync.Mutex
	processed int
	errors    int
	cacheHits int
}

// NewProgressTracker creates a tracker for total images. A nil out hides
// the bar.
func NewProgressTracker(total int, out io.Writer, log *logging.Logger) *ProgressTracker {
	visible := out != nil
	if out == nil {
		out = io.Discard
	}
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Hashing images"),
		progressbar.OptionSetVisibility(visible),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
	return &ProgressTracker{bar: bar, log: log}
}

func (p *ProgressTracker) ImageHashed(id string, cached bool) {
	p.mu.Lock()
	p.processed++
	if cached {
		p.cacheHits++
	}
	p.mu.Unlock()
	p.log.LogImageProcessed(id, true, nil)
	p.bar.Add(1)
}

func (p *ProgressTracker) ImageFailed(id string, err error) {
	p.mu.Lock()
	p.processed++
	p.errors++
	p.mu.Unlock()
	p.log.LogImageProcessed(id, false, err)
	p.bar.Add(1)
}

func (p *ProgressTracker) CacheFailed(id string, err error) {
	p.log.WithField("path", id).WithError(err).Warn("cannot cache fingerprint")
}

func (p *ProgressTracker) Finished(s engine.Summary) {
	p.bar.Finish()
	p.log.Debugf("Hashing finished: %d hashed (%d from cache), %d failed", s.Hashed, s.CacheHits, s.Failed)
}

// Counts returns processed, failed and cache-hit counts so far.
func (p *ProgressTracker) Counts() (processed, errors, cacheHits int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.processed, p.errors, p.cacheHits
}

// PrintStartupInfo logs the parameters of a scan before it starts.
func PrintStartupInfo(log *logging.Logger, opts ScanOptions, files int) {
	log.Infof("Selected directory: %s", opts.FolderPath)
	log.Infof("Finding duplicates with threshold: %d", opts.Threshold)
	log.Infof("Total number of input images: %d", files)
	if opts.DryRun {
		log.Info("Dry run: no file will be moved")
	}
}

// PrintCompletionStats logs the final report of a scan.
func PrintCompletionStats(log *logging.Logger, report *ScanReport, elapsed time.Duration) {
	res := report.Result
	if res == nil {
		return
	}
	log.Infof("Hashed %d/%d images (%d from cache)", res.Hashed, res.Total, res.CacheHits)
	for _, f := range res.Failures {
		log.WithField("path", f.ID).Warnf("Skipped: %v", f.Err)
	}
	log.Infof("Total number of found duplicates: %d in %d groups", len(res.Removal), len(res.Clusters))
	if n := len(report.Moves.Moved); n > 0 {
		log.Infof("Moved %d duplicates", n)
	}
	if n := len(report.Moves.Missing); n > 0 {
		log.Warnf("%d duplicates were already gone", n)
	}
	for _, err := range report.Moves.Failed {
		log.WithError(err).Error("Move failed")
	}

	log.Infof("Total runtime: %.2f seconds", elapsed.Seconds())
	log.Infof("Seconds per 1000 input files: %.2f", per1000(elapsed, res.Total))
	log.Infof("Seconds per 1000 duplicates: %.2f", per1000(elapsed, len(res.Removal)))
}

func per1000(d time.Duration, n int) float64 {
	if n == 0 {
		return 0
	}
	return d.Seconds() / float64(n) * 1000
}
