// Package scanner finds the images of a folder, runs duplicate detection
// over them and moves the duplicates aside.
package scanner

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"imagededup/engine"
	"imagededup/imageprocessor"
	"imagededup/logging"
)

// FindAndMoveDuplicates scans opts.FolderPath and moves every image in the
// removal set into the duplicates folder.
//
// Per-image failures are logged and reported, not returned. When ctx is
// cancelled the partial report is returned with the context error and
// nothing is moved.
func FindAndMoveDuplicates(ctx context.Context, opts ScanOptions) (*ScanReport, error) {
	start := time.Now()
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	registry := opts.Registry
	if registry == nil {
		registry = imageprocessor.NewImageLoaderRegistry()
	}
	dupDir := opts.DuplicatesDir
	if dupDir == "" {
		dupDir = filepath.Join(opts.FolderPath, DuplicatesDirName)
	}

	files, err := FindImages(opts.FolderPath, opts.Extensions, dupDir, func(path string, err error) {
		log.WithField("path", path).WithError(err).Warn("Error accessing path")
	})
	if err != nil {
		return nil, fmt.Errorf("cannot scan %s: %w", opts.FolderPath, err)
	}
	PrintStartupInfo(log, opts, len(files))

	tracker := NewProgressTracker(len(files), opts.Progress, log)
	engineOpts := append([]engine.Option{}, opts.EngineOptions...)
	eng, err := engine.New(append(engineOpts, engine.WithReporter(tracker))...)
	if err != nil {
		return nil, err
	}

	sources := make([]engine.Source, 0, len(files))
	for _, src := range imageprocessor.FileSources(registry, files) {
		sources = append(sources, src)
	}

	report := &ScanReport{Files: files}
	res, err := eng.Run(ctx, sources, opts.Threshold)
	report.Result = res
	if err != nil {
		if res != nil {
			PrintCompletionStats(log, report, time.Since(start))
		}
		return report, err
	}

	report.Moves, err = MoveDuplicates(dupDir, res.Removal, opts.DryRun)
	PrintCompletionStats(log, report, time.Since(start))
	return report, err
}
