package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/automaxprocs/maxprocs"

	"imagededup/config"
	"imagededup/database"
	"imagededup/engine"
	"imagededup/imagehash"
	"imagededup/imageprocessor"
	"imagededup/imageprocessor/opencv"
	"imagededup/logging"
	"imagededup/scanner"
	"imagededup/signalhandler"
)

var (
	cfg = config.Default()

	searchImage  string
	searchPrefix string
	searchLimit  int
)

var rootCmd = &cobra.Command{
	Use:   "imagededup <folder>",
	Short: "Find near-duplicate images and move them aside",
	Long: `Find near-duplicate images in a folder and move them into <folder>/duplicates.

Every image is reduced to a perceptual fingerprint. Two images are duplicates
when their fingerprints differ in at most --threshold bits; duplicates are
grouped transitively.

Example:
  imagededup ./photos
  imagededup ./photos --threshold 5 --keep first --dry-run`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runDedup,
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Find cached images similar to a query image",
	Args:  cobra.NoArgs,
	RunE:  runSearch,
}

var hashCmd = &cobra.Command{
	Use:   "hash FILE...",
	Short: "Print the fingerprint of each file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHash,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.IntVar(&cfg.Threshold, "threshold", cfg.Threshold, "maximum Hamming distance between duplicates (0 to hash width, lower is stricter)")
	pf.StringVar(&cfg.Algorithm, "algorithm", cfg.Algorithm, "hash algorithm: dhash, phash or ahash")
	pf.IntVar(&cfg.HashSize, "hash-size", cfg.HashSize, "dhash grid size N, fingerprints have N*N bits")
	pf.StringVar(&cfg.DBPath, "db", cfg.DBPath, "fingerprint cache database")
	pf.IntVar(&cfg.Workers, "workers", cfg.Workers, "hashing goroutines (0 picks from the CPU count)")
	pf.StringVar(&cfg.LogPath, "logfile", cfg.LogPath, `log file (default "<YYYY-MM-DD>.log", "-" disables)`)
	pf.BoolVar(&cfg.Debug, "debug", cfg.Debug, "log every processed image")
	pf.BoolVar(&cfg.OpenCV, "opencv", cfg.OpenCV, "decode images with OpenCV")

	f := rootCmd.Flags()
	f.StringVar(&cfg.Strategy, "strategy", cfg.Strategy, "index strategy: banded or exhaustive")
	f.StringVar(&cfg.Keep, "keep", cfg.Keep, "which cluster members stay: none or first")
	f.StringSliceVar(&cfg.Extensions, "ext", cfg.Extensions, "file extensions to scan")
	f.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "report duplicates without moving them")
	f.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, "do not read or write the fingerprint cache")

	searchCmd.Flags().StringVar(&searchImage, "image", "", "query image")
	searchCmd.Flags().StringVar(&searchPrefix, "prefix", "", "only match cached paths with this prefix")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "number of matches to print (0 for all)")
	_ = searchCmd.MarkFlagRequired("image")

	rootCmd.AddCommand(searchCmd, hashCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRegistry() *imageprocessor.ImageLoaderRegistry {
	registry := imageprocessor.NewImageLoaderRegistry()
	if cfg.OpenCV {
		opencv.NewLoader().Register(registry)
	}
	return registry
}

func runDedup(cmd *cobra.Command, args []string) error {
	start := time.Now()
	folder, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	cfg.Folder = folder
	if err := cfg.Validate(); err != nil {
		return err
	}
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}

	log, err := logging.SetupLogger(logging.Options{LogPath: cfg.LogPath, Debug: cfg.Debug})
	if err != nil {
		return err
	}
	defer log.Close()

	// Respect container CPU quotas before sizing the worker pools.
	if undo, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.WithError(err).Debug("Cannot adjust GOMAXPROCS")
	} else {
		defer undo()
	}
	if cfg.Workers == 0 {
		cfg.Workers = signalhandler.GetOptimalProcs()
	}
	engineOpts, err := cfg.EngineOptions()
	if err != nil {
		return err
	}

	ctx, stop := signalhandler.SetupHandler(cmd.Context())
	defer stop()

	var cache *database.Cache
	if !cfg.NoCache {
		db, err := database.InitDatabase(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("error initializing database: %w", err)
		}
		defer db.Close()
		cache = database.NewCache(db, codec.Algorithm().String(), codec.Width())
		engineOpts = append(engineOpts, engine.WithCache(cache))
		log.Debugf("Using fingerprint cache %s", cfg.DBPath)
	}

	report, err := scanner.FindAndMoveDuplicates(ctx, scanner.ScanOptions{
		FolderPath:    folder,
		Extensions:    cfg.Extensions,
		Threshold:     cfg.Threshold,
		DryRun:        cfg.DryRun,
		Registry:      newRegistry(),
		Logger:        log,
		Progress:      os.Stderr,
		EngineOptions: engineOpts,
	})
	if errors.Is(err, context.Canceled) {
		log.Warn("Interrupted, no file was moved")
		return err
	}
	if err != nil {
		return err
	}

	if cache != nil && len(report.Moves.Moved) > 0 {
		moved := make([]string, len(report.Moves.Moved))
		for i, m := range report.Moves.Moved {
			moved[i] = m.From
		}
		if err := cache.Forget(moved); err != nil {
			log.WithError(err).Warn("Cannot drop moved files from the cache")
		}
	}

	log.Infof("Duplicate finding and moving completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	start := time.Now()
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		return fmt.Errorf("database %s not found, run a scan first: %w", cfg.DBPath, err)
	}
	db, err := database.OpenDatabase(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	defer db.Close()

	if stats, err := database.GetScanStats(db, searchPrefix); err == nil {
		fmt.Printf("Cache: %s\n", stats)
	}

	query, err := filepath.Abs(searchImage)
	if err != nil {
		return err
	}
	matches, err := scanner.FindSimilarImages(database.NewCache(db, codec.Algorithm().String(), codec.Width()), scanner.SearchOptions{
		QueryPath: query,
		Threshold: cfg.Threshold,
		Prefix:    searchPrefix,
		Codec:     codec,
		Registry:  newRegistry(),
	})
	if err != nil {
		return fmt.Errorf("error finding similar images: %w", err)
	}

	fmt.Println("\nTop Matches:")
	if len(matches) == 0 {
		fmt.Println("No matches found.")
	}
	for i, m := range matches {
		if searchLimit > 0 && i == searchLimit {
			break
		}
		fmt.Printf("%d. Image: %s\n", i+1, m.Path)
		fmt.Printf("   Distance: %d  Similarity: %.4f\n", m.Distance, m.Similarity)
	}
	fmt.Printf("\nTotal search time: %v\n", time.Since(start))
	return nil
}

func runHash(cmd *cobra.Command, args []string) error {
	codec, err := cfg.Codec()
	if err != nil {
		return err
	}
	registry := newRegistry()
	failed := 0
	for _, path := range args {
		if err := printHash(codec, registry, path); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files could not be hashed with %s", failed, len(args), codec.Algorithm())
	}
	return nil
}

func printHash(codec imagehash.Codec, registry *imageprocessor.ImageLoaderRegistry, path string) error {
	img, err := registry.LoadImage(path)
	if err != nil {
		return err
	}
	fp, err := codec.Compute(img)
	if err != nil {
		return err
	}
	fmt.Printf("%s  %s\n", fp, path)
	return nil
}
