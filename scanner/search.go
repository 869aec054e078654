package scanner

import (
	"fmt"
	"path/filepath"

	"imagededup/database"
	"imagededup/imagehash"
	"imagededup/imageprocessor"
	"imagededup/index"
	"imagededup/logging"
	"imagededup/types"
)

// SearchOptions defines the options for a search against the cache.
type SearchOptions struct {
	QueryPath string
	Threshold int
	// Prefix restricts candidates to cached paths starting with it.
	Prefix   string
	Codec    imagehash.Codec
	Registry *imageprocessor.ImageLoaderRegistry
	Logger   *logging.Logger
}

// FindSimilarImages hashes the query image and returns the cached images
// within the threshold, closest first. The query itself is left out.
func FindSimilarImages(cache *database.Cache, opts SearchOptions) ([]types.ImageMatch, error) {
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}
	registry := opts.Registry
	if registry == nil {
		registry = imageprocessor.NewImageLoaderRegistry()
	}
	width := opts.Codec.Width()
	if err := index.ValidateThreshold(opts.Threshold, width); err != nil {
		return nil, err
	}

	img, err := registry.LoadImage(opts.QueryPath)
	if err != nil {
		return nil, err
	}
	query, err := opts.Codec.Compute(img)
	if err != nil {
		return nil, err
	}

	stored, err := cache.Fingerprints(opts.Prefix)
	if err != nil {
		// Unparseable rows are skipped.
		log.WithError(err).Warn("Some cached fingerprints could not be read")
	}
	idx, err := index.New(width, index.BandedFor(opts.Threshold, width))
	if err != nil {
		return nil, err
	}
	for path, fp := range stored {
		if err := idx.Insert(path, fp); err != nil {
			return nil, fmt.Errorf("cannot index %s: %w", path, err)
		}
	}
	log.Debugf("Searching %d cached images", idx.Len())

	neighbors, err := idx.QueryNeighbors(query, opts.Threshold)
	if err != nil {
		return nil, err
	}
	self := filepath.Clean(opts.QueryPath)
	matches := make([]types.ImageMatch, 0, len(neighbors))
	for _, n := range neighbors {
		if filepath.Clean(n.ID) == self {
			continue
		}
		matches = append(matches, types.ImageMatch{
			Path:       n.ID,
			Distance:   n.Distance,
			Similarity: 1 - float64(n.Distance)/float64(width),
		})
	}
	return matches, nil
}
