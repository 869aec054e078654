package scanner

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagededup/database"
	"imagededup/engine"
	"imagededup/imagehash"
)

func TestFindSimilarImages(t *testing.T) {
	root := t.TempDir()
	rising := gradientJPEG(t, true)
	put(t, filepath.Join(root, "a.jpg"), rising)
	put(t, filepath.Join(root, "b.jpg"), rising)
	put(t, filepath.Join(root, "c.jpg"), gradientJPEG(t, false))

	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	defer db.Close()
	codec, err := imagehash.NewDifferenceHash(imagehash.DefaultHashSize)
	require.NoError(t, err)
	cache := database.NewCache(db, codec.Algorithm().String(), codec.Width())

	// First run fills the cache, second run is served from it.
	for _, wantHits := range []int{0, 3} {
		report, err := FindAndMoveDuplicates(context.Background(), ScanOptions{
			FolderPath:    root,
			Threshold:     10,
			DryRun:        true,
			EngineOptions: []engine.Option{engine.WithCodec(codec), engine.WithCache(cache)},
		})
		require.NoError(t, err)
		assert.Equal(t, wantHits, report.Result.CacheHits)
	}

	matches, err := FindSimilarImages(cache, SearchOptions{
		QueryPath: filepath.Join(root, "a.jpg"),
		Threshold: 10,
		Codec:     codec,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(root, "b.jpg"), matches[0].Path)
	assert.Equal(t, 0, matches[0].Distance)
	assert.Equal(t, 1.0, matches[0].Similarity)

	matches, err = FindSimilarImages(cache, SearchOptions{
		QueryPath: filepath.Join(root, "c.jpg"),
		Threshold: 64,
		Prefix:    filepath.Join(root, "a"),
		Codec:     codec,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, filepath.Join(root, "a.jpg"), matches[0].Path)
	assert.Equal(t, 64, matches[0].Distance)
	assert.Equal(t, 0.0, matches[0].Similarity)

	_, err = FindSimilarImages(cache, SearchOptions{QueryPath: filepath.Join(root, "a.jpg"), Threshold: 99, Codec: codec})
	assert.Error(t, err)
	_, err = FindSimilarImages(cache, SearchOptions{QueryPath: filepath.Join(root, "missing.jpg"), Threshold: 1, Codec: codec})
	assert.Error(t, err)
}
