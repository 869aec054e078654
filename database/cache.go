package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"

	"imagededup/fingerprint"
	"imagededup/imageprocessor"
	"imagededup/types"
)

// Cache keeps fingerprints of files between runs. A cached fingerprint is
// reused while the file's size and modification time are unchanged, or,
// when only the time changed, while its content digest still matches.
type Cache struct {
	db        *sql.DB
	algorithm string
	hashBits  int
}

// NewCache binds a cache to one algorithm and fingerprint width.
func NewCache(db *sql.DB, algorithm string, hashBits int) *Cache {
	return &Cache{db: db, algorithm: algorithm, hashBits: hashBits}
}

// Lookup returns the cached fingerprint of path if it is still valid.
// Any error is treated as a miss.
func (c *Cache) Lookup(path string) (fingerprint.Fingerprint, bool) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fingerprint.Fingerprint{}, false
	}
	info, err := GetImageInfo(c.db, path, c.algorithm, c.hashBits)
	if err != nil || info.Size != fileInfo.Size() {
		return fingerprint.Fingerprint{}, false
	}
	fp, err := fingerprint.Parse(info.Fingerprint, c.hashBits)
	if err != nil {
		return fingerprint.Fingerprint{}, false
	}

	storedTime, err := time.Parse(time.RFC3339Nano, info.ModifiedAt)
	if err == nil && storedTime.Equal(fileInfo.ModTime()) {
		return fp, true
	}

	// Touched but maybe not changed.
	digest, err := fileDigest(path)
	if err != nil || info.Digest == "" || digest != info.Digest {
		return fingerprint.Fingerprint{}, false
	}
	_ = UpdateModifiedAt(c.db, path, fileInfo.ModTime().Format(time.RFC3339Nano))
	return fp, true
}

// Store records the fingerprint of path.
func (c *Cache) Store(path string, fp fingerprint.Fingerprint) error {
	if fp.Width() != c.hashBits {
		return fmt.Errorf("fingerprint of %s has %d bits, cache holds %d", path, fp.Width(), c.hashBits)
	}
	fileInfo, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot stat file %s: %w", path, err)
	}
	digest, err := fileDigest(path)
	if err != nil {
		return err
	}
	return StoreImageInfo(c.db, types.ImageInfo{
		Path:        path,
		Algorithm:   c.algorithm,
		HashBits:    c.hashBits,
		Format:      string(imageprocessor.GetFileFormat(path)),
		ModifiedAt:  fileInfo.ModTime().Format(time.RFC3339Nano),
		Size:        fileInfo.Size(),
		Digest:      digest,
		Fingerprint: fp.String(),
	})
}

// Fingerprints loads every cached fingerprint under prefix.
func (c *Cache) Fingerprints(prefix string) (map[string]fingerprint.Fingerprint, error) {
	rows, err := QueryFingerprints(c.db, c.algorithm, c.hashBits, prefix)
	if err != nil {
		return nil, err
	}
	out := make(map[string]fingerprint.Fingerprint, len(rows))
	var errs []error
	for _, r := range rows {
		fp, err := fingerprint.Parse(r.Fingerprint, c.hashBits)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.Path, err))
			continue
		}
		out[r.Path] = fp
	}
	return out, errors.Join(errs...)
}

func fileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxhash.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}

// Forget drops every cached row of the given paths.
func (c *Cache) Forget(paths []string) error {
	return DeleteImages(c.db, paths)
}
