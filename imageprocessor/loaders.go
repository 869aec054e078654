// Package imageprocessor loads image files from disk into grayscale rasters
// ready for hashing.
package imageprocessor

import (
	"fmt"
	"os"

	"imagededup/imagehash"
)

// ImageLoader interface defines methods for image loading
type ImageLoader interface {
	// CanLoad determines if this loader can handle the given file
	CanLoad(path string) bool

	// LoadImage decodes the file at path. Failures are *imagehash.DecodeError.
	LoadImage(path string) (*imagehash.Image, error)
}

// BaseImageLoader provides common functionality for all image loaders
type BaseImageLoader struct {
	// Formats this loader can handle
	SupportedFormats []FormatType
}

// CanLoad checks if this loader supports the file's format
func (l *BaseImageLoader) CanLoad(path string) bool {
	format := GetFileFormat(path)
	for _, supported := range l.SupportedFormats {
		if format == supported {
			return fileExists(path)
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func newImageLoadError(path string, format string, args ...any) error {
	return &imagehash.DecodeError{ID: path, Err: fmt.Errorf(format, args...)}
}
