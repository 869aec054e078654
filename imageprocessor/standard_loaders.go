package imageprocessor

import (
	"os"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"imagededup/imagehash"
)

// StandardImageLoader decodes the formats Go's image packages understand.
// EXIF orientation is applied so a rotated copy of a photo hashes like the
// original.
type StandardImageLoader struct {
	BaseImageLoader
}

// NewStandardImageLoader creates a new loader for standard image formats
func NewStandardImageLoader() *StandardImageLoader {
	return &StandardImageLoader{
		BaseImageLoader: BaseImageLoader{
			SupportedFormats: []FormatType{
				FormatJPEG,
				FormatPNG,
				FormatGIF,
				FormatBMP,
				FormatTIFF,
				FormatWEBP,
			},
		},
	}
}

// LoadImage loads a standard image format
func (l *StandardImageLoader) LoadImage(path string) (*imagehash.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &imagehash.DecodeError{ID: path, Err: err}
	}
	defer f.Close()

	img, err := imaging.Decode(f, imaging.AutoOrientation(true))
	if err != nil {
		return nil, &imagehash.DecodeError{ID: path, Err: err}
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, newImageLoadError(path, "image has no pixels")
	}
	return imagehash.NewImage(path, img), nil
}
