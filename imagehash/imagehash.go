// Package imagehash turns decoded images into perceptual fingerprints.
//
// The difference hash is implemented here directly so that its output is
// reproducible bit for bit; the average and DCT hashes are thin adapters
// over third-party implementations and are always 64 bits wide.
package imagehash

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"

	"imagededup/fingerprint"
)

// Algorithm selects a hash codec.
type Algorithm int

const (
	// DHash is the difference hash (default).
	DHash Algorithm = iota
	// PHash is the DCT-based perceptual hash.
	PHash
	// AHash is the average hash.
	AHash
	// CNN is a learned embedding. It is recognised so that it can be
	// rejected explicitly.
	CNN
)

// DefaultHashSize is the grid size N of the default 8x8 (64-bit) hash.
const DefaultHashSize = 8

// ErrUnsupportedAlgorithm is returned for algorithms that have no codec.
var ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

// String returns the lowercase name used on the command line.
func (a Algorithm) String() string {
	switch a {
	case DHash:
		return "dhash"
	case PHash:
		return "phash"
	case AHash:
		return "ahash"
	case CNN:
		return "cnn"
	default:
		return "unknown"
	}
}

// ParseAlgorithm parses a case-insensitive algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dhash", "":
		return DHash, nil
	case "phash":
		return PHash, nil
	case "ahash":
		return AHash, nil
	case "cnn":
		return CNN, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
	}
}

// Image is a grayscale raster together with its identity.
type Image struct {
	ID   string
	Gray *image.Gray
}

// NewImage converts img to grayscale. An *image.Gray is used as is.
func NewImage(id string, img image.Image) *Image {
	if img == nil {
		return &Image{ID: id}
	}
	if g, ok := img.(*image.Gray); ok {
		return &Image{ID: id, Gray: g}
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return &Image{ID: id, Gray: g}
}

// Codec computes a fingerprint for an image.
type Codec interface {
	Compute(img *Image) (fingerprint.Fingerprint, error)
	Algorithm() Algorithm
	// Width is the bit width of every fingerprint the codec returns.
	Width() int
}

// New returns the codec for alg. size is the grid size N and only applies
// to DHash; the other codecs are fixed at 64 bits.
func New(alg Algorithm, size int) (Codec, error) {
	switch alg {
	case DHash:
		return NewDifferenceHash(size)
	case PHash:
		return perceptionHash{}, nil
	case AHash:
		return averageHash{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, alg)
	}
}

// DecodeError reports an image whose pixel data could not be used.
type DecodeError struct {
	ID  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.ID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// validate checks that img carries a usable raster.
func validate(img *Image) error {
	if img == nil {
		return &DecodeError{Err: errors.New("nil image")}
	}
	g := img.Gray
	if g == nil {
		return &DecodeError{ID: img.ID, Err: errors.New("no raster")}
	}
	b := g.Bounds()
	if b.Dx() < 1 || b.Dy() < 1 {
		return &DecodeError{ID: img.ID, Err: fmt.Errorf("empty raster %dx%d", b.Dx(), b.Dy())}
	}
	if g.Stride < b.Dx() || len(g.Pix) < (b.Dy()-1)*g.Stride+b.Dx() {
		return &DecodeError{ID: img.ID, Err: errors.New("truncated pixel buffer")}
	}
	return nil
}
