package imagehash

import (
	"fmt"
	"image"

	"github.com/artyom/phash"
	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"

	"imagededup/fingerprint"
)

// perceptionHash is the 64-bit DCT hash from github.com/artyom/phash.
type perceptionHash struct{}

func (perceptionHash) Algorithm() Algorithm { return PHash }

func (perceptionHash) Width() int { return 64 }

func (perceptionHash) Compute(img *Image) (fingerprint.Fingerprint, error) {
	if err := validate(img); err != nil {
		return fingerprint.Fingerprint{}, err
	}
	x, err := phash.Get(img.Gray, func(src image.Image, w, h int) image.Image {
		return imaging.Resize(src, w, h, imaging.Lanczos)
	})
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("failed to compute pHash for %s: %w", img.ID, err)
	}
	return fingerprint.FromUint64(x), nil
}

// averageHash is the 64-bit mean-threshold hash from goimagehash.
type averageHash struct{}

func (averageHash) Algorithm() Algorithm { return AHash }

func (averageHash) Width() int { return 64 }

func (averageHash) Compute(img *Image) (fingerprint.Fingerprint, error) {
	if err := validate(img); err != nil {
		return fingerprint.Fingerprint{}, err
	}
	hash, err := goimagehash.AverageHash(img.Gray)
	if err != nil {
		return fingerprint.Fingerprint{}, fmt.Errorf("failed to compute aHash for %s: %w", img.ID, err)
	}
	return fingerprint.FromUint64(hash.GetHash()), nil
}
