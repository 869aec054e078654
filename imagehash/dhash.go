package imagehash

import (
	"fmt"

	"imagededup/fingerprint"
)

// DifferenceHash computes an N*N-bit horizontal gradient hash.
type DifferenceHash struct {
	size int
}

// NewDifferenceHash returns a difference hash over an N x N grid.
func NewDifferenceHash(size int) (*DifferenceHash, error) {
	if size < 2 || size > 16 {
		return nil, fmt.Errorf("invalid hash size %d (must be 2-16)", size)
	}
	return &DifferenceHash{size: size}, nil
}

// Algorithm implements Codec.
func (d *DifferenceHash) Algorithm() Algorithm { return DHash }

// Width implements Codec.
func (d *DifferenceHash) Width() int { return d.size * d.size }

// Compute resizes the image to (N+1) x N by area averaging and sets a bit
// for every horizontal pair whose left sample is darker than the right one.
func (d *DifferenceHash) Compute(img *Image) (fingerprint.Fingerprint, error) {
	if err := validate(img); err != nil {
		return fingerprint.Fingerprint{}, err
	}

	n := d.size
	cols := n + 1
	samples := areaSums(img, cols, n)

	hashBits := make([]bool, 0, n*n)
	for y := 0; y < n; y++ {
		row := samples[y*cols : (y+1)*cols]
		for x := 0; x < n; x++ {
			hashBits = append(hashBits, row[x] < row[x+1])
		}
	}
	return fingerprint.FromBits(hashBits)
}

// span is one source pixel's share of a destination pixel.
type span struct {
	src    int
	weight uint64
}

// spans maps each of dstLen destination cells onto the srcLen source cells
// it overlaps. Both axes are scaled to srcLen*dstLen units so every weight
// is an exact integer.
func spans(srcLen, dstLen int) [][]span {
	out := make([][]span, dstLen)
	for i := 0; i < dstLen; i++ {
		lo := i * srcLen
		hi := (i + 1) * srcLen
		for s := lo / dstLen; s*dstLen < hi; s++ {
			start := max(lo, s*dstLen)
			end := min(hi, (s+1)*dstLen)
			if end > start {
				out[i] = append(out[i], span{src: s, weight: uint64(end - start)})
			}
		}
	}
	return out
}

// areaSums returns the area-weighted pixel sums of a dw x dh resize in
// row-major order. Every destination cell has the same total weight, so
// sums compare exactly like averages without any rounding.
func areaSums(img *Image, dw, dh int) []uint64 {
	g := img.Gray
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	xs := spans(w, dw)
	ys := spans(h, dh)

	out := make([]uint64, dw*dh)
	rowSum := make([]uint64, w)
	for dy := 0; dy < dh; dy++ {
		for i := range rowSum {
			rowSum[i] = 0
		}
		for _, sy := range ys[dy] {
			line := g.Pix[sy.src*g.Stride : sy.src*g.Stride+w]
			for sx, p := range line {
				rowSum[sx] += sy.weight * uint64(p)
			}
		}
		for dx := 0; dx < dw; dx++ {
			var sum uint64
			for _, sx := range xs[dx] {
				sum += sx.weight * rowSum[sx.src]
			}
			out[dy*dw+dx] = sum
		}
	}
	return out
}
