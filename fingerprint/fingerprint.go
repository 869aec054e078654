// Package fingerprint defines the fixed-width bit vector produced by the
// perceptual hash codecs and the Hamming distance between two of them.
package fingerprint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

// MaxWidth is the largest supported fingerprint width in bits.
const MaxWidth = 256

const wordCount = MaxWidth / 64

// ErrWidthMismatch is returned when two fingerprints of different widths are
// compared or mixed.
var ErrWidthMismatch = errors.New("fingerprint width mismatch")

// Fingerprint is a comparable bit vector of a fixed width. Bit 0 is the most
// significant bit of the first word, so a 64-bit fingerprint reads the same
// as its Uint64 value.
type Fingerprint struct {
	words [wordCount]uint64
	width uint16
}

// New returns an all-zero fingerprint of the given width.
func New(width int) (Fingerprint, error) {
	if width <= 0 || width > MaxWidth {
		return Fingerprint{}, fmt.Errorf("invalid fingerprint width %d (must be 1-%d)", width, MaxWidth)
	}
	return Fingerprint{width: uint16(width)}, nil
}

// FromBits builds a fingerprint whose width is len(b); b[i] is bit i.
func FromBits(b []bool) (Fingerprint, error) {
	f, err := New(len(b))
	if err != nil {
		return f, err
	}
	for i, set := range b {
		if set {
			f.words[i/64] |= 1 << (63 - uint(i%64))
		}
	}
	return f, nil
}

// FromUint64 wraps a 64-bit hash value such as the ones returned by
// goimagehash or phash.
func FromUint64(v uint64) Fingerprint {
	return Fingerprint{words: [wordCount]uint64{v}, width: 64}
}

// Width returns the number of bits in the fingerprint.
func (f Fingerprint) Width() int { return int(f.width) }

// IsZero reports whether f is the zero value (no width).
func (f Fingerprint) IsZero() bool { return f.width == 0 }

// Bit reports whether bit i is set.
func (f Fingerprint) Bit(i int) bool {
	if i < 0 || i >= int(f.width) {
		return false
	}
	return f.words[i/64]&(1<<(63-uint(i%64))) != 0
}

// Uint64 returns the first 64 bits of the fingerprint.
func (f Fingerprint) Uint64() uint64 { return f.words[0] }

// And returns the bitwise AND of f and mask. The result keeps f's width.
func (f Fingerprint) And(mask Fingerprint) Fingerprint {
	out := Fingerprint{width: f.width}
	for i := range f.words {
		out.words[i] = f.words[i] & mask.words[i]
	}
	return out
}

// RangeMask returns a mask of the given width with bits [lo, hi) set.
func RangeMask(width, lo, hi int) Fingerprint {
	m := Fingerprint{width: uint16(width)}
	for i := lo; i < hi && i < width; i++ {
		m.words[i/64] |= 1 << (63 - uint(i%64))
	}
	return m
}

// Distance returns the Hamming distance between a and b. It panics when the
// widths differ; use DistanceChecked for untrusted input.
func Distance(a, b Fingerprint) int {
	d, err := DistanceChecked(a, b)
	if err != nil {
		panic(err)
	}
	return d
}

// DistanceChecked returns the Hamming distance between a and b, or
// ErrWidthMismatch.
func DistanceChecked(a, b Fingerprint) (int, error) {
	if a.width != b.width {
		return 0, fmt.Errorf("%w: %d != %d", ErrWidthMismatch, a.width, b.width)
	}
	n := 0
	for i := 0; i < wordCount; i++ {
		n += bits.OnesCount64(a.words[i] ^ b.words[i])
	}
	return n, nil
}

// String returns the fingerprint as lowercase hex, ceil(width/4) digits.
func (f Fingerprint) String() string {
	if f.width == 0 {
		return ""
	}
	buf := make([]byte, wordCount*8)
	for i, w := range f.words {
		for j := 0; j < 8; j++ {
			buf[i*8+j] = byte(w >> (56 - 8*uint(j)))
		}
	}
	s := hex.EncodeToString(buf)
	return s[:(int(f.width)+3)/4]
}

// Parse decodes a hex string produced by String for a fingerprint of the
// given width.
func Parse(s string, width int) (Fingerprint, error) {
	f, err := New(width)
	if err != nil {
		return f, err
	}
	digits := (width + 3) / 4
	if len(s) != digits {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: expected %d hex digits for width %d", s, digits, width)
	}
	padded := strings.ToLower(s) + strings.Repeat("0", wordCount*16-digits)
	raw, err := hex.DecodeString(padded)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: %w", s, err)
	}
	for i := range f.words {
		var w uint64
		for j := 0; j < 8; j++ {
			w = w<<8 | uint64(raw[i*8+j])
		}
		f.words[i] = w
	}
	if f.And(RangeMask(width, 0, width)) != f {
		return Fingerprint{}, fmt.Errorf("fingerprint %q: bits set beyond width %d", s, width)
	}
	return f, nil
}
