package imagehash

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imagededup/fingerprint"
)

// blockImage paints a (cols x rows) grid of cells, each cell x cell pixels,
// with the given levels.
func blockImage(levels [][]uint8, cell int) *image.Gray {
	rows, cols := len(levels), len(levels[0])
	img := image.NewGray(image.Rect(0, 0, cols*cell, rows*cell))
	for y := 0; y < rows*cell; y++ {
		for x := 0; x < cols*cell; x++ {
			img.SetGray(x, y, color.Gray{Y: levels[y/cell][x/cell]})
		}
	}
	return img
}

// randomLevels returns a 9x8 grid where horizontal neighbours differ by at
// least 20 levels.
func randomLevels(seed int64) [][]uint8 {
	r := rand.New(rand.NewSource(seed))
	levels := make([][]uint8, 8)
	for y := range levels {
		levels[y] = make([]uint8, 9)
		for x := range levels[y] {
			for {
				v := uint8(20 + r.Intn(216))
				if x == 0 || absDiff(v, levels[y][x-1]) >= 20 {
					levels[y][x] = v
					break
				}
			}
		}
	}
	return levels
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

func createGradientImage(width, height int, rising bool) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := x * 255 / width
			if !rising {
				v = 255 - v
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v)})
		}
	}
	return img
}

func mustDHash(t *testing.T) *DifferenceHash {
	t.Helper()
	d, err := NewDifferenceHash(DefaultHashSize)
	require.NoError(t, err)
	return d
}

func TestDifferenceHash_Gradients(t *testing.T) {
	d := mustDHash(t)

	rising, err := d.Compute(&Image{ID: "rising", Gray: createGradientImage(90, 80, true)})
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), rising.Uint64())

	falling, err := d.Compute(&Image{ID: "falling", Gray: createGradientImage(90, 80, false)})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), falling.Uint64())

	flat := image.NewGray(image.Rect(0, 0, 50, 50))
	zero, err := d.Compute(&Image{ID: "flat", Gray: flat})
	require.NoError(t, err)
	assert.Equal(t, uint64(0), zero.Uint64())
	assert.Equal(t, 64, zero.Width())
}

func TestDifferenceHash_ExactBits(t *testing.T) {
	d := mustDHash(t)
	levels := randomLevels(3)

	var want []bool
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			want = append(want, levels[y][x] < levels[y][x+1])
		}
	}
	expected, err := fingerprint.FromBits(want)
	require.NoError(t, err)

	// 9x8 needs no resampling; 2x and 7x blow-ups must average back to the
	// same samples.
	for _, cell := range []int{1, 2, 7} {
		got, err := d.Compute(&Image{ID: "blocks", Gray: blockImage(levels, cell)})
		require.NoError(t, err)
		assert.Equal(t, expected, got, "cell size %d", cell)
	}
}

func TestDifferenceHash_Deterministic(t *testing.T) {
	d := mustDHash(t)
	src := blockImage(randomLevels(5), 13)

	first, err := d.Compute(&Image{ID: "a", Gray: src})
	require.NoError(t, err)

	clone := image.NewGray(src.Bounds())
	copy(clone.Pix, src.Pix)
	for i := 0; i < 5; i++ {
		again, err := d.Compute(&Image{ID: "b", Gray: clone})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDifferenceHash_SubImage(t *testing.T) {
	d := mustDHash(t)
	levels := randomLevels(9)
	inner := blockImage(levels, 4)

	// Embed the image in a larger canvas and hash the sub-image view.
	b := inner.Bounds()
	canvas := image.NewGray(image.Rect(0, 0, b.Dx()+20, b.Dy()+20))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			canvas.SetGray(x+10, y+10, inner.GrayAt(x, y))
		}
	}
	view := canvas.SubImage(image.Rect(10, 10, 10+b.Dx(), 10+b.Dy())).(*image.Gray)

	want, err := d.Compute(&Image{ID: "inner", Gray: inner})
	require.NoError(t, err)
	got, err := d.Compute(&Image{ID: "view", Gray: view})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDifferenceHash_RobustToRecompression(t *testing.T) {
	d := mustDHash(t)
	src := blockImage(randomLevels(21), 30)

	original, err := d.Compute(&Image{ID: "orig", Gray: src})
	require.NoError(t, err)

	for _, quality := range []int{95, 75, 50} {
		var buf bytes.Buffer
		require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}))
		decoded, err := jpeg.Decode(&buf)
		require.NoError(t, err)

		h, err := d.Compute(NewImage("recompressed", decoded))
		require.NoError(t, err)
		assert.LessOrEqual(t, fingerprint.Distance(original, h), 5, "quality %d", quality)
	}
}

func TestDifferenceHash_SmallSizes(t *testing.T) {
	for _, size := range []int{2, 4, 16} {
		d, err := NewDifferenceHash(size)
		require.NoError(t, err)
		h, err := d.Compute(&Image{ID: "g", Gray: createGradientImage(64, 64, true)})
		require.NoError(t, err)
		assert.Equal(t, size*size, h.Width())
		assert.Equal(t, d.Width(), h.Width())
	}

	_, err := NewDifferenceHash(1)
	assert.Error(t, err)
	_, err = NewDifferenceHash(17)
	assert.Error(t, err)
}

func TestDifferenceHash_DecodeErrors(t *testing.T) {
	d := mustDHash(t)
	tests := []struct {
		name string
		img  *Image
	}{
		{"nil image", nil},
		{"nil raster", &Image{ID: "x"}},
		{"empty raster", &Image{ID: "x", Gray: image.NewGray(image.Rect(0, 0, 0, 10))}},
		{"truncated", &Image{ID: "x", Gray: &image.Gray{Pix: make([]uint8, 10), Stride: 10, Rect: image.Rect(0, 0, 10, 10)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Compute(tt.img)
			var de *DecodeError
			require.ErrorAs(t, err, &de)
		})
	}
}

func TestNewImage_ConvertsColor(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(5, 5, 15, 13))
	for y := 5; y < 13; y++ {
		for x := 5; x < 15; x++ {
			rgba.Set(x, y, color.RGBA{R: 200, G: 200, B: 200, A: 255})
		}
	}
	img := NewImage("rgba", rgba)
	require.NotNil(t, img.Gray)
	assert.Equal(t, image.Rect(0, 0, 10, 8), img.Gray.Bounds())
	assert.Equal(t, uint8(200), img.Gray.GrayAt(3, 3).Y)

	g := image.NewGray(image.Rect(0, 0, 2, 2))
	assert.Same(t, g, NewImage("gray", g).Gray)
}

func TestLibraryCodecs(t *testing.T) {
	for _, alg := range []Algorithm{PHash, AHash} {
		t.Run(alg.String(), func(t *testing.T) {
			codec, err := New(alg, DefaultHashSize)
			require.NoError(t, err)
			assert.Equal(t, alg, codec.Algorithm())
			assert.Equal(t, 64, codec.Width())

			img := &Image{ID: "g", Gray: createGradientImage(100, 100, true)}
			h1, err := codec.Compute(img)
			require.NoError(t, err)
			h2, err := codec.Compute(img)
			require.NoError(t, err)
			assert.Equal(t, h1, h2)
			assert.Equal(t, 64, h1.Width())

			_, err = codec.Compute(&Image{ID: "empty"})
			var de *DecodeError
			assert.ErrorAs(t, err, &de)
		})
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in   string
		want Algorithm
	}{
		{"dhash", DHash},
		{"DHash", DHash},
		{"", DHash},
		{"phash", PHash},
		{"AHASH", AHash},
		{"cnn", CNN},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAlgorithm("whash")
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

func TestNew_RejectsCNN(t *testing.T) {
	_, err := New(CNN, DefaultHashSize)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)

	codec, err := New(DHash, 8)
	require.NoError(t, err)
	assert.Equal(t, DHash, codec.Algorithm())
	assert.Equal(t, 64, codec.Width())
}
