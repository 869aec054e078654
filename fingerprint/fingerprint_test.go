package fingerprint

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomFingerprint(t *testing.T, r *rand.Rand, width int) Fingerprint {
	t.Helper()
	b := make([]bool, width)
	for i := range b {
		b[i] = r.Intn(2) == 1
	}
	f, err := FromBits(b)
	require.NoError(t, err)
	return f
}

func TestDistance(t *testing.T) {
	tests := []struct {
		name     string
		a, b     uint64
		expected int
	}{
		{"identical", 0xFFFFFFFFFFFFFFFF, 0xFFFFFFFFFFFFFFFF, 0},
		{"one bit different", 0xFFFFFFFFFFFFFFFE, 0xFFFFFFFFFFFFFFFF, 1},
		{"completely different", 0, 0xFFFFFFFFFFFFFFFF, 64},
		{"half different", 0x00000000FFFFFFFF, 0xFFFFFFFFFFFFFFFF, 32},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Distance(FromUint64(tt.a), FromUint64(tt.b)))
		})
	}
}

func TestDistanceBounds(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for _, width := range []int{4, 9, 64, 100, 256} {
		for i := 0; i < 50; i++ {
			a := randomFingerprint(t, r, width)
			b := randomFingerprint(t, r, width)
			d := Distance(a, b)
			assert.GreaterOrEqual(t, d, 0)
			assert.LessOrEqual(t, d, width)
			assert.Equal(t, d, Distance(b, a))
			assert.Zero(t, Distance(a, a))
		}
	}
}

func TestDistanceWidthMismatch(t *testing.T) {
	a, err := New(64)
	require.NoError(t, err)
	b, err := New(16)
	require.NoError(t, err)

	_, err = DistanceChecked(a, b)
	assert.ErrorIs(t, err, ErrWidthMismatch)
	assert.Panics(t, func() { Distance(a, b) })
}

func TestFromBitsOrdering(t *testing.T) {
	b := make([]bool, 64)
	b[0] = true
	b[63] = true
	f, err := FromBits(b)
	require.NoError(t, err)

	assert.Equal(t, uint64(0x8000000000000001), f.Uint64())
	assert.True(t, f.Bit(0))
	assert.False(t, f.Bit(1))
	assert.True(t, f.Bit(63))
	assert.False(t, f.Bit(64))
}

func TestStringParseRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(11))
	for _, width := range []int{4, 9, 64, 144, 256} {
		f := randomFingerprint(t, r, width)
		s := f.String()
		assert.Len(t, s, (width+3)/4)

		back, err := Parse(s, width)
		require.NoError(t, err)
		assert.Equal(t, f, back)
	}
}

func TestString64(t *testing.T) {
	assert.Equal(t, "deadbeef12345678", FromUint64(0xDEADBEEF12345678).String())
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("abc", 64)
	assert.Error(t, err)

	_, err = Parse("zzzzzzzzzzzzzzzz", 64)
	assert.Error(t, err)

	// width 9 uses three digits; the last three bits are padding.
	_, err = Parse("fff", 9)
	assert.Error(t, err)

	_, err = Parse("", 0)
	assert.Error(t, err)
}

func TestRangeMask(t *testing.T) {
	m := RangeMask(64, 0, 8)
	assert.Equal(t, uint64(0xFF00000000000000), m.Uint64())

	f := FromUint64(0x1234567890ABCDEF)
	assert.Equal(t, uint64(0x0000000090ABCDEF), f.And(RangeMask(64, 32, 64)).Uint64())
}
