package vecmath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		vec  []float32
	}{
		{"empty", []float32{}},
		{"single", []float32{1.5}},
		{"negative", []float32{-0.25, 0.75, -1.0}},
		{"special", []float32{0, float32(math.Inf(1)), float32(math.Inf(-1)), math.SmallestNonzeroFloat32}},
		{"typical embedding", []float32{0.123, -0.456, 0.789, 0.001, -0.999}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed := Pack(tt.vec)
			assert.Len(t, packed, len(tt.vec)*FloatSize)

			unpacked, err := Unpack(packed)
			require.NoError(t, err)
			require.Len(t, unpacked, len(tt.vec))

			// Bit-for-bit equality
			for i := range tt.vec {
				assert.Equal(t, math.Float32bits(tt.vec[i]), math.Float32bits(unpacked[i]))
			}
		})
	}
}

func TestUnpackInvalidLength(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7} {
		_, err := Unpack(make([]byte, n))
		assert.ErrorIs(t, err, ErrInvalidFormat)
	}
}

func TestReadFloatLE(t *testing.T) {
	vec := []float32{3.14, -2.5, 0.0, 1e-7}
	packed := Pack(vec)

	for i, want := range vec {
		got := ReadFloatLE(packed, i*FloatSize)
		assert.Equal(t, math.Float32bits(want), math.Float32bits(got))
	}
}

func TestPackLittleEndian(t *testing.T) {
	// 1.0 is 0x3F800000; little-endian layout is 00 00 80 3F.
	packed := Pack([]float32{1.0})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, packed)
}
