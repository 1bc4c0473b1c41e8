package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeBits turns a 112-bit message (as 14 bytes) into the 224-sample
// PPM magnitude pair stream §4.4 describes: a > b for a 1 bit, b > a
// for a 0 bit.
func encodeBits(bits [MaxFrameBytes]byte) []uint16 {
	mag := make([]uint16, 2*MaxFrameBits)
	for bit := 0; bit < MaxFrameBits; bit++ {
		byteIdx := bit / 8
		bitInByte := 7 - uint(bit%8)
		set := bits[byteIdx]&(1<<bitInByte) != 0
		if set {
			mag[2*bit] = 200
			mag[2*bit+1] = 10
		} else {
			mag[2*bit] = 10
			mag[2*bit+1] = 200
		}
	}
	return mag
}

func TestDemodulateRoundTripsBitPattern(t *testing.T) {
	var bits [MaxFrameBytes]byte
	bits[0] = 17 << 3 // DF17
	bits[1] = 0xAB
	bits[13] = 0xFF

	mag := encodeBits(bits)
	f, ok := Demodulate(mag, 0)
	require.True(t, ok)
	assert.Equal(t, bits, f.Bits)
	assert.Equal(t, -1, f.LowConfidenceAt)
}

func TestDemodulateReturnsFalseWhenShort(t *testing.T) {
	mag := make([]uint16, 10)
	_, ok := Demodulate(mag, 0)
	assert.False(t, ok)
}

func TestDemodulateFlagsSingleLowConfidenceBit(t *testing.T) {
	var bits [MaxFrameBytes]byte
	mag := encodeBits(bits)
	// Make bit 5's two halves nearly equal, within the ambiguity band.
	mag[2*5] = 100
	mag[2*5+1] = 100

	f, ok := Demodulate(mag, 0)
	require.True(t, ok)
	assert.Equal(t, 5, f.LowConfidenceAt)
}

func TestDemodulateClearsLowConfidenceWhenMoreThanOneAmbiguous(t *testing.T) {
	var bits [MaxFrameBytes]byte
	mag := encodeBits(bits)
	mag[2*5] = 100
	mag[2*5+1] = 100
	mag[2*9] = 100
	mag[2*9+1] = 100

	f, ok := Demodulate(mag, 0)
	require.True(t, ok)
	assert.Equal(t, -1, f.LowConfidenceAt, "more than one ambiguous bit must not be eligible for correction")
}

func TestRawFrameLenMatchesDF(t *testing.T) {
	for _, df := range []int{0, 4, 5, 11} {
		var f RawFrame
		f.Bits[0] = byte(df << 3)
		assert.Equal(t, ShortFrameBits, f.Len(), "DF %d must be a 56-bit frame", df)
	}
	for _, df := range []int{16, 17, 18, 20, 21} {
		var f RawFrame
		f.Bits[0] = byte(df << 3)
		assert.Equal(t, MaxFrameBits, f.Len(), "DF %d must be a 112-bit frame", df)
	}
}
