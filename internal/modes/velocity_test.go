package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeVelocitySubtype1GroundSpeed(t *testing.T) {
	me := make([]byte, 7)
	me[0] = 1 // subtype 1

	setBitsUint16(me, 15, 24, 101) // east-west velocity raw (100 kt + 1)
	setBit(me, 14, false)          // east
	setBitsUint16(me, 26, 35, 1)   // north-south velocity raw (0 kt + 1)
	setBit(me, 25, false)          // north

	p := decodeVelocity(me)
	require.Equal(t, PayloadVelocity, p.Kind)
	assert.True(t, p.HasVelocity)
	assert.InDelta(t, 100.0, p.GroundSpeedKt, 0.5)
}

func TestDecodeVelocityAbsentWhenBothZero(t *testing.T) {
	me := make([]byte, 7)
	me[0] = 1
	p := decodeVelocity(me)
	assert.False(t, p.HasVelocity)
}

func TestDecodeVelocityVerticalRate(t *testing.T) {
	me := make([]byte, 7)
	me[0] = 1
	setBitsUint16(me, 38, 46, 11) // (11-1)*64 = 640 fpm
	setBit(me, 37, true)          // descending

	p := decodeVelocity(me)
	require.True(t, p.HasVerticalRate)
	assert.Equal(t, -640, p.VerticalRateFpm)
}

func TestDecodeVelocityUnknownSubtype(t *testing.T) {
	me := make([]byte, 7)
	me[0] = 0 // subtype 0
	p := decodeVelocity(me)
	assert.Equal(t, PayloadVelocity, p.Kind)
	assert.False(t, p.HasVelocity)
	assert.False(t, p.HasVerticalRate)
}

func setBit(data []byte, pos int, v bool) {
	i := pos - 1
	if v {
		data[i/8] |= 1 << uint(7-i%8)
	} else {
		data[i/8] &^= 1 << uint(7-i%8)
	}
}

func setBitsUint16(data []byte, first, last int, val uint16) {
	n := last - first + 1
	for i := 0; i < n; i++ {
		bit := (val >> uint(n-1-i)) & 1
		setBit(data, first+i, bit != 0)
	}
}
