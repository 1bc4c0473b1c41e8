package modes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSquawk(t *testing.T) {
	// 7700: A=7, B=7, C=0, D=0. A's three bits are identity bits
	// 7/9/11, B's are bits 1/3/5 -- setting all six gives 0xAAA.
	assert.Equal(t, 7700, decodeSquawk(0x0AAA))
}

func TestDecodeSquawkZero(t *testing.T) {
	assert.Equal(t, 0, decodeSquawk(0))
}

func TestDecodeSquawk1200(t *testing.T) {
	// 1200 (common US VFR code): A=1, B=2, C=0, D=0.
	// A=1 -> only A1 set (identity bit 11). B=2 -> only B2 set (bit 3).
	assert.Equal(t, 1200, decodeSquawk(0x0808))
}
