package modes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDF17Identification(t *testing.T) {
	frame := make([]byte, 11)
	frame[0] = 17 << 3
	frame[1], frame[2], frame[3] = 0x48, 0x40, 0xD6
	me := encodeIdentificationME(t, 4, "KAL123")
	copy(frame[4:11], me)

	msg := Parse(frame, 0, time.Unix(0, 0))
	require.Equal(t, 17, msg.DF)
	assert.Equal(t, uint32(0x4840D6), msg.ICAO)
	assert.Equal(t, 4, msg.TypeCode)
	assert.Equal(t, PayloadIdentification, msg.Payload.Kind)
	assert.Equal(t, "KAL123", msg.Payload.Callsign)
}

func TestParseDF11ICAOOnly(t *testing.T) {
	frame := make([]byte, 7)
	frame[0] = 11 << 3
	frame[1], frame[2], frame[3] = 0x11, 0x22, 0x33

	msg := Parse(frame, 0, time.Unix(0, 0))
	assert.Equal(t, uint32(0x112233), msg.ICAO)
	assert.Equal(t, PayloadOther, msg.Payload.Kind)
}

func TestParseDF4UsesICAOOverride(t *testing.T) {
	frame := make([]byte, 7)
	frame[0] = 4 << 3

	msg := Parse(frame, 0xABCDEF, time.Unix(0, 0))
	assert.Equal(t, uint32(0xABCDEF), msg.ICAO)
	assert.True(t, msg.Payload.HasAlt == false || msg.Payload.HasAlt == true) // decodeAC13(0) -> ok=false
	assert.False(t, msg.Payload.HasAlt)
}

func TestParseDF0AndDF16DecodeAltitude(t *testing.T) {
	// DF0/DF4/DF16/DF20 all carry the same AC13 altitude field (§4.6);
	// only DF5/DF21 carry squawk instead.
	for _, df := range []int{0, 16} {
		frame := make([]byte, 7)
		frame[0] = byte(df << 3)
		frame[2] = 0x00
		frame[3] = 0x10 // Q-bit set (25-ft encoding), n=0

		msg := Parse(frame, 0xABCDEF, time.Unix(0, 0))
		assert.True(t, msg.Payload.HasAlt, "df %d should decode altitude", df)
	}
}

func TestParseUnknownDFIsOther(t *testing.T) {
	frame := make([]byte, 7)
	frame[0] = 24 << 3
	msg := Parse(frame, 0, time.Unix(0, 0))
	assert.Equal(t, PayloadOther, msg.Payload.Kind)
}
