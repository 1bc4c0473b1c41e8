package modes

import "time"

// Category enumerates ADS-B emitter categories (TC 1-4); only the raw
// value is kept, decoding it to a human label is a downstream concern.
type Category uint8

// Payload is a tagged union over the kinds of information a parsed
// message can carry (§3 Parsed message). Only the fields relevant to
// the frame's DF/TC are populated.
type Payload struct {
	Kind PayloadKind

	// Identification (TC 1-4)
	Callsign string
	Category Category

	// Position, airborne or surface (TC 5-18, 20-22)
	Surface    bool
	OddFrame   bool // F bit: true = odd, false = even
	CPRLat     uint32
	CPRLon     uint32
	AltitudeFt int
	HasAlt     bool

	// Velocity (TC 19)
	GroundSpeedKt float64
	HeadingDeg    float64
	HasVelocity   bool
	VerticalRateFpm int
	HasVerticalRate bool

	// Surveillance (DF0/4/5/16/20/21)
	Squawk    int
	HasSquawk bool
}

// PayloadKind discriminates Payload's tagged union.
type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadIdentification
	PayloadPositionAirborne
	PayloadPositionSurface
	PayloadVelocity
	PayloadGNSSHeight
	PayloadOther
)

// ParsedMessage is the Message Parser's output (§3 Parsed message).
type ParsedMessage struct {
	DF         int
	ICAO       uint32
	TypeCode   int // valid only for DF17/18
	Payload    Payload
	Timestamp  time.Time
	Corrected  bool
}

// df returns the 5-bit downlink format of frame.
func df(frame []byte) int {
	return int(frame[0] >> 3)
}

// icao extracts the ICAO-24 address from a DF11/17/18 frame, where it
// sits unencoded in bytes 1-3.
func icao(frame []byte) uint32 {
	return uint32(frame[1])<<16 | uint32(frame[2])<<8 | uint32(frame[3])
}

// Parse dispatches a validated frame to the appropriate decode path
// (§4.6). icaoOverride is used for the surveillance formats whose
// address comes from the CRC overlay recovered during validation,
// rather than from the frame bytes directly.
func Parse(frame []byte, icaoOverride uint32, ts time.Time) ParsedMessage {
	d := df(frame)
	msg := ParsedMessage{DF: d, Timestamp: ts}

	switch d {
	case 17, 18:
		msg.ICAO = icao(frame)
		msg.TypeCode = int(getBits(frame[4:], 1, 5))
		msg.Payload = parseME(frame[4:], msg.TypeCode)
	case 11:
		msg.ICAO = icao(frame)
		msg.Payload = Payload{Kind: PayloadOther}
	case 0, 4, 5, 16, 20, 21:
		msg.ICAO = icaoOverride
		msg.Payload = parseSurveillance(frame, d)
	default:
		msg.ICAO = icaoOverride
		msg.Payload = Payload{Kind: PayloadOther}
	}
	return msg
}

// parseSurveillance handles the DF0/4/5/16/20/21 family (§4.6 table):
// altitude for DF0/4/16/20, squawk for DF5/21.
func parseSurveillance(frame []byte, d int) Payload {
	switch d {
	case 0, 4, 16, 20:
		altCode := (uint16(frame[2]&0x1F) << 8) | uint16(frame[3])
		ft, ok := decodeAC13(altCode)
		return Payload{Kind: PayloadOther, AltitudeFt: ft, HasAlt: ok}
	case 5, 21:
		identity := (uint16(frame[2]&0x1F) << 8) | uint16(frame[3])
		return Payload{Kind: PayloadOther, Squawk: decodeSquawk(identity), HasSquawk: true}
	default:
		return Payload{Kind: PayloadOther}
	}
}

// parseME dispatches the DF17/18 ME field by type code (§4.6).
func parseME(me []byte, tc int) Payload {
	switch {
	case tc >= 1 && tc <= 4:
		return decodeIdentification(me, tc)
	case tc >= 5 && tc <= 8:
		return decodePosition(me, true)
	case tc >= 9 && tc <= 18:
		return decodePosition(me, false)
	case tc == 19:
		return decodeVelocity(me)
	case tc >= 20 && tc <= 22:
		p := decodePosition(me, false)
		p.Kind = PayloadGNSSHeight
		return p
	default:
		return Payload{Kind: PayloadOther}
	}
}
