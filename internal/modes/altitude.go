package modes

// decodeAC13 decodes the 13-bit altitude field carried by DF4/16/20
// surveillance replies. decodeAC12 decodes the 12-bit AC field carried
// by DF17/18 airborne-position ME fields (§4.6 edge-case policy). The
// AC13 field carries an extra M bit (0x40); decodeAC13 reports M=1
// (metric altitude) as unknown and otherwise drops the M bit to form the
// AC12 layout, so both share the same Q-bit dispatch.
func decodeAC13(code uint16) (ft int, ok bool) {
	if code&0x40 != 0 {
		return 0, false
	}
	return decodeAC12(((code & 0x1F80) >> 1) | (code & 0x003F))
}

// decodeAC12 implements the AC12 altitude decode of §4.6: Q-bit=1 means
// 25-ft increments via `25n - 1000`; Q-bit=0 means Gillham/Mode-C
// 100-ft encoding, which yields "unknown" rather than zero when it
// cannot be decoded.
func decodeAC12(code uint16) (ft int, ok bool) {
	if code == 0 {
		return 0, false
	}

	qBit := code&0x10 != 0
	if qBit {
		n := ((code & 0x0FE0) >> 1) | (code & 0x000F)
		return int(n)*25 - 1000, true
	}

	return decodeGillham(code)
}

// decodeGillham decodes the Mode-C Gillham-coded 13-bit field (M=0
// inserted at bit 6) into 100-ft units. Returns ok=false when the code
// does not correspond to a valid Gillham value (§4.6: "altitude is
// unknown, not zero").
func decodeGillham(code uint16) (ft int, ok bool) {
	n13 := ((code & 0x0FC0) << 1) | (code & 0x003F)
	if n13 == 0 {
		return 0, false
	}

	hundreds := int((n13 >> 8) & 0x07)
	fiveHundreds := int((n13 >> 4) & 0x0F)
	altitude := (fiveHundreds*5 + hundreds) * 100

	if altitude < -2000 || altitude > 60000 {
		return 0, false
	}
	return altitude, true
}
