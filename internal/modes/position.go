package modes

// decodePosition extracts the CPR-encoded lat/lon field, the odd/even
// F bit, and (for airborne position) the AC12 altitude from a TC 5-18
// or TC 20-22 ME field (§4.6). CPR values are copied byte-exactly; no
// smoothing happens at this stage (§4.6 edge-case policy) — the global
// decode lives in the tracker.
func decodePosition(me []byte, surface bool) Payload {
	p := Payload{Kind: PayloadPositionAirborne, Surface: surface}
	if surface {
		p.Kind = PayloadPositionSurface
	}

	if len(me) < 7 {
		return p
	}

	if !surface {
		altCode := (uint16(me[1]) << 4) | (uint16(me[2]) >> 4)
		ft, ok := decodeAC12(altCode)
		p.AltitudeFt = ft
		p.HasAlt = ok
	}

	p.OddFrame = (me[2]>>2)&0x01 != 0
	p.CPRLat = ((uint32(me[2]&0x03) << 15) | (uint32(me[3]) << 7) | (uint32(me[4]) >> 1)) & 0x1FFFF
	p.CPRLon = ((uint32(me[4]&0x01) << 16) | (uint32(me[5]) << 8) | uint32(me[6])) & 0x1FFFF

	return p
}
