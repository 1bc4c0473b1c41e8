package modes

import "math"

// decodeVelocity implements the TC 19 airborne-velocity decode of
// §4.6: subtypes 1-2 are ground-speed (east/north velocity
// components), subtypes 3-4 are airspeed/heading. Vertical rate is
// common to all subtypes.
func decodeVelocity(me []byte) Payload {
	p := Payload{Kind: PayloadVelocity}
	subtype := me[0] & 0x07
	if subtype < 1 || subtype > 4 {
		return p
	}

	switch subtype {
	case 1, 2:
		ewRaw := getBitsUint16(me, 15, 24)
		nsRaw := getBitsUint16(me, 26, 35)
		// §4.6: raw velocity values of 0 in both axes mean the ground
		// velocity is absent; the vertical rate is still decoded below.
		if ewRaw == 0 && nsRaw == 0 {
			break
		}

		mul := 1 << (subtype - 1)
		ewVel := float64(int(ewRaw)-1) * float64(mul)
		if getBits(me, 14, 14) != 0 {
			ewVel = -ewVel
		}
		nsVel := float64(int(nsRaw)-1) * float64(mul)
		if getBits(me, 25, 25) != 0 {
			nsVel = -nsVel
		}

		speed := math.Sqrt(nsVel*nsVel + ewVel*ewVel)
		heading := math.Atan2(ewVel, nsVel) * 180.0 / math.Pi
		if heading < 0 {
			heading += 360
		}
		p.GroundSpeedKt = speed
		p.HeadingDeg = heading
		p.HasVelocity = speed > 0

	case 3, 4:
		if getBits(me, 14, 14) != 0 {
			p.HeadingDeg = float64(getBitsUint16(me, 15, 24)) * 360.0 / 1024.0
		}
		airspeedRaw := getBitsUint16(me, 26, 35)
		if airspeedRaw != 0 {
			mul := 1 << (subtype - 3)
			p.GroundSpeedKt = float64(int(airspeedRaw)-1) * float64(mul)
			p.HasVelocity = true
		}
	}

	vrRaw := getBitsUint16(me, 38, 46)
	if vrRaw != 0 {
		rate := (int(vrRaw) - 1) * 64
		if getBits(me, 37, 37) != 0 {
			rate = -rate
		}
		p.VerticalRateFpm = rate
		p.HasVerticalRate = true
	}

	return p
}
