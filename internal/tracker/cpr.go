package tracker

import "math"

// cprMax is 2^17, the resolution of a CPR-encoded lat/lon field.
const cprMax = 131072.0

// CPRFrame is one even or odd CPR-encoded position report (§3 Aircraft
// track: "even-CPR frame", "odd-CPR frame").
type CPRFrame struct {
	Lat, Lon  uint32
	TimeNanos int64
}

// cprModInt is a mod that's always non-negative, as the CPR algorithm
// requires (dump1090-style).
func cprModInt(a, b int) int {
	r := a % b
	if r < 0 {
		r += b
	}
	return r
}

// cprNL returns the number of longitude zones (NL) for a latitude,
// shared by the airborne and surface decode paths.
func cprNL(lat float64) int {
	absLat := math.Abs(lat)
	switch {
	case absLat < 10.47047130:
		return 59
	case absLat < 14.82817437:
		return 58
	case absLat < 18.18626357:
		return 57
	case absLat < 21.02939493:
		return 56
	case absLat < 23.54504487:
		return 55
	case absLat < 25.82924707:
		return 54
	case absLat < 27.93898710:
		return 53
	case absLat < 29.91135686:
		return 52
	case absLat < 31.77209708:
		return 51
	case absLat < 33.53993436:
		return 50
	case absLat < 35.22899598:
		return 49
	case absLat < 36.85025108:
		return 48
	case absLat < 38.41241892:
		return 47
	case absLat < 39.92256684:
		return 46
	case absLat < 41.38651832:
		return 45
	case absLat < 42.80914012:
		return 44
	case absLat < 44.19454951:
		return 43
	case absLat < 45.54626723:
		return 42
	case absLat < 46.86733252:
		return 41
	case absLat < 48.16039128:
		return 40
	case absLat < 49.42776439:
		return 39
	case absLat < 50.67150166:
		return 38
	case absLat < 51.89342469:
		return 37
	case absLat < 53.09516153:
		return 36
	case absLat < 54.27817472:
		return 35
	case absLat < 55.44378444:
		return 34
	case absLat < 56.59318756:
		return 33
	case absLat < 57.72747354:
		return 32
	case absLat < 58.84763776:
		return 31
	case absLat < 59.95459277:
		return 30
	case absLat < 61.04917774:
		return 29
	case absLat < 62.13216659:
		return 28
	case absLat < 63.20427479:
		return 27
	case absLat < 64.26616523:
		return 26
	case absLat < 65.31845310:
		return 25
	case absLat < 66.36171008:
		return 24
	case absLat < 67.39646774:
		return 23
	case absLat < 68.42322022:
		return 22
	case absLat < 69.44242631:
		return 21
	case absLat < 70.45451075:
		return 20
	case absLat < 71.45986473:
		return 19
	case absLat < 72.45884545:
		return 18
	case absLat < 73.45177442:
		return 17
	case absLat < 74.43893416:
		return 16
	case absLat < 75.42056257:
		return 15
	case absLat < 76.39684391:
		return 14
	case absLat < 77.36789461:
		return 13
	case absLat < 78.33374083:
		return 12
	case absLat < 79.29428225:
		return 11
	case absLat < 80.24923213:
		return 10
	case absLat < 81.19801349:
		return 9
	case absLat < 82.13956981:
		return 8
	case absLat < 83.07199445:
		return 7
	case absLat < 83.99173563:
		return 6
	case absLat < 84.89166191:
		return 5
	case absLat < 85.75541621:
		return 4
	case absLat < 86.53536998:
		return 3
	case absLat < 87.00000000:
		return 2
	default:
		return 1
	}
}

func cprN(lat float64, oddFlag int) int {
	nl := cprNL(lat) - oddFlag
	if nl < 1 {
		nl = 1
	}
	return nl
}

func cprDlon(lat float64, oddFlag int, zoneWidth float64) float64 {
	return zoneWidth / float64(cprN(lat, oddFlag))
}

// decodeGlobal implements the global CPR decode of §4.7 step 3,
// parameterized by zoneWidth (360 for airborne, 90 for surface — see
// DESIGN.md's note on the surface encoding constant).
func decodeGlobal(even, odd CPRFrame, zoneWidth float64) (lat, lon float64, ok bool) {
	lat0 := float64(even.Lat)
	lat1 := float64(odd.Lat)
	lon0 := float64(even.Lon)
	lon1 := float64(odd.Lon)

	j := int(math.Floor(((59*lat0-60*lat1)/cprMax)+0.5))

	dLat0 := zoneWidth / 60.0
	dLat1 := zoneWidth / 59.0
	rlat0 := dLat0 * (float64(cprModInt(j, 60)) + lat0/cprMax)
	rlat1 := dLat1 * (float64(cprModInt(j, 59)) + lat1/cprMax)

	if rlat0 >= zoneWidth*0.75 {
		rlat0 -= zoneWidth
	}
	if rlat1 >= zoneWidth*0.75 {
		rlat1 -= zoneWidth
	}

	if rlat0 < -90 || rlat0 > 90 || rlat1 < -90 || rlat1 > 90 {
		return 0, 0, false
	}
	if cprNL(rlat0) != cprNL(rlat1) {
		return 0, 0, false
	}

	var rlat, rlon float64
	if odd.TimeNanos > even.TimeNanos {
		ni := cprN(rlat1, 1)
		m := int(math.Floor((((lon0 * float64(cprNL(rlat1)-1)) - (lon1 * float64(cprNL(rlat1)))) / cprMax) + 0.5))
		rlon = cprDlon(rlat1, 1, zoneWidth) * (float64(cprModInt(m, ni)) + lon1/cprMax)
		rlat = rlat1
	} else {
		ni := cprN(rlat0, 0)
		m := int(math.Floor((((lon0 * float64(cprNL(rlat0)-1)) - (lon1 * float64(cprNL(rlat0)))) / cprMax) + 0.5))
		rlon = cprDlon(rlat0, 0, zoneWidth) * (float64(cprModInt(m, ni)) + lon0/cprMax)
		rlat = rlat0
	}

	rlon -= math.Floor((rlon+180)/360) * 360
	return rlat, rlon, true
}

// DecodeGlobalAirborne decodes a matched even/odd airborne CPR pair
// (§3 CPR invariant, §4.7 step 3; 60/59 zone split over 360 degrees).
func DecodeGlobalAirborne(even, odd CPRFrame) (lat, lon float64, ok bool) {
	return decodeGlobal(even, odd, 360.0)
}

// DecodeGlobalSurface decodes a matched even/odd surface CPR pair
// (§9 open question: surface position uses a 90-degree zone constant
// instead of the airborne 360-degree split).
func DecodeGlobalSurface(even, odd CPRFrame) (lat, lon float64, ok bool) {
	return decodeGlobal(even, odd, 90.0)
}
