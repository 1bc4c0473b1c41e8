package tracker

import "time"

// Track is a fixed-field aircraft record (§3 Aircraft track, §9
// "replacing runtime-flexible aircraft records"): every mutation is a
// field-wise merge, never a structural change to the record's shape.
type Track struct {
	ICAO uint32

	Callsign string
	HasCallsign bool
	Category uint8

	Lat, Lon    float64
	HasPosition bool
	PositionAt  time.Time

	AltitudeFt int
	HasAlt     bool

	GroundSpeedKt float64
	HeadingDeg    float64
	HasVelocity   bool

	VerticalRateFpm int
	HasVerticalRate bool

	Squawk    int
	HasSquawk bool

	EvenFrame    CPRFrame
	HasEvenFrame bool
	OddFrame     CPRFrame
	HasOddFrame  bool
	Surface      bool

	MessageCount uint64
	FirstSeen    time.Time
	LastSeen     time.Time
	DeviceID     string
}

// Snapshot returns a copy of the track safe to hand to readers outside
// the tracker (§3 Ownership: "all readers see snapshots").
func (t *Track) Snapshot() Track {
	return *t
}
