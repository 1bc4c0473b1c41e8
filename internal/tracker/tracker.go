// Package tracker implements the Aircraft Tracker stage (§4.7): it
// owns the ICAO-24 -> track mapping, runs the CPR global decode, and
// emits position/state/removal events for the publisher to fan out.
package tracker

import (
	"fmt"
	"math"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"adsbcore/internal/modes"
)

// MaxGroundSpeedKt bounds the sanity check in §4.7 step 4: a position
// implying faster travel than this since the prior fix is dropped.
const MaxGroundSpeedKt = 2000.0

// EventKind discriminates the events a track update can produce.
type EventKind int

const (
	EventPositionUpdate EventKind = iota
	EventStateUpdate
	EventTrackRemoved
)

// Event is emitted by the tracker on a parsed-message update or on
// eviction (§4.7 steps 5-6).
type Event struct {
	Kind  EventKind
	ICAO  uint32
	Track Track
}

// Tracker owns the ICAO-24 -> Track mapping (§3 Ownership: "Tracks are
// exclusively owned by the tracker"). It is driven synchronously from
// the single DSP thread; eviction runs on go-cache's own janitor
// goroutine and only ever removes entries, never mutates them, so no
// additional locking is needed around Track field access from Update.
type Tracker struct {
	logger    *logrus.Logger
	store     *cache.Cache
	cprWindow time.Duration
	deviceID  string

	removed chan Event

	sanityRejects uint64
}

// New creates a Tracker. idleTimeout is T_idle (§3, default 5 min);
// evictTick is T_evict (§4.7 step 6, default 30 s); cprWindow is the
// max gap between even/odd CPR frames (§6 cpr_window_s, default 10 s).
func New(logger *logrus.Logger, deviceID string, idleTimeout, evictTick, cprWindow time.Duration) *Tracker {
	t := &Tracker{
		logger:    logger,
		store:     cache.New(idleTimeout, evictTick),
		cprWindow: cprWindow,
		deviceID:  deviceID,
		removed:   make(chan Event, 64),
	}
	t.store.OnEvicted(func(key string, v interface{}) {
		tr := v.(*Track)
		ev := Event{Kind: EventTrackRemoved, ICAO: tr.ICAO, Track: tr.Snapshot()}
		select {
		case t.removed <- ev:
		default:
			if t.logger != nil {
				t.logger.Warn("tracker: removed-event channel full, dropping eviction notice")
			}
		}
	})
	return t
}

// Removed delivers a TrackRemoved event for each eviction (§4.7.6); when
// the channel's buffer is full the event is dropped with a warning.
func (t *Tracker) Removed() <-chan Event { return t.removed }

// SanityRejects returns the count of positions dropped by the §4.7
// step-4 ground-speed sanity check.
func (t *Tracker) SanityRejects() uint64 { return t.sanityRejects }

func key(icao uint32) string {
	return fmt.Sprintf("%06X", icao)
}

func (t *Tracker) get(icao uint32) *Track {
	if v, ok := t.store.Get(key(icao)); ok {
		return v.(*Track)
	}
	tr := &Track{ICAO: icao, FirstSeen: time.Now(), DeviceID: t.deviceID}
	t.store.SetDefault(key(icao), tr)
	return tr
}

// Update applies one parsed message to its track (§4.7 steps 1-5) and
// returns the events it produced, in the order they occurred.
func (t *Tracker) Update(msg modes.ParsedMessage) []Event {
	if msg.ICAO == 0 {
		return nil
	}

	tr := t.get(msg.ICAO)

	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if !tr.LastSeen.IsZero() && ts.Before(tr.LastSeen) {
		ts = tr.LastSeen // tracker monotonicity (§3)
	}
	tr.LastSeen = ts
	tr.MessageCount++

	var events []Event
	stateChanged := false

	p := msg.Payload
	switch p.Kind {
	case modes.PayloadIdentification:
		if p.Callsign != "" && (!tr.HasCallsign || tr.Callsign != p.Callsign) {
			tr.Callsign = p.Callsign
			tr.HasCallsign = true
			tr.Category = uint8(p.Category)
			stateChanged = true
		}
	case modes.PayloadPositionAirborne, modes.PayloadPositionSurface, modes.PayloadGNSSHeight:
		if p.HasAlt {
			tr.AltitudeFt = p.AltitudeFt
			tr.HasAlt = true
			stateChanged = true
		}
		tr.Surface = p.Surface
		frame := CPRFrame{Lat: p.CPRLat, Lon: p.CPRLon, TimeNanos: ts.UnixNano()}
		if p.OddFrame {
			tr.OddFrame = frame
			tr.HasOddFrame = true
		} else {
			tr.EvenFrame = frame
			tr.HasEvenFrame = true
		}
		if tr.HasEvenFrame && tr.HasOddFrame {
			if t.tryPosition(tr) {
				events = append(events, Event{Kind: EventPositionUpdate, ICAO: tr.ICAO, Track: tr.Snapshot()})
			}
		}
	case modes.PayloadVelocity:
		if p.HasVelocity {
			tr.GroundSpeedKt = p.GroundSpeedKt
			tr.HeadingDeg = p.HeadingDeg
			tr.HasVelocity = true
			stateChanged = true
		}
		if p.HasVerticalRate {
			tr.VerticalRateFpm = p.VerticalRateFpm
			tr.HasVerticalRate = true
			stateChanged = true
		}
	default:
		if p.HasSquawk {
			tr.Squawk = p.Squawk
			tr.HasSquawk = true
			stateChanged = true
		}
		if p.HasAlt {
			tr.AltitudeFt = p.AltitudeFt
			tr.HasAlt = true
			stateChanged = true
		}
	}

	if stateChanged {
		events = append(events, Event{Kind: EventStateUpdate, ICAO: tr.ICAO, Track: tr.Snapshot()})
	}

	t.store.SetDefault(key(msg.ICAO), tr)
	return events
}

// tryPosition runs the global CPR decode (§4.7 step 3) subject to the
// cpr_window_s gap and the ground-speed sanity check (§4.7 step 4). It
// mutates tr.Lat/Lon/PositionAt/HasPosition on success.
func (t *Tracker) tryPosition(tr *Track) bool {
	gap := tr.OddFrame.TimeNanos - tr.EvenFrame.TimeNanos
	if gap < 0 {
		gap = -gap
	}
	if time.Duration(gap) > t.cprWindow {
		return false
	}

	var lat, lon float64
	var ok bool
	if tr.Surface {
		lat, lon, ok = DecodeGlobalSurface(tr.EvenFrame, tr.OddFrame)
	} else {
		lat, lon, ok = DecodeGlobalAirborne(tr.EvenFrame, tr.OddFrame)
	}
	if !ok {
		return false
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return false
	}

	newest := time.Unix(0, tr.EvenFrame.TimeNanos)
	if tr.OddFrame.TimeNanos > tr.EvenFrame.TimeNanos {
		newest = time.Unix(0, tr.OddFrame.TimeNanos)
	}

	if tr.HasPosition {
		elapsed := newest.Sub(tr.PositionAt).Seconds()
		if elapsed > 0 {
			distNM := haversineNM(tr.Lat, tr.Lon, lat, lon)
			impliedKt := distNM / (elapsed / 3600.0)
			if impliedKt > MaxGroundSpeedKt {
				t.sanityRejects++
				return false
			}
		}
	}

	tr.Lat, tr.Lon = lat, lon
	tr.PositionAt = newest
	tr.HasPosition = true
	return true
}

// haversineNM returns the great-circle distance between two lat/lon
// points in nautical miles.
func haversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusNM = 3440.065
	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusNM * c
}
