package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adsbcore/internal/modes"
)

func identMsg(icao uint32, callsign string, ts time.Time) modes.ParsedMessage {
	return modes.ParsedMessage{
		DF:        17,
		ICAO:      icao,
		Timestamp: ts,
		Payload:   modes.Payload{Kind: modes.PayloadIdentification, Callsign: callsign},
	}
}

func positionMsg(icao uint32, lat, lon uint32, odd bool, ts time.Time) modes.ParsedMessage {
	return modes.ParsedMessage{
		DF:        17,
		ICAO:      icao,
		Timestamp: ts,
		Payload: modes.Payload{
			Kind:     modes.PayloadPositionAirborne,
			OddFrame: odd,
			CPRLat:   lat,
			CPRLon:   lon,
		},
	}
}

func TestTrackerCreatesTrackOnFirstMessage(t *testing.T) {
	tr := New(nil, "dev0", 5*time.Minute, 30*time.Second, 10*time.Second)
	events := tr.Update(identMsg(0x4840D6, "KAL123", time.Now()))
	require.Len(t, events, 1)
	assert.Equal(t, EventStateUpdate, events[0].Kind)
	assert.Equal(t, "KAL123", events[0].Track.Callsign)
}

func TestTrackerCallsignIsStickyUntilChanged(t *testing.T) {
	tr := New(nil, "dev0", 5*time.Minute, 30*time.Second, 10*time.Second)
	now := time.Now()
	tr.Update(identMsg(0x4840D6, "KAL123", now))
	events := tr.Update(identMsg(0x4840D6, "KAL123", now.Add(time.Second)))
	assert.Empty(t, events, "re-sending the same callsign must not emit a spurious update")

	events = tr.Update(identMsg(0x4840D6, "KAL456", now.Add(2*time.Second)))
	require.Len(t, events, 1)
	assert.Equal(t, "KAL456", events[0].Track.Callsign)
}

func TestTrackerMonotonicLastSeen(t *testing.T) {
	tr := New(nil, "dev0", 5*time.Minute, 30*time.Second, 10*time.Second)
	now := time.Now()
	tr.Update(identMsg(0x4840D6, "KAL123", now))

	// A message with an earlier timestamp must never move last_seen
	// backwards (§3 tracker monotonicity).
	tr.Update(identMsg(0x4840D6, "KAL123", now.Add(-time.Hour)))

	tr2 := tr.get(0x4840D6)
	assert.True(t, tr2.LastSeen.Equal(now) || tr2.LastSeen.After(now))
}

func TestTrackerEmitsPositionOnlyWithMatchedCPRPair(t *testing.T) {
	tr := New(nil, "dev0", 5*time.Minute, 30*time.Second, 10*time.Second)
	now := time.Now()

	evenLat, evenLon := encodeCPR(52.25720, 3.91937, 360.0, false)
	oddLat, oddLon := encodeCPR(52.25720, 3.91937, 360.0, true)

	events := tr.Update(positionMsg(0x4840D6, evenLat, evenLon, false, now))
	assert.Empty(t, events, "a single CPR frame must not yield a position")

	events = tr.Update(positionMsg(0x4840D6, oddLat, oddLon, true, now.Add(time.Second)))
	require.Len(t, events, 1)
	assert.Equal(t, EventPositionUpdate, events[0].Kind)
	assert.True(t, events[0].Track.HasPosition)
	assert.InDelta(t, 52.25720, events[0].Track.Lat, 1e-4)
	assert.InDelta(t, 3.91937, events[0].Track.Lon, 1e-4)
}

func TestTrackerRejectsCPRPairOutsideWindow(t *testing.T) {
	tr := New(nil, "dev0", 5*time.Minute, 30*time.Second, 10*time.Second)
	now := time.Now()

	evenLat, evenLon := encodeCPR(52.25720, 3.91937, 360.0, false)
	oddLat, oddLon := encodeCPR(52.25720, 3.91937, 360.0, true)

	tr.Update(positionMsg(0x4840D6, evenLat, evenLon, false, now))
	events := tr.Update(positionMsg(0x4840D6, oddLat, oddLon, true, now.Add(20*time.Second)))
	assert.Empty(t, events, "a CPR pair spanning more than cpr_window_s must not decode")
}

func TestTrackerSanityRejectsImplausibleJump(t *testing.T) {
	tr := New(nil, "dev0", 5*time.Minute, 30*time.Second, 10*time.Second)
	now := time.Now()

	// First fix over the Netherlands.
	evenLat, evenLon := encodeCPR(52.25720, 3.91937, 360.0, false)
	oddLat, oddLon := encodeCPR(52.25720, 3.91937, 360.0, true)
	tr.Update(positionMsg(0x4840D6, evenLat, evenLon, false, now))
	tr.Update(positionMsg(0x4840D6, oddLat, oddLon, true, now.Add(time.Second)))

	before := tr.SanityRejects()

	// A second fix over Sydney one second later implies an impossible
	// ground speed and must be dropped, leaving the track's position
	// unchanged.
	evenLat2, evenLon2 := encodeCPR(-33.86785, 151.20732, 360.0, false)
	oddLat2, oddLon2 := encodeCPR(-33.86785, 151.20732, 360.0, true)
	tr.Update(positionMsg(0x4840D6, evenLat2, evenLon2, false, now.Add(2*time.Second)))
	tr.Update(positionMsg(0x4840D6, oddLat2, oddLon2, true, now.Add(3*time.Second)))

	assert.Greater(t, tr.SanityRejects(), before)
	assert.InDelta(t, 52.25720, tr.get(0x4840D6).Lat, 1e-4)
}

func TestTrackerEvictsIdleTracks(t *testing.T) {
	tr := New(nil, "dev0", 50*time.Millisecond, 20*time.Millisecond, 10*time.Second)
	tr.Update(identMsg(0x4840D6, "KAL123", time.Now()))

	select {
	case ev := <-tr.Removed():
		require.Equal(t, EventTrackRemoved, ev.Kind)
		assert.Equal(t, uint32(0x4840D6), ev.ICAO)
	case <-time.After(2 * time.Second):
		t.Fatal("expected track removal event within the idle timeout")
	}
}
