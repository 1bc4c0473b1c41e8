// Package metrics implements the Signal Metrics Aggregator (§4.9): a
// side observer that taps the magnitude stream and the decode counters
// without ever calling back into the DSP stages (§9 "cyclic graph
// avoidance").
package metrics

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"adsbcore/internal/publisher"
)

// histBuckets covers |I-127|+|Q-127| from 0 to 255; the value can reach
// 256 (I=Q=255), and anything above 255 lands in the last bucket.
const histBuckets = 256

// noisePercentile is the low-percentile statistic used for the noise
// floor estimate (§4.9: "e.g. 10th").
const noisePercentile = 10

// Aggregator maintains the running signal/noise/SNR statistics and the
// decode counters surfaced in a SignalMetrics snapshot. Counters are
// plain atomics: readers may observe a slightly stale value, which
// §9 calls out as acceptable at 1 Hz.
type Aggregator struct {
	deviceID string

	mu          sync.Mutex
	hist        [histBuckets]uint64
	nonFrameN   uint64
	windowMax   uint16

	preamblesDetected atomic.Uint64
	framesDecoded     atomic.Uint64
	crcErrors         atomic.Uint64
	correctedFrames   atomic.Uint64

	lastFramesDecoded uint64
	lastTick          time.Time

	lastNoiseRaw atomic.Uint64 // most recently published noise-floor magnitude, for preamble gating
}

// NoiseFloorRaw returns the noise-floor magnitude from the most recent
// Snapshot, for the preamble detector's acceptance gate (§4.3). It
// defaults to 0 before the first snapshot.
func (a *Aggregator) NoiseFloorRaw() float64 {
	return float64(a.lastNoiseRaw.Load())
}

// New creates an Aggregator tagging every snapshot with deviceID.
func New(deviceID string) *Aggregator {
	return &Aggregator{deviceID: deviceID, lastTick: time.Now()}
}

// IncPreambleDetected counts one accepted preamble candidate (§4.3).
func (a *Aggregator) IncPreambleDetected() { a.preamblesDetected.Add(1) }

// IncFrameDecoded counts one frame that passed CRC validation, with or
// without correction (§4.5/§4.9).
func (a *Aggregator) IncFrameDecoded() { a.framesDecoded.Add(1) }

// IncCRCError counts one frame CRC could not validate or correct.
func (a *Aggregator) IncCRCError() { a.crcErrors.Add(1) }

// IncCorrected counts one single-bit-corrected frame.
func (a *Aggregator) IncCorrected() { a.correctedFrames.Add(1) }

// Observe folds one window of magnitude samples into the running
// signal/noise statistics. inFrame, if non-nil, marks samples that fall
// inside a detected preamble or frame capture; those are excluded from
// the noise-floor histogram (§4.9).
func (a *Aggregator) Observe(mag []uint16, inFrame []bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, v := range mag {
		if v > a.windowMax {
			a.windowMax = v
		}
		excluded := inFrame != nil && i < len(inFrame) && inFrame[i]
		if excluded {
			continue
		}
		b := int(v)
		if b >= histBuckets {
			b = histBuckets - 1
		}
		a.hist[b]++
		a.nonFrameN++
	}
}

// Snapshot computes and returns the current 1 s window's statistics,
// then resets the window (§4.9: signal/noise are "across the most
// recent 1 s window"). now is the wall-clock time to stamp the
// snapshot with.
func (a *Aggregator) Snapshot(now time.Time) publisher.SignalMetrics {
	a.mu.Lock()
	maxMag := a.windowMax
	noiseMag := percentile(a.hist[:], a.nonFrameN, noisePercentile)
	a.lastNoiseRaw.Store(uint64(noiseMag))
	a.windowMax = 0
	a.hist = [histBuckets]uint64{}
	a.nonFrameN = 0
	a.mu.Unlock()

	framesNow := a.framesDecoded.Load()
	elapsed := now.Sub(a.lastTick).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(framesNow-a.lastFramesDecoded) / elapsed
	}
	a.lastFramesDecoded = framesNow
	a.lastTick = now

	signalDBFS := toDBFS(maxMag)
	noiseDBFS := toDBFS(noiseMag)

	return publisher.SignalMetrics{
		DeviceID:          a.deviceID,
		SignalDBFS:        signalDBFS,
		NoiseDBFS:         noiseDBFS,
		SNRDB:             signalDBFS - noiseDBFS,
		MsgRate:           rate,
		PreamblesDetected: a.preamblesDetected.Load(),
		FramesDecoded:     framesNow,
		CRCErrors:         a.crcErrors.Load(),
		CorrectedFrames:   a.correctedFrames.Load(),
		TimestampMs:       now.UnixMilli(),
	}
}

// percentile returns the bucket value at the given percentile (0-100)
// of a histogram with total n samples.
func percentile(hist []uint64, n uint64, pct int) uint16 {
	if n == 0 {
		return 0
	}
	target := n * uint64(pct) / 100
	var cum uint64
	for b, c := range hist {
		cum += c
		if cum > target {
			return uint16(b)
		}
	}
	return uint16(len(hist) - 1)
}

// toDBFS converts a raw magnitude (full scale = 128, per §3's IQ
// midpoint of 127) into dBFS. Silence maps to a fixed floor rather than
// -Inf.
func toDBFS(mag uint16) float64 {
	const floor = -100.0
	if mag == 0 {
		return floor
	}
	db := 20 * math.Log10(float64(mag)/128.0)
	if db < floor {
		return floor
	}
	return db
}
