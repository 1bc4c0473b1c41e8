// Package publisher implements the fan-out bus of §4.8: three logical
// topics (aircraft_updates, signal_metrics, device_status), each with
// its own backpressure policy. The DSP thread only ever calls the
// Publish* methods, which are try-send and never block; the actual
// delivery to subscribers runs on this package's own goroutines, which
// make up the "bus/IO domain" of §5.
package publisher

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// AircraftUpdate is the aircraft_updates wire schema (§6).
type AircraftUpdate struct {
	ICAO            uint32
	DeviceID        string
	Callsign        string
	HasCallsign     bool
	Category        uint8
	Lat, Lon        float64
	HasPosition     bool
	AltitudeFt      int
	HasAlt          bool
	GroundSpeedKt   float64
	HeadingDeg      float64
	HasVelocity     bool
	VerticalRateFpm int
	HasVerticalRate bool
	Squawk          int
	HasSquawk       bool
	SeenAt          time.Time
}

// SignalMetrics is the signal_metrics wire schema (§6), emitted 1 Hz.
type SignalMetrics struct {
	DeviceID          string
	SignalDBFS        float64
	NoiseDBFS         float64
	SNRDB             float64
	MsgRate           float64
	PreamblesDetected uint64
	FramesDecoded     uint64
	CRCErrors         uint64
	CorrectedFrames   uint64
	TimestampMs       int64
}

// DeviceStatus is the device_status wire schema (§6).
type DeviceStatus struct {
	DeviceID    string
	Connected   bool
	SampleRate  uint32
	CenterFreq  uint32
	GainDB      int
	PPMError    int
	LastError   string
	HasError    bool
	HeartbeatAt time.Time
}

// Publisher is the handle §9 describes replacing the source's
// module-level singletons: there is no process-wide state, and the
// publisher is owned and torn down by whoever constructs it.
type Publisher struct {
	logger *logrus.Logger

	mu       sync.Mutex
	aircraft []*aircraftSub
	metrics  []chan SignalMetrics
	status   []*statusSub

	closed chan struct{}
	once   sync.Once
}

// New creates a Publisher. Call Close when the pipeline shuts down.
func New(logger *logrus.Logger) *Publisher {
	return &Publisher{logger: logger, closed: make(chan struct{})}
}

// Close stops every subscriber pump goroutine. Safe to call more than
// once.
func (p *Publisher) Close() {
	p.once.Do(func() { close(p.closed) })
}

// aircraftSub coalesces per-ICAO updates into a mailbox and forwards
// them to Out on its own goroutine, so a slow consumer never blocks
// the publisher call (§4.8: "coalesced to the latest value per key").
type aircraftSub struct {
	mu      sync.Mutex
	pending map[uint32]AircraftUpdate
	wake    chan struct{}
	out     chan AircraftUpdate
}

// SubscribeAircraftUpdates returns a receive-only channel of
// per-ICAO-coalesced aircraft updates.
func (p *Publisher) SubscribeAircraftUpdates(bufSize int) <-chan AircraftUpdate {
	sub := &aircraftSub{
		pending: make(map[uint32]AircraftUpdate),
		wake:    make(chan struct{}, 1),
		out:     make(chan AircraftUpdate, bufSize),
	}
	p.mu.Lock()
	p.aircraft = append(p.aircraft, sub)
	p.mu.Unlock()

	go p.pumpAircraft(sub)
	return sub.out
}

func (p *Publisher) pumpAircraft(sub *aircraftSub) {
	for {
		select {
		case <-p.closed:
			return
		case <-sub.wake:
		}
		for {
			sub.mu.Lock()
			var icao uint32
			var u AircraftUpdate
			found := false
			for k, v := range sub.pending {
				icao, u, found = k, v, true
				break
			}
			if found {
				delete(sub.pending, icao)
			}
			sub.mu.Unlock()
			if !found {
				break
			}
			select {
			case sub.out <- u:
			case <-p.closed:
				return
			}
		}
	}
}

// PublishAircraftUpdate delivers u to every aircraft_updates subscriber,
// coalescing on u.ICAO when a subscriber is behind. Never blocks.
func (p *Publisher) PublishAircraftUpdate(u AircraftUpdate) {
	p.mu.Lock()
	subs := p.aircraft
	p.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.pending[u.ICAO] = u
		sub.mu.Unlock()
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}

// SubscribeSignalMetrics returns a receive-only channel of signal
// metrics snapshots. A slow consumer has snapshots dropped, never
// queued indefinitely (§4.8).
func (p *Publisher) SubscribeSignalMetrics(bufSize int) <-chan SignalMetrics {
	ch := make(chan SignalMetrics, bufSize)
	p.mu.Lock()
	p.metrics = append(p.metrics, ch)
	p.mu.Unlock()
	return ch
}

// PublishSignalMetrics delivers m to every signal_metrics subscriber,
// dropping it for any subscriber whose buffer is full. Never blocks.
func (p *Publisher) PublishSignalMetrics(m SignalMetrics) {
	p.mu.Lock()
	chans := p.metrics
	p.mu.Unlock()

	for _, ch := range chans {
		select {
		case ch <- m:
		default:
			if p.logger != nil {
				p.logger.Debug("publisher: signal_metrics subscriber full, dropping snapshot")
			}
		}
	}
}

// statusSub holds only the latest device_status value; a slow consumer
// sees the most recent state, never a backlog (§4.8: "replace-latest").
type statusSub struct {
	mu     sync.Mutex
	latest DeviceStatus
	wake   chan struct{}
	out    chan DeviceStatus
}

// SubscribeDeviceStatus returns a receive-only channel delivering the
// latest device status on every change.
func (p *Publisher) SubscribeDeviceStatus() <-chan DeviceStatus {
	sub := &statusSub{wake: make(chan struct{}, 1), out: make(chan DeviceStatus, 1)}
	p.mu.Lock()
	p.status = append(p.status, sub)
	p.mu.Unlock()

	go p.pumpStatus(sub)
	return sub.out
}

func (p *Publisher) pumpStatus(sub *statusSub) {
	for {
		select {
		case <-p.closed:
			return
		case <-sub.wake:
		}
		sub.mu.Lock()
		v := sub.latest
		sub.mu.Unlock()
		select {
		case sub.out <- v:
		case <-p.closed:
			return
		default:
			// out has capacity 1 and already holds an unread value;
			// drain it and replace with the newer one.
			select {
			case <-sub.out:
			default:
			}
			select {
			case sub.out <- v:
			case <-p.closed:
				return
			}
		}
	}
}

// PublishDeviceStatus replaces the latest device_status value seen by
// every subscriber. Never blocks.
func (p *Publisher) PublishDeviceStatus(s DeviceStatus) {
	p.mu.Lock()
	subs := p.status
	p.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.latest = s
		sub.mu.Unlock()
		select {
		case sub.wake <- struct{}{}:
		default:
		}
	}
}
