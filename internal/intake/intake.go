// Package intake implements the Sample Intake stage (§4.1): it reads a
// continuous byte stream from an SDR front-end, groups bytes into IQ
// pairs, and pushes fixed-size sample windows into a bounded ring. It
// never blocks the radio: a full ring drops its oldest window and counts
// an overrun instead.
package intake

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// StallTimeout is the §4.1 IntakeStalled threshold: no bytes for longer
// than this triggers a device-status update.
const StallTimeout = 3 * time.Second

// WindowSamples is the minimum ring window size in IQ samples, large
// enough to hold one Mode S message capture (§3: "ring buffer large
// enough for one message window (≥ 240 samples at 2 MSPS)").
const WindowSamples = 256

// Sample is one unsigned 8-bit IQ pair.
type Sample struct {
	I, Q uint8
}

// ErrStalled is delivered on the Stalls channel when the front-end has
// not produced bytes for longer than StallTimeout.
var ErrStalled = errors.New("intake: stalled, no samples for " + StallTimeout.String())

// Intake groups a raw byte stream into IQ pairs and feeds them into a
// bounded ring of fixed-size windows. It is owned exclusively by the
// caller's single DSP thread: Windows() must have exactly one reader.
type Intake struct {
	logger *logrus.Logger
	ring   chan []Sample

	overruns  atomic.Uint64
	lastBytes atomic.Int64 // unix nanos of last successful read

	stalls chan error
}

// New creates an Intake with a ring capacity of ringDepth windows.
func New(logger *logrus.Logger, ringDepth int) *Intake {
	if ringDepth < 1 {
		ringDepth = 1
	}
	in := &Intake{
		logger: logger,
		ring:   make(chan []Sample, ringDepth),
		stalls: make(chan error, 1),
	}
	in.lastBytes.Store(time.Now().UnixNano())
	return in
}

// Windows returns the receive end of the ring; the DSP thread is the
// sole consumer (§3 Ownership).
func (in *Intake) Windows() <-chan []Sample { return in.ring }

// Stalls delivers ErrStalled whenever the stall watchdog fires.
func (in *Intake) Stalls() <-chan error { return in.stalls }

// Overruns returns the number of windows dropped because the ring was
// full.
func (in *Intake) Overruns() uint64 { return in.overruns.Load() }

// Run reads raw IQ bytes from r until ctx is canceled or r returns an
// error other than io.EOF or io.ErrUnexpectedEOF; on those two it pushes
// any partial window and keeps reading. It is meant to run on its own
// goroutine, separate from the DSP thread that drains Windows().
func (in *Intake) Run(ctx context.Context, r io.Reader) error {
	buf := make([]byte, WindowSamples*2)
	go in.watchStall(ctx)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := io.ReadFull(r, buf)
		if n > 0 {
			in.lastBytes.Store(time.Now().UnixNano())
			in.push(bytesToSamples(buf[:n]))
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				continue
			}
			return err
		}
	}
}

func (in *Intake) push(samples []Sample) {
	select {
	case in.ring <- samples:
	default:
		// Ring full: drop the oldest window and try again (never block
		// the radio, §4.1/§4.10).
		select {
		case <-in.ring:
		default:
		}
		in.overruns.Add(1)
		select {
		case in.ring <- samples:
		default:
		}
		if in.logger != nil {
			in.logger.WithField("overruns", in.overruns.Load()).Debug("intake ring full, dropped oldest window")
		}
	}
}

func (in *Intake) watchStall(ctx context.Context) {
	ticker := time.NewTicker(StallTimeout / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := time.Unix(0, in.lastBytes.Load())
			if time.Since(last) > StallTimeout {
				select {
				case in.stalls <- ErrStalled:
				default:
				}
			}
		}
	}
}

func bytesToSamples(b []byte) []Sample {
	n := len(b) / 2
	out := make([]Sample, n)
	for i := 0; i < n; i++ {
		out[i] = Sample{I: b[2*i], Q: b[2*i+1]}
	}
	return out
}
