package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"adsbcore/internal/crc"
	"adsbcore/internal/dsp"
	"adsbcore/internal/frontend"
	"adsbcore/internal/intake"
	"adsbcore/internal/metrics"
	"adsbcore/internal/modes"
	"adsbcore/internal/publisher"
	"adsbcore/internal/tracker"
)

// restartBackoffMin/Max bound the exponential backoff applied after an
// IntakeStalled failure (§4.10: "exponential backoff 1->30 s").
const (
	restartBackoffMin = 1 * time.Second
	restartBackoffMax = 30 * time.Second
)

// Application wires the pipeline stages together and owns their
// lifecycle (§9: "exposes a constructor that returns a handle; there is
// no process-wide state").
type Application struct {
	config Config
	logger *logrus.Logger

	frontend  frontend.Frontend
	intake    *intake.Intake
	pipeline  *dsp.Pipeline
	validator *crc.Validator
	tracker   *tracker.Tracker
	publisher *publisher.Publisher
	metrics   *metrics.Aggregator

	wg sync.WaitGroup
}

// NewApplication validates cfg and constructs an Application ready to
// Start. The front-end is chosen by cfg.FrontendCmd: a child-process
// front-end if set, otherwise a direct RTL-SDR device open (§6).
func NewApplication(cfg Config, logger *logrus.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.Verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	var fe frontend.Frontend
	if cfg.FrontendCmd != "" {
		fe = frontend.NewProcessFrontend(logger, cfg.FrontendCmd, cfg.FrontendArgs)
	} else {
		fe = frontend.NewRTLSDRFrontend(logger, cfg.DeviceIndex, cfg.GainDB, cfg.PPMError)
	}

	return &Application{
		config:    cfg,
		logger:    logger,
		frontend:  fe,
		intake:    intake.New(logger, 8),
		pipeline:  dsp.NewPipeline(dsp.NewDetector(cfg.PreambleGate)),
		validator: crc.NewValidator(),
		tracker: tracker.New(logger, cfg.DeviceID,
			time.Duration(cfg.IdleTimeoutS)*time.Second,
			time.Duration(cfg.EvictionTickS)*time.Second,
			time.Duration(cfg.CPRWindowS)*time.Second),
		publisher: publisher.New(logger),
		metrics:   metrics.New(cfg.DeviceID),
	}, nil
}

// Publisher exposes the handle downstream gateways subscribe through.
func (a *Application) Publisher() *publisher.Publisher { return a.publisher }

// Start runs the pipeline until ctx is canceled or SIGINT/SIGTERM
// arrives, then shuts down cooperatively. It blocks until shutdown
// completes. The front-end restart loop has no restart budget and
// retries for as long as ctx is live, so a failing front-end does not
// make Start return an error.
func (a *Application) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		select {
		case <-sigCh:
			a.logger.Info("shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	fatalErr := make(chan error, 1)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.runFrontendWithRestart(ctx); err != nil {
			select {
			case fatalErr <- err:
			default:
			}
			cancel()
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runMetricsTicker(ctx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.runTrackRemovalPump(ctx)
	}()

	a.runDSPLoop(ctx)

	a.wg.Wait()
	a.publisher.Close()

	select {
	case err := <-fatalErr:
		return err
	default:
		return nil
	}
}

// runFrontendWithRestart owns the front-end's lifecycle: it opens the
// front-end, feeds its byte stream to intake, and on IntakeStalled
// restarts with exponential backoff (§4.10). A failed open is retried
// the same way, without limit. It returns nil once ctx is canceled and
// never returns the fatal error of §6 exit code 3.
func (a *Application) runFrontendWithRestart(ctx context.Context) error {
	backoff := restartBackoffMin

	for {
		if ctx.Err() != nil {
			return nil
		}

		r, err := a.frontend.Open(ctx)
		if err != nil {
			a.publishStatus(false, err.Error())
			a.logger.WithError(err).WithField("backoff", backoff).Warn("front-end open failed, retrying")
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = nextBackoff(backoff)
			continue
		}

		a.publishStatus(true, "")
		backoff = restartBackoffMin

		runCtx, runCancel := context.WithCancel(ctx)
		stalled := make(chan struct{}, 1)
		go func() {
			select {
			case <-a.intake.Stalls():
				select {
				case stalled <- struct{}{}:
				default:
				}
				runCancel()
			case <-runCtx.Done():
			}
		}()

		err = a.intake.Run(runCtx, r)
		runCancel()
		_ = a.frontend.Close()

		select {
		case <-stalled:
			a.publishStatus(false, intake.ErrStalled.Error())
		default:
			if err != nil {
				a.publishStatus(false, err.Error())
			}
		}

		if ctx.Err() != nil {
			return nil
		}
		if !sleepOrDone(ctx, backoff) {
			return nil
		}
		backoff = nextBackoff(backoff)
	}
}

func nextBackoff(cur time.Duration) time.Duration {
	next := cur * 2
	if next > restartBackoffMax {
		next = restartBackoffMax
	}
	return next
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (a *Application) publishStatus(connected bool, lastErr string) {
	a.publisher.PublishDeviceStatus(publisher.DeviceStatus{
		DeviceID:    a.config.DeviceID,
		Connected:   connected,
		SampleRate:  a.config.SampleRate,
		CenterFreq:  a.config.CenterFreq,
		GainDB:      a.config.GainDB,
		PPMError:    a.config.PPMError,
		LastError:   lastErr,
		HasError:    lastErr != "",
		HeartbeatAt: time.Now(),
	})
}

// runDSPLoop is the single DSP thread (§5): it drains intake windows
// straight-line through magnitude, preamble, demod, CRC, parse and
// tracker, try-sending results to the publisher. It never suspends
// except on intake.Windows().
func (a *Application) runDSPLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			a.drain()
			return
		case samples, ok := <-a.intake.Windows():
			if !ok {
				return
			}
			a.processWindow(samples)
		}
	}
}

// drain gives the pipeline a bounded window to flush any in-flight
// frame after a shutdown signal (§5 cancellation and shutdown).
func (a *Application) drain() {
	deadline := time.After(1 * time.Second)
	for {
		select {
		case samples, ok := <-a.intake.Windows():
			if !ok {
				return
			}
			a.processWindow(samples)
		case <-deadline:
			return
		}
	}
}

func (a *Application) processWindow(samples []intake.Sample) {
	a.pipeline.SetNoiseFloor(a.metrics.NoiseFloorRaw())

	frames, mag, inFrame := a.pipeline.Feed(samples)
	a.metrics.Observe(mag, inFrame)

	for i := range frames {
		a.metrics.IncPreambleDetected()
		a.processFrame(&frames[i])
	}
}

func (a *Application) processFrame(f *dsp.RawFrame) {
	n := f.Len() / 8
	frame := f.Bits[:n]

	result := a.validator.Validate(frame, f.LowConfidenceAt)
	if result.Bad {
		a.metrics.IncCRCError()
		return
	}
	a.metrics.IncFrameDecoded()
	if result.Corrected {
		a.metrics.IncCorrected()
	}

	d := int(frame[0] >> 3)
	var icaoOverride uint32
	if d == 0 || d == 4 || d == 5 || d == 16 || d == 20 || d == 21 {
		icaoOverride = crc.RecoverOverlayICAO(frame)
	}

	msg := modes.Parse(frame, icaoOverride, time.Now())
	msg.Corrected = result.Corrected

	events := a.tracker.Update(msg)
	for _, ev := range events {
		a.publishEvent(ev)
	}
}

func (a *Application) publishEvent(ev tracker.Event) {
	if ev.Kind == tracker.EventTrackRemoved {
		return // surfaced via runTrackRemovalPump instead
	}
	a.publisher.PublishAircraftUpdate(trackToUpdate(ev.Track))
}

func trackToUpdate(t tracker.Track) publisher.AircraftUpdate {
	return publisher.AircraftUpdate{
		ICAO:            t.ICAO,
		DeviceID:        t.DeviceID,
		Callsign:        t.Callsign,
		HasCallsign:     t.HasCallsign,
		Category:        t.Category,
		Lat:             t.Lat,
		Lon:             t.Lon,
		HasPosition:     t.HasPosition,
		AltitudeFt:      t.AltitudeFt,
		HasAlt:          t.HasAlt,
		GroundSpeedKt:   t.GroundSpeedKt,
		HeadingDeg:      t.HeadingDeg,
		HasVelocity:     t.HasVelocity,
		VerticalRateFpm: t.VerticalRateFpm,
		HasVerticalRate: t.HasVerticalRate,
		Squawk:          t.Squawk,
		HasSquawk:       t.HasSquawk,
		SeenAt:          t.LastSeen,
	}
}

// runTrackRemovalPump forwards track-removed events (§4.7.6) by
// publishing the evicted track's last state as an ordinary
// aircraft_update; the update carries no removal marker.
func (a *Application) runTrackRemovalPump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.tracker.Removed():
			if !ok {
				return
			}
			a.publisher.PublishAircraftUpdate(trackToUpdate(ev.Track))
		}
	}
}

// runMetricsTicker emits a signal_metrics snapshot at 1 Hz (§4.9),
// part of the bus/IO domain (§5: "may suspend on timer ticks for the
// metrics snapshot").
func (a *Application) runMetricsTicker(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			a.publisher.PublishSignalMetrics(a.metrics.Snapshot(now))
		}
	}
}
