package frontend

import (
	"context"
	"errors"
	"fmt"
	"io"

	rtlsdr "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"
)

// readAsyncBufLen matches the teacher's 256KB async read buffer.
const readAsyncBufLen = 16 * 16384

// RTLSDRFrontend opens an RTL-SDR device directly via gortlsdr (§6
// option b), bridging its async-callback read model into an io.Reader
// via a pipe so intake can consume it the same way as ProcessFrontend.
type RTLSDRFrontend struct {
	logger *logrus.Logger
	index  int
	gainDB int
	ppm    int

	device   *rtlsdr.Context
	cancelFn context.CancelFunc
}

// NewRTLSDRFrontend creates a front-end bound to the given device
// index, gain (0 = auto) and PPM correction.
func NewRTLSDRFrontend(logger *logrus.Logger, index, gainDB, ppm int) *RTLSDRFrontend {
	return &RTLSDRFrontend{logger: logger, index: index, gainDB: gainDB, ppm: ppm}
}

// Open configures and starts the device, returning the read end of a
// pipe fed by the async read callback.
func (f *RTLSDRFrontend) Open(ctx context.Context) (io.Reader, error) {
	count := rtlsdr.GetDeviceCount()
	if count == 0 {
		return nil, errors.New("frontend: no RTL-SDR devices found")
	}
	if f.index >= count {
		return nil, fmt.Errorf("frontend: device index %d out of range (0-%d)", f.index, count-1)
	}

	dev, err := rtlsdr.Open(f.index)
	if err != nil {
		return nil, fmt.Errorf("frontend: open device: %w", err)
	}
	f.device = dev

	if err := dev.SetCenterFreq(1090000000); err != nil {
		return nil, fmt.Errorf("frontend: set center freq: %w", err)
	}
	if err := dev.SetSampleRate(2000000); err != nil {
		return nil, fmt.Errorf("frontend: set sample rate: %w", err)
	}
	if f.ppm != 0 {
		if err := dev.SetFreqCorrection(f.ppm); err != nil {
			return nil, fmt.Errorf("frontend: set PPM correction: %w", err)
		}
	}
	if f.gainDB == 0 {
		if err := dev.SetTunerGainMode(false); err != nil {
			return nil, fmt.Errorf("frontend: set auto gain: %w", err)
		}
	} else {
		if err := dev.SetTunerGainMode(true); err != nil {
			return nil, fmt.Errorf("frontend: set manual gain mode: %w", err)
		}
		if err := dev.SetTunerGain(f.gainDB * 10); err != nil {
			return nil, fmt.Errorf("frontend: set gain: %w", err)
		}
	}
	if err := dev.ResetBuffer(); err != nil {
		return nil, fmt.Errorf("frontend: reset buffer: %w", err)
	}

	pr, pw := io.Pipe()
	readCtx, cancel := context.WithCancel(ctx)
	f.cancelFn = cancel

	callback := func(data []byte) {
		if _, err := pw.Write(data); err != nil {
			return
		}
	}

	go func() {
		defer func() {
			if r := recover(); r != nil && f.logger != nil {
				f.logger.WithField("panic", r).Error("RTL-SDR capture panic")
			}
		}()
		if err := dev.ReadAsync(callback, nil, 0, readAsyncBufLen); err != nil {
			pw.CloseWithError(fmt.Errorf("frontend: read async: %w", err))
			return
		}
	}()

	go func() {
		<-readCtx.Done()
		_ = dev.CancelAsync()
		pw.Close()
	}()

	if f.logger != nil {
		f.logger.WithFields(logrus.Fields{
			"device_index": f.index,
			"gain_db":      f.gainDB,
			"ppm_error":    f.ppm,
		}).Info("RTL-SDR device configured and streaming")
	}

	return pr, nil
}

// Close cancels the async read and closes the device.
func (f *RTLSDRFrontend) Close() error {
	if f.cancelFn != nil {
		f.cancelFn()
	}
	if f.device != nil {
		if err := f.device.Close(); err != nil {
			return fmt.Errorf("frontend: close device: %w", err)
		}
	}
	return nil
}
