//go:build cgo

package rtlsdr

import (
	"context"
	"fmt"
	"sync"
	"time"

	rtl "github.com/jpoirier/gortlsdr"
	"github.com/sirupsen/logrus"

	"sky1090/internal/acquire"
)

// readResult is the outcome of one blocking ReadSync call
type readResult struct {
	n   int
	err error
}

// Device is an RTL-SDR receiver implementing acquire.Source. Each I/Q
// value arrives as one unsigned byte and is converted to SC16.
type Device struct {
	mu       sync.Mutex
	device   *rtl.Context
	logger   *logrus.Logger
	index    int
	settings acquire.Settings
	staging  []byte
	inflight chan readResult
	closed   bool
}

// Open opens the RTL-SDR device at index
func Open(index int, logger *logrus.Logger) (*Device, error) {
	count := rtl.GetDeviceCount()
	if count == 0 {
		return nil, fmt.Errorf("%w: no RTL-SDR devices found", acquire.ErrOpen)
	}
	if index < 0 || index >= count {
		return nil, fmt.Errorf("%w: device index %d out of range (0-%d)", acquire.ErrOpen, index, count-1)
	}

	device, err := rtl.Open(index)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", acquire.ErrOpen, err)
	}

	logger.WithFields(logrus.Fields{
		"device_index": index,
		"device_name":  rtl.GetDeviceName(index),
	}).Info("RTL-SDR device opened")

	return &Device{
		device:   device,
		logger:   logger,
		index:    index,
		settings: acquire.DefaultSettings(),
	}, nil
}

// Configure tunes the device and resets its sample buffer
func (r *Device) Configure(ctx context.Context, settings acquire.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return acquire.ErrClosed
	}

	if err := r.device.SetCenterFreq(int(settings.Frequency)); err != nil {
		return fmt.Errorf("%w: set frequency: %v", acquire.ErrConfigure, err)
	}

	if err := r.device.SetSampleRate(int(settings.SampleRate)); err != nil {
		return fmt.Errorf("%w: set sample rate: %v", acquire.ErrConfigure, err)
	}

	if settings.Bandwidth > 0 {
		if err := r.device.SetTunerBw(int(settings.Bandwidth)); err != nil {
			return fmt.Errorf("%w: set bandwidth: %v", acquire.ErrConfigure, err)
		}
	}

	if settings.Gain == 0 {
		if err := r.device.SetTunerGainMode(false); err != nil {
			return fmt.Errorf("%w: set auto gain: %v", acquire.ErrConfigure, err)
		}
	} else {
		if err := r.device.SetTunerGainMode(true); err != nil {
			return fmt.Errorf("%w: set manual gain mode: %v", acquire.ErrConfigure, err)
		}
		// Tenths of dB
		if err := r.device.SetTunerGain(settings.Gain * 10); err != nil {
			return fmt.Errorf("%w: set gain: %v", acquire.ErrConfigure, err)
		}
	}

	if err := r.device.ResetBuffer(); err != nil {
		return fmt.Errorf("%w: reset buffer: %v", acquire.ErrConfigure, err)
	}

	r.settings = settings

	r.logger.WithFields(logrus.Fields{
		"device_index": r.index,
		"frequency":    settings.Frequency,
		"sample_rate":  settings.SampleRate,
		"bandwidth":    settings.Bandwidth,
		"gain":         settings.Gain,
	}).Info("RTL-SDR device configured successfully")

	return nil
}

// Receive fills buf with converted samples. The blocking read is bounded
// by the configured receive timeout. A read abandoned on timeout must
// finish before the next one starts.
func (r *Device) Receive(ctx context.Context, buf []int16) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return acquire.ErrClosed
	}

	var timeout <-chan time.Time
	if r.settings.ReceiveTimeout > 0 {
		timer := time.NewTimer(r.settings.ReceiveTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	if r.inflight != nil {
		if _, err := r.wait(ctx, r.inflight, timeout); err != nil {
			return err
		}
	}

	size := stagingSize(len(buf))
	if len(r.staging) != size {
		r.staging = make([]byte, size)
	}
	staging := r.staging

	done := make(chan readResult, 1)
	r.inflight = done
	go func() {
		n, err := r.device.ReadSync(staging, len(staging))
		done <- readResult{n: n, err: err}
	}()

	result, err := r.wait(ctx, done, timeout)
	if err != nil {
		return err
	}
	if result.err != nil {
		return fmt.Errorf("%w: %v", acquire.ErrReceive, result.err)
	}
	if result.n < len(buf) {
		return fmt.Errorf("%w: short read of %d bytes, wanted %d", acquire.ErrReceive, result.n, len(buf))
	}

	ConvertSamples(buf, staging[:result.n])
	return nil
}

// wait blocks until the read on done completes, ctx ends or timeout fires
func (r *Device) wait(ctx context.Context, done chan readResult, timeout <-chan time.Time) (readResult, error) {
	select {
	case result := <-done:
		r.inflight = nil
		return result, nil
	case <-ctx.Done():
		return readResult{}, ctx.Err()
	case <-timeout:
		return readResult{}, fmt.Errorf("%w after %s", acquire.ErrReceiveTimeout, r.settings.ReceiveTimeout)
	}
}

// Close closes the RTL-SDR device
func (r *Device) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	if err := r.device.Close(); err != nil {
		return fmt.Errorf("failed to close device: %w", err)
	}
	r.logger.Info("RTL-SDR device closed")

	return nil
}
