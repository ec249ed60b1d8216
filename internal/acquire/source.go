// Package acquire defines how sample buffers are obtained from a radio or
// a capture file.
package acquire

import (
	"context"
	"errors"
	"time"
)

// Default receiver settings for 1090 MHz Mode S
const (
	DefaultFrequency      = 1090000000 // 1090 MHz
	DefaultSampleRate     = 2000000    // 2 MHz
	DefaultBandwidth      = 2000000    // 2 MHz
	DefaultGain           = 70
	DefaultReceiveTimeout = 5 * time.Second
)

// Acquisition failures. Implementations wrap these with %w.
var (
	ErrOpen           = errors.New("failed to open source")
	ErrConfigure      = errors.New("failed to configure source")
	ErrReceiveTimeout = errors.New("receive timed out")
	ErrReceive        = errors.New("receive failed")
	ErrClosed         = errors.New("source is closed")
)

// Settings holds the radio parameters applied by Configure
type Settings struct {
	Frequency      uint32
	SampleRate     uint32
	Bandwidth      uint32
	Gain           int // dB, 0 selects automatic gain
	ReceiveTimeout time.Duration
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		Frequency:      DefaultFrequency,
		SampleRate:     DefaultSampleRate,
		Bandwidth:      DefaultBandwidth,
		Gain:           DefaultGain,
		ReceiveTimeout: DefaultReceiveTimeout,
	}
}

// Source produces interleaved signed 16 bit I/Q samples.
//
// Receive fills buf completely or returns an error. A source that has
// nothing more to give returns io.EOF.
type Source interface {
	Configure(ctx context.Context, settings Settings) error
	Receive(ctx context.Context, buf []int16) error
	Close() error
}
