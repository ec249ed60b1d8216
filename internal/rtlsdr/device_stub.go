//go:build !cgo

package rtlsdr

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"sky1090/internal/acquire"
)

// Device is a stand-in used when the binary is built without cgo
type Device struct{}

// Open always fails: librtlsdr needs cgo
func Open(index int, logger *logrus.Logger) (*Device, error) {
	return nil, fmt.Errorf("%w: RTL-SDR support requires a cgo build", acquire.ErrOpen)
}

// Configure returns an error for stub implementation
func (d *Device) Configure(ctx context.Context, settings acquire.Settings) error {
	return acquire.ErrClosed
}

// Receive returns an error for stub implementation
func (d *Device) Receive(ctx context.Context, buf []int16) error {
	return acquire.ErrClosed
}

// Close is a no-op for stub implementation
func (d *Device) Close() error {
	return nil
}
