package acquire

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileSource replays a capture of little-endian SC16 samples, the format
// written by bladeRF-cli. Settings are recorded but have no effect.
type FileSource struct {
	mu       sync.Mutex
	reader   *bufio.Reader
	closer   io.Closer
	logger   *logrus.Logger
	settings Settings
	staging  []byte
	samples  uint64
	closed   bool
	eof      bool
}

// OpenFile opens a capture file for replay
func OpenFile(path string, logger *logrus.Logger) (*FileSource, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	logger.WithField("path", path).Info("Opened capture file")

	return newSource(file, file, logger), nil
}

// NewReaderSource replays SC16 samples from an arbitrary reader
func NewReaderSource(r io.Reader, logger *logrus.Logger) *FileSource {
	var closer io.Closer
	if c, ok := r.(io.Closer); ok {
		closer = c
	}
	return newSource(r, closer, logger)
}

func newSource(r io.Reader, closer io.Closer, logger *logrus.Logger) *FileSource {
	return &FileSource{
		reader: bufio.NewReaderSize(r, 1<<16),
		closer: closer,
		logger: logger,
	}
}

// Configure records the settings
func (f *FileSource) Configure(ctx context.Context, settings Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	f.settings = settings

	f.logger.WithFields(logrus.Fields{
		"frequency":   settings.Frequency,
		"sample_rate": settings.SampleRate,
	}).Debug("Capture file ignores radio settings")

	return nil
}

// Receive fills buf with the next len(buf) values from the capture.
// A short final read is zero padded; the call after it returns io.EOF.
func (f *FileSource) Receive(ctx context.Context, buf []int16) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.eof {
		return io.EOF
	}

	need := 2 * len(buf)
	if cap(f.staging) < need {
		f.staging = make([]byte, need)
	}
	staging := f.staging[:need]

	n, err := io.ReadFull(f.reader, staging)
	switch {
	case errors.Is(err, io.EOF):
		f.eof = true
		return io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		f.eof = true
		clear(staging[n:])
	case err != nil:
		return fmt.Errorf("%w: %v", ErrReceive, err)
	}

	for i := range buf {
		buf[i] = int16(binary.LittleEndian.Uint16(staging[2*i:]))
	}
	f.samples += uint64(n / 4)

	return nil
}

// Samples returns the number of complete I/Q samples read so far
func (f *FileSource) Samples() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.samples
}

// Close releases the underlying file. Closing twice is a no-op.
func (f *FileSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}
	f.closed = true

	if f.closer != nil {
		if err := f.closer.Close(); err != nil {
			return fmt.Errorf("failed to close capture: %w", err)
		}
	}

	f.logger.WithField("samples", f.samples).Info("Capture file closed")
	return nil
}
