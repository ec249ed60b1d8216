package beast

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"sky1090/internal/adsb"
)

// Writer emits every decoded frame as a long Mode S Beast message
type Writer struct {
	out            io.Writer
	logger         *logrus.Logger
	ticksPerSample uint64
	mu             sync.Mutex
	frames         uint64
}

// NewWriter creates a Beast writer. The sample rate converts sample
// positions into 12 MHz timestamps. If out is also an io.Closer it is
// closed by Close.
func NewWriter(out io.Writer, sampleRate uint32, logger *logrus.Logger) *Writer {
	return &Writer{
		out:            out,
		logger:         logger,
		ticksPerSample: TicksPerSample(sampleRate),
	}
}

// WriteMessage encodes and writes one frame
func (w *Writer) WriteMessage(msg *adsb.Message) error {
	if msg == nil {
		return errors.New("message cannot be nil")
	}

	frame, err := Encode(&Message{
		MessageType: ModeSLong,
		Timestamp:   msg.SampleIndex * w.ticksPerSample,
		Signal:      SignalByte(msg.Signal),
		Data:        msg.Data[:],
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := w.out.Write(frame); err != nil {
		return fmt.Errorf("failed to write beast frame: %w", err)
	}
	w.frames++

	return nil
}

// WriteFix does nothing: Beast carries raw frames only
func (w *Writer) WriteFix(fix *adsb.PositionFix) error {
	return nil
}

// Frames returns the number of frames written
func (w *Writer) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Close closes the underlying output if it can be closed
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.logger.WithField("frames", w.frames).Info("Closing Beast writer")

	if closer, ok := w.out.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
