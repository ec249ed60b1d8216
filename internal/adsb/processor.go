package adsb

import (
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// DecodedFrame is a successfully sliced message: the 112 bit string, the
// window it was decoded from, and the preamble offset in the magnitude series.
type DecodedFrame struct {
	Bits   string
	Window []uint16
	Offset int
}

// ProcessFrames runs the full demodulation pipeline over one I/Q buffer:
// magnitude, preamble search, window extraction and bit slicing.
// Only windows that decode cleanly are returned, in offset order.
func ProcessFrames(iq []int16) []DecodedFrame {
	magnitude := Magnitude(iq)
	preambles := FindPreambles(magnitude)
	decoded, _ := decodeWindows(ExtractWindows(magnitude, preambles), preambles)
	return decoded
}

// decodeWindows slices bits out of every window and returns the clean
// frames plus the number of windows rejected for a tie. Windows line up
// with preambles index for index: extraction only drops trailing offsets.
func decodeWindows(windows [][]uint16, preambles []int) ([]DecodedFrame, int) {
	var decoded []DecodedFrame
	ambiguous := 0

	for i, window := range windows {
		bits, err := DecodeBits(window)
		if err != nil {
			if errors.Is(err, ErrAmbiguousBit) {
				ambiguous++
			}
			continue
		}
		decoded = append(decoded, DecodedFrame{Bits: bits, Window: window, Offset: preambles[i]})
	}

	return decoded, ambiguous
}

// Stats is a snapshot of Processor counters
type Stats struct {
	Buffers       uint64
	Samples       uint64
	Preambles     uint64
	Windows       uint64
	AmbiguousBits uint64
	DecodedFrames uint64
}

// Processor wraps the pipeline with logging and counters. It is safe for
// concurrent use by several workers.
type Processor struct {
	logger *logrus.Logger

	buffers       atomic.Uint64
	samples       atomic.Uint64
	preambles     atomic.Uint64
	windows       atomic.Uint64
	ambiguousBits atomic.Uint64
	decodedFrames atomic.Uint64
}

// NewProcessor creates a new pipeline processor
func NewProcessor(logger *logrus.Logger) *Processor {
	return &Processor{logger: logger}
}

// Process demodulates one buffer of interleaved I/Q samples
func (p *Processor) Process(iq []int16) []DecodedFrame {
	p.buffers.Add(1)
	p.samples.Add(uint64(len(iq) / 2))

	magnitude := Magnitude(iq)
	preambles := FindPreambles(magnitude)
	p.preambles.Add(uint64(len(preambles)))

	windows := ExtractWindows(magnitude, preambles)
	p.windows.Add(uint64(len(windows)))

	decoded, ambiguous := decodeWindows(windows, preambles)
	p.ambiguousBits.Add(uint64(ambiguous))
	p.decodedFrames.Add(uint64(len(decoded)))

	if len(decoded) > 0 {
		p.logger.WithFields(logrus.Fields{
			"preambles": len(preambles),
			"windows":   len(windows),
			"decoded":   len(decoded),
		}).Debug("Buffer demodulated")
	}

	return decoded
}

// GetStats returns processing statistics
func (p *Processor) GetStats() Stats {
	return Stats{
		Buffers:       p.buffers.Load(),
		Samples:       p.samples.Load(),
		Preambles:     p.preambles.Load(),
		Windows:       p.windows.Load(),
		AmbiguousBits: p.ambiguousBits.Load(),
		DecodedFrames: p.decodedFrames.Load(),
	}
}
