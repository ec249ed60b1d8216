package adsb

import (
	"math"
)

// Magnitude converts interleaved I/Q samples to a scaled magnitude envelope.
// Each I/Q pair yields sqrt(I^2+Q^2)*10, clamped to the uint16 range.
// A trailing unpaired sample is ignored.
func Magnitude(iq []int16) []uint16 {
	magnitude := make([]uint16, len(iq)/2)

	for n := range magnitude {
		i := float64(iq[2*n])
		q := float64(iq[2*n+1])
		scaled := math.Sqrt(i*i+q*q) * MagnitudeScale
		if scaled > MagnitudeMax {
			scaled = MagnitudeMax
		}
		magnitude[n] = uint16(scaled)
	}

	return magnitude
}

// DetectPreamble reports whether the 16 samples starting at offset look
// like a Mode S preamble: every pulse sample seen so far must stay strictly
// above every quiet sample seen so far. Ties reject the candidate.
func DetectPreamble(m []uint16, offset int) bool {
	if offset < 0 || offset+PreambleSamples > len(m) {
		return false
	}

	var low uint16
	high := uint16(MagnitudeMax)

	for k, sample := range m[offset : offset+PreambleSamples] {
		if preamblePulses[k] {
			high = min(high, sample)
		} else {
			low = max(low, sample)
		}
		if high <= low {
			return false
		}
	}

	return true
}

// FindPreambles returns every offset in [0, len(m)-16) that passes
// DetectPreamble, in ascending order.
func FindPreambles(m []uint16) []int {
	var offsets []int

	for i := 0; i < len(m)-PreambleSamples; i++ {
		if DetectPreamble(m, i) {
			offsets = append(offsets, i)
		}
	}

	return offsets
}

// ExtractWindows copies a 512 sample window at each preamble offset.
// Offsets without enough trailing samples are skipped.
func ExtractWindows(m []uint16, offsets []int) [][]uint16 {
	windows := make([][]uint16, 0, len(offsets))

	for _, start := range offsets {
		end := start + WindowSamples
		if start < 0 || end > len(m) {
			continue
		}
		window := make([]uint16, WindowSamples)
		copy(window, m[start:end])
		windows = append(windows, window)
	}

	return windows
}

// DecodeBits slices the 112 data bits out of a message window.
// Each bit is a pair of samples after the preamble: a stronger first
// sample is '0', a stronger second sample is '1'. A tie anywhere
// discards the whole window.
func DecodeBits(window []uint16) (string, error) {
	if len(window) < WindowSamples {
		return "", ErrShortWindow
	}

	bits := make([]byte, LongMsgBits)
	for bit := 0; bit < LongMsgBits; bit++ {
		i := PreambleSamples + bit*SamplesPerBit
		s0, s1 := window[i], window[i+1]

		switch {
		case s0 > s1:
			bits[bit] = '0'
		case s0 < s1:
			bits[bit] = '1'
		default:
			return "", ErrAmbiguousBit
		}
	}

	return string(bits), nil
}
