package adsb

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// preambleMagnitude returns 16 samples with pulses at pulse and gaps at gap
func preambleMagnitude(pulse, gap uint16) []uint16 {
	m := make([]uint16, PreambleSamples)
	for k := range m {
		if preamblePulses[k] {
			m[k] = pulse
		} else {
			m[k] = gap
		}
	}
	return m
}

// messageWindow builds a 512 sample window carrying bits after an ideal preamble
func messageWindow(bits string) []uint16 {
	window := make([]uint16, WindowSamples)
	copy(window, preambleMagnitude(1000, 0))
	for b := 0; b < len(bits); b++ {
		i := PreambleSamples + b*SamplesPerBit
		if bits[b] == '1' {
			window[i], window[i+1] = 100, 200
		} else {
			window[i], window[i+1] = 200, 100
		}
	}
	return window
}

func TestMagnitude(t *testing.T) {
	tests := []struct {
		name     string
		iq       []int16
		expected []uint16
	}{
		{name: "empty", iq: []int16{}, expected: []uint16{}},
		{name: "pure I", iq: []int16{100, 0}, expected: []uint16{1000}},
		{name: "3-4-5 triangle", iq: []int16{3, 4}, expected: []uint16{50}},
		{name: "negative components", iq: []int16{-300, -400}, expected: []uint16{5000}},
		{name: "truncates fraction", iq: []int16{1, 1}, expected: []uint16{14}},
		{name: "clamps to uint16 range", iq: []int16{32767, 32767}, expected: []uint16{65535}},
		{name: "clamps full scale negative", iq: []int16{-32768, 0}, expected: []uint16{65535}},
		{name: "trailing sample ignored", iq: []int16{100, 0, 5}, expected: []uint16{1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Magnitude(tt.iq))
		})
	}
}

func TestMagnitudeLength(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 50; n++ {
		iq := make([]int16, rng.Intn(2048))
		for i := range iq {
			iq[i] = int16(rng.Intn(65536) - 32768)
		}
		assert.Len(t, Magnitude(iq), len(iq)/2)
	}
}

func TestDetectPreamble(t *testing.T) {
	withSample := func(m []uint16, k int, v uint16) []uint16 {
		m[k] = v
		return m
	}

	tests := []struct {
		name     string
		m        []uint16
		offset   int
		expected bool
	}{
		{name: "ideal preamble", m: preambleMagnitude(1000, 100), expected: true},
		{name: "zero gaps", m: preambleMagnitude(1, 0), expected: true},
		{name: "all zero", m: preambleMagnitude(0, 0), expected: false},
		{name: "pulse ties gap", m: preambleMagnitude(500, 500), expected: false},
		{name: "pulse below gap", m: preambleMagnitude(100, 1000), expected: false},
		{name: "last gap just below pulses", m: withSample(preambleMagnitude(1000, 0), 15, 999), expected: true},
		{name: "last gap ties pulses", m: withSample(preambleMagnitude(1000, 0), 15, 1000), expected: false},
		{name: "weak last pulse", m: withSample(preambleMagnitude(1000, 200), 9, 200), expected: false},
		{name: "early gap above later pulse", m: withSample(preambleMagnitude(1000, 0), 1, 1500), expected: false},
		{name: "negative offset", m: preambleMagnitude(1000, 0), offset: -1, expected: false},
		{name: "window past end", m: preambleMagnitude(1000, 0), offset: 1, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPreamble(tt.m, tt.offset))
		})
	}
}

func TestDetectPreambleAtOffset(t *testing.T) {
	m := make([]uint16, 40)
	copy(m[20:], preambleMagnitude(800, 10))

	assert.True(t, DetectPreamble(m, 20))
	assert.False(t, DetectPreamble(m, 19))
	assert.False(t, DetectPreamble(m, 21))
}

func TestFindPreambles(t *testing.T) {
	t.Run("silence", func(t *testing.T) {
		assert.Empty(t, FindPreambles(make([]uint16, 1000)))
	})

	t.Run("shorter than a preamble", func(t *testing.T) {
		assert.Empty(t, FindPreambles(make([]uint16, 10)))
		assert.Empty(t, FindPreambles(nil))
	})

	t.Run("two preambles", func(t *testing.T) {
		m := make([]uint16, 600)
		copy(m[20:], preambleMagnitude(1000, 0))
		copy(m[300:], preambleMagnitude(1000, 0))
		assert.Equal(t, []int{20, 300}, FindPreambles(m))
	})

	t.Run("last offset is not scanned", func(t *testing.T) {
		m := make([]uint16, 32)
		copy(m[16:], preambleMagnitude(1000, 0))
		assert.True(t, DetectPreamble(m, 16))
		assert.Empty(t, FindPreambles(m))
	})
}

func TestExtractWindows(t *testing.T) {
	m := make([]uint16, 1000)
	for i := range m {
		m[i] = uint16(i)
	}

	windows := ExtractWindows(m, []int{0, 488, 489, 600})
	require.Len(t, windows, 2)

	assert.Len(t, windows[0], WindowSamples)
	assert.Equal(t, uint16(0), windows[0][0])
	assert.Equal(t, uint16(511), windows[0][511])
	assert.Equal(t, uint16(488), windows[1][0])
	assert.Equal(t, uint16(999), windows[1][511])

	// Windows own their samples
	m[0] = 4242
	assert.Equal(t, uint16(0), windows[0][0])
}

func TestExtractWindowsEmpty(t *testing.T) {
	assert.Empty(t, ExtractWindows(make([]uint16, 100), []int{0, 10}))
	assert.Empty(t, ExtractWindows(make([]uint16, 1000), nil))
}

func TestDecodeBits(t *testing.T) {
	const book = "1000110101000000011000100001110101011000110000111000001011010110100100001100100010101100001010000110001110100111"

	tests := []struct {
		name string
		bits string
	}{
		{name: "all ones", bits: strings.Repeat("1", LongMsgBits)},
		{name: "all zeros", bits: strings.Repeat("0", LongMsgBits)},
		{name: "alternating", bits: strings.Repeat("10", LongMsgBits/2)},
		{name: "extended squitter", bits: book},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bits, err := DecodeBits(messageWindow(tt.bits))
			require.NoError(t, err)
			assert.Equal(t, tt.bits, bits)
			assert.Len(t, bits, LongMsgBits)
		})
	}
}

func TestDecodeBitsErrors(t *testing.T) {
	t.Run("short window", func(t *testing.T) {
		_, err := DecodeBits(make([]uint16, WindowSamples-1))
		assert.ErrorIs(t, err, ErrShortWindow)
	})

	t.Run("tie on last bit", func(t *testing.T) {
		window := messageWindow(strings.Repeat("1", LongMsgBits))
		last := PreambleSamples + (LongMsgBits-1)*SamplesPerBit
		window[last], window[last+1] = 300, 300

		bits, err := DecodeBits(window)
		assert.ErrorIs(t, err, ErrAmbiguousBit)
		assert.Empty(t, bits)
	})

	t.Run("silent data", func(t *testing.T) {
		_, err := DecodeBits(messageWindow(""))
		assert.ErrorIs(t, err, ErrAmbiguousBit)
	})
}

func TestDecodeBitsIgnoresTail(t *testing.T) {
	window := messageWindow(strings.Repeat("0", LongMsgBits))
	// Samples past the 112th bit are not part of the frame
	for i := PreambleSamples + LongMsgBits*SamplesPerBit; i < WindowSamples; i++ {
		window[i] = 7
	}

	_, err := DecodeBits(window)
	assert.NoError(t, err)
}
