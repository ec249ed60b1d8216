package adsb

import (
	"fmt"
)

// BitsToBytes packs a string of '0'/'1' characters into bytes, most
// significant bit first.
func BitsToBytes(bits string) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, fmt.Errorf("%w: got %d bits", ErrMalformedBitLength, len(bits))
	}

	out := make([]byte, len(bits)/8)
	for i := 0; i < len(bits); i++ {
		var v byte
		switch bits[i] {
		case '0':
		case '1':
			v = 1
		default:
			return nil, fmt.Errorf("%w: %q at position %d", ErrInvalidBit, bits[i], i)
		}
		out[i/8] |= v << (7 - uint(i%8))
	}

	return out, nil
}

// ICAOHex renders a 24-bit ICAO address as six uppercase hex characters.
func ICAOHex(icao [3]byte) string {
	return fmt.Sprintf("%02X%02X%02X", icao[0], icao[1], icao[2])
}
