package adsb

// ADS-B CRC-24 polynomial constant (Mode S standard)
const MODES_GENERATOR_POLY = 0xfff409

// Pre-computed CRC table
var crcTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		c := uint32(i) << 16
		for j := 0; j < 8; j++ {
			if c&0x800000 != 0 {
				c = (c << 1) ^ MODES_GENERATOR_POLY
			} else {
				c = c << 1
			}
		}
		crcTable[i] = c & 0x00ffffff
	}
}

// CRC returns the Mode S CRC-24 remainder of data. Run over a whole
// extended squitter, including its parity field, a clean frame yields 0.
func CRC(data []byte) uint32 {
	var rem uint32

	for _, b := range data {
		rem = (rem << 8) ^ crcTable[uint32(b)^((rem&0xff0000)>>16)]
		rem &= 0xffffff
	}

	return rem
}
