package adsb

import "errors"

// Bit decoding failures. A window that fails is discarded as a whole.
var (
	ErrShortWindow  = errors.New("message window shorter than 512 samples")
	ErrAmbiguousBit = errors.New("ambiguous bit: sample pair tie")
)

// Byte packing failures
var (
	ErrMalformedBitLength = errors.New("bit count is not a multiple of 8")
	ErrInvalidBit         = errors.New("bit string contains a character other than '0' or '1'")
)

// Field decoder failures
var (
	ErrFrameLength = errors.New("frame is not 14 bytes long")
	ErrBadCRC      = errors.New("CRC residual is not zero")
)

// ErrDegenerateLongitudeZone is returned when the longitude zone count
// for the reference parity is zero.
var ErrDegenerateLongitudeZone = errors.New("degenerate longitude zone")
