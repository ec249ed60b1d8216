package adsb

import (
	"time"
)

// Parity is the CPR format flag of a position report
type Parity uint8

const (
	Even Parity = 0
	Odd  Parity = 1
)

// String returns "even" or "odd"
func (p Parity) String() string {
	if p == Odd {
		return "odd"
	}
	return "even"
}

// CPRKind identifies which extended squitter subtype carried a position
type CPRKind uint8

const (
	CPRAirborneBaro CPRKind = iota
	CPRAirborneGNSS
	CPRSurface
)

// String returns a short label for the subtype
func (k CPRKind) String() string {
	switch k {
	case CPRAirborneGNSS:
		return "airborne-gnss"
	case CPRSurface:
		return "surface"
	default:
		return "airborne-baro"
	}
}

// CPRReport holds the raw CPR fields of one position message
type CPRReport struct {
	Kind   CPRKind
	Parity Parity
	Lat    uint32 // 17-bit encoded latitude
	Lon    uint32 // 17-bit encoded longitude
}

// Frame is a decoded Mode S frame
type Frame struct {
	DF          uint8
	CA          uint8
	ICAO        [3]byte
	TypeCode    uint8 // Only set for DF17/18
	CRC         uint32
	Position    *CPRReport
	Altitude    int // Feet, valid when HasAltitude
	HasAltitude bool
}

// ICAOHex returns the ICAO address as six hex characters
func (f *Frame) ICAOHex() string {
	return ICAOHex(f.ICAO)
}

// IsExtendedSquitter reports whether the frame is DF17 or DF18
func (f *Frame) IsExtendedSquitter() bool {
	return f.DF == DFExtendedSquitter || f.DF == DFNonTransponderES
}

// Message is emitted for every frame that survives field decoding
type Message struct {
	Frame       *Frame
	Data        [LongMsgBytes]byte
	Offset      int    // Preamble offset in the magnitude series of its buffer
	SampleIndex uint64 // Preamble position counted from the start of capture
	Signal      uint16 // Peak magnitude inside the message window
	Timestamp   time.Time
	SessionID   string
}

// Position is a decoded latitude/longitude pair in degrees
type Position struct {
	Latitude  float64
	Longitude float64
}

// PositionFix is the outcome of a CPR global decode attempt for an aircraft.
// Err is set when the pair could not be resolved.
type PositionFix struct {
	ICAO      string
	Parity    Parity // Reference parity (the newer of the pair)
	Position  Position
	Err       error
	Timestamp time.Time
	SessionID string
}

// Valid reports whether the fix carries a position
func (f *PositionFix) Valid() bool {
	return f.Err == nil
}
