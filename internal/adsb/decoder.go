package adsb

import (
	"fmt"
)

// Decoder interprets packed 14 byte Mode S frames. It extracts only what
// position tracking needs: addressing, type code, CPR fields and altitude.
type Decoder struct {
	requireCRC bool
}

// NewDecoder creates a new field decoder. With requireCRC set, extended
// squitters whose CRC residual is not zero are rejected.
func NewDecoder(requireCRC bool) *Decoder {
	return &Decoder{requireCRC: requireCRC}
}

// Decode parses one long Mode S frame
func (d *Decoder) Decode(data []byte) (*Frame, error) {
	if len(data) != LongMsgBytes {
		return nil, fmt.Errorf("%w: got %d bytes", ErrFrameLength, len(data))
	}

	frame := &Frame{
		DF:   data[0] >> 3,
		CA:   data[0] & 0x07,
		ICAO: [3]byte{data[1], data[2], data[3]},
		CRC:  CRC(data),
	}

	if !frame.IsExtendedSquitter() {
		return frame, nil
	}

	if d.requireCRC && frame.CRC != 0 {
		return nil, fmt.Errorf("%w: residual %06X", ErrBadCRC, frame.CRC)
	}

	frame.TypeCode = data[4] >> 3
	tc := frame.TypeCode

	switch {
	case tc >= TypeCodeSurfaceFirst && tc <= TypeCodeSurfaceLast:
		frame.Position = extractCPR(data, CPRSurface)

	case tc >= TypeCodeAirborneBaroFirst && tc <= TypeCodeAirborneBaroLast:
		frame.Position = extractCPR(data, CPRAirborneBaro)
		frame.Altitude, frame.HasAltitude = decodeAC12(data)

	case tc >= TypeCodeAirborneGNSSFirst && tc <= TypeCodeAirborneGNSSLast:
		frame.Position = extractCPR(data, CPRAirborneGNSS)
	}

	return frame, nil
}

// extractCPR reads the F flag and the two 17 bit CPR fields (ME bits 22-56)
func extractCPR(data []byte, kind CPRKind) *CPRReport {
	parity := Parity((data[6] >> 2) & 0x01)

	lat := (uint32(data[6]&0x03)<<15 | uint32(data[7])<<7 | uint32(data[8])>>1) & 0x1FFFF
	lon := (uint32(data[8]&0x01)<<16 | uint32(data[9])<<8 | uint32(data[10])) & 0x1FFFF

	return &CPRReport{
		Kind:   kind,
		Parity: parity,
		Lat:    lat,
		Lon:    lon,
	}
}

// decodeAC12 decodes the 12 bit altitude field of an airborne position
// (ME bits 9-20). Only the 25 ft (Q=1) encoding is supported.
func decodeAC12(data []byte) (int, bool) {
	ac12 := uint16(data[5])<<4 | uint16(data[6])>>4
	if ac12 == 0 {
		return 0, false
	}

	if ac12&0x10 == 0 {
		// Gillham coded, 100 ft steps
		return 0, false
	}

	// N is the 11 bit integer left after removing the Q bit
	n := (ac12&0x0FE0)>>1 | ac12&0x000F
	return int(n)*25 - 1000, true
}
