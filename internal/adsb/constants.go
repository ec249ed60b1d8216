package adsb

// Physical layer constants for the long (112 bit) Mode S frame
const (
	PreambleSamples = 16  // 8us preamble at 2 samples per microsecond
	LongMsgBits     = 112 // Extended squitter length
	LongMsgBytes    = LongMsgBits / 8
	SamplesPerBit   = 2
	WindowSamples   = 512 // Samples copied per candidate frame
)

// Magnitude scaling
const (
	MagnitudeScale = 10.0
	MagnitudeMax   = 65535
)

// preamblePulses marks the sample positions inside the 16 sample preamble
// that carry a pulse; every other position is expected to be quiet.
var preamblePulses = [PreambleSamples]bool{0: true, 2: true, 7: true, 9: true}

// CPR decoding constants
const (
	CPR_LAT_BITS = 17
	CPR_LON_BITS = 17
	CPR_LAT_MAX  = 131072 // 2^17
	CPR_LON_MAX  = 131072 // 2^17

	CPRNZ           = 15 // Latitude zones between equator and pole
	CPRPoleLatitude = 87.0
)

// Downlink formats carrying extended squitters
const (
	DFExtendedSquitter = 17
	DFNonTransponderES = 18
)

// Extended squitter type code ranges for position reports
const (
	TypeCodeSurfaceFirst      = 5
	TypeCodeSurfaceLast       = 8
	TypeCodeAirborneBaroFirst = 9
	TypeCodeAirborneBaroLast  = 18
	TypeCodeAirborneGNSSFirst = 20
	TypeCodeAirborneGNSSLast  = 22
)
