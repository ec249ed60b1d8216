package adsb

import (
	"math"
)

// cprNLConstant is 1 - cos(pi / (2*NZ)), the numerator of the NL formula
var cprNLConstant = 1 - math.Cos(math.Pi/(2*CPRNZ))

// cprMaxNL is the zone count at the equator
const cprMaxNL = 4*CPRNZ - 1

// NL returns the number of longitude zones at the given latitude (degrees).
// It is never less than 1.
func NL(lat float64) int {
	if lat == 0 {
		return cprMaxNL
	}
	if math.Abs(lat) >= CPRPoleLatitude {
		return 1
	}

	cosLat := math.Cos(lat * math.Pi / 180)
	a := 1 - cprNLConstant/(cosLat*cosLat)
	nl := int(math.Floor(2 * math.Pi / math.Acos(a)))

	// Rounding just off the equator can yield one zone too many
	return max(1, min(nl, cprMaxNL))
}

// DecodeGlobal resolves an even/odd pair of CPR encoded positions into
// latitude and longitude. useOdd selects the odd frame as reference, which
// should be the more recent of the two. The result is not checked against
// the pair actually belonging to the same pass.
func DecodeGlobal(latEven, lonEven, latOdd, lonOdd uint32, useOdd bool) (Position, error) {
	yzEven := float64(latEven) / CPR_LAT_MAX
	yzOdd := float64(latOdd) / CPR_LAT_MAX

	// Latitude zone index
	j := math.Floor(59*yzEven - 60*yzOdd + 0.5)

	rlatEven := 360.0 / 60.0 * (math.Mod(j, 60) + yzEven)
	rlatOdd := 360.0 / 59.0 * (math.Mod(j, 59) + yzOdd)

	// Southern hemisphere latitudes come out in 270..360
	if rlatEven >= 270 {
		rlatEven -= 360
	}
	if rlatOdd >= 270 {
		rlatOdd -= 360
	}

	xzEven := float64(lonEven) / CPR_LON_MAX
	xzOdd := float64(lonOdd) / CPR_LON_MAX

	rlat, xz := rlatEven, xzEven
	if useOdd {
		rlat, xz = rlatOdd, xzOdd
	}

	nl := NL(rlat)
	ni := nl
	if useOdd {
		ni = nl - 1
	}
	if ni == 0 {
		return Position{}, ErrDegenerateLongitudeZone
	}

	// Longitude zone index
	m := math.Floor(xzEven*float64(nl-1) - xzOdd*float64(nl) + 0.5)

	n := float64(ni)
	rlon := 360.0 / n * math.Mod(math.Mod(m, n)+xz, n)

	// Renormalize longitude to -180 .. +180
	rlon -= math.Floor((rlon+180)/360) * 360

	return Position{Latitude: rlat, Longitude: rlon}, nil
}
