package adsb

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxPairAge is how old either half of an even/odd pair may be at
// the time of a global decode.
const DefaultMaxPairAge = 10 * time.Second

// ResolverOption configures a Resolver
type ResolverOption func(r *Resolver)

// WithMaxPairAge overrides the freshness window for CPR pairs
func WithMaxPairAge(d time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.maxPairAge = d
	}
}

// WithLogger sets the logger for the resolver
func WithLogger(logger *logrus.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// Resolver turns CPR position reports into absolute positions using the
// global (even/odd pair) decode.
type Resolver struct {
	store      *AircraftStore
	maxPairAge time.Duration
	logger     *logrus.Logger
}

// NewResolver creates a resolver over the given store
func NewResolver(store *AircraftStore, options ...ResolverOption) *Resolver {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := &Resolver{
		store:      store,
		maxPairAge: DefaultMaxPairAge,
		logger:     logger,
	}

	for _, option := range options {
		option(r)
	}

	return r
}

// Observe stores a CPR report received at the given instant and, when the
// aircraft then holds a fresh even and odd sample, attempts a global decode.
//
// It returns (nil, nil) when no decode was attempted. A failed decode
// returns a fix carrying the error together with the error itself; the
// stored samples are kept either way.
func (r *Resolver) Observe(icao string, report CPRReport, at time.Time) (*PositionFix, error) {
	record := r.store.Record(icao)
	even, odd := record.Update(report.Parity, CPRSample{Lat: report.Lat, Lon: report.Lon, Time: at})

	r.logger.WithFields(logrus.Fields{
		"icao":    icao,
		"parity":  report.Parity.String(),
		"lat_cpr": report.Lat,
		"lon_cpr": report.Lon,
		"state":   record.State().String(),
	}).Debug("Stored CPR sample")

	if even == nil || odd == nil {
		return nil, nil
	}

	if !r.fresh(even, at) || !r.fresh(odd, at) {
		r.logger.WithFields(logrus.Fields{
			"icao":     icao,
			"even_age": at.Sub(even.Time),
			"odd_age":  at.Sub(odd.Time),
		}).Debug("CPR pair too old, skipping global decode")
		return nil, nil
	}

	useOdd := odd.Time.After(even.Time)
	fix := &PositionFix{
		ICAO:      icao,
		Parity:    Even,
		Timestamp: at,
	}
	if useOdd {
		fix.Parity = Odd
	}

	pos, err := DecodeGlobal(even.Lat, even.Lon, odd.Lat, odd.Lon, useOdd)
	if err != nil {
		fix.Err = fmt.Errorf("icao %s: %w", icao, err)
		return fix, fix.Err
	}
	fix.Position = pos

	return fix, nil
}

// fresh reports whether sample was received no later than at and at most
// maxPairAge before it
func (r *Resolver) fresh(sample *CPRSample, at time.Time) bool {
	age := at.Sub(sample.Time)
	return age >= 0 && age <= r.maxPairAge
}
